package sso

// State is a step of the login state machine.
type State int

const (
	StateStart State = iota
	StatePageFetched
	StateCredentialsPrepared
	StateSubmitted
	StateRedirecting
	StateValidated
	StateSuccess
	StateFailure
)

var stateNames = [...]string{
	StateStart:               "start",
	StatePageFetched:         "page_fetched",
	StateCredentialsPrepared: "credentials_prepared",
	StateSubmitted:           "submitted",
	StateRedirecting:         "redirecting",
	StateValidated:           "validated",
	StateSuccess:             "success",
	StateFailure:             "failure",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Verdict is the outcome of inspecting the page the redirect chain ended
// on.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictRejected
	VerdictIndeterminate
)

// Evaluate applies the success rule to the final page: success when the
// login form is gone and either the target was reached or a logout control
// is shown; rejected when the login form is back; indeterminate otherwise.
func Evaluate(reached, loginForm, logout bool) Verdict {
	switch {
	case (reached && !loginForm) || (logout && !loginForm):
		return VerdictSuccess
	case loginForm:
		return VerdictRejected
	default:
		return VerdictIndeterminate
	}
}
