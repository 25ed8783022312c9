package sso

import (
	"context"
	"net/url"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/crypto"
	"github.com/jmcleod/mjuauth/htmlscan"
	"github.com/jmcleod/mjuauth/internal/util"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/transport"
)

// Login runs the full flow on a fresh session and returns it once the
// session is validated for serviceKey.
func (a *Authenticator) Login(ctx context.Context, creds Credentials, serviceKey string) (*transport.Session, error) {
	if _, err := a.registry.Lookup(serviceKey); err != nil {
		return nil, err
	}
	sess, err := a.newSession()
	if err != nil {
		return nil, autherr.Unknown("creating session", err)
	}
	if err := a.LoginWith(ctx, sess, creds, serviceKey); err != nil {
		return nil, err
	}
	return sess, nil
}

// LoginWith runs the flow on an existing session. A session already
// validated for serviceKey is rejected with an already_logged_in error.
func (a *Authenticator) LoginWith(ctx context.Context, sess *transport.Session, creds Credentials, serviceKey string) error {
	desc, err := a.registry.Lookup(serviceKey)
	if err != nil {
		return err
	}
	if sess == nil {
		return autherr.SessionNotExist("login requires a session")
	}
	if sess.Service() == serviceKey {
		return autherr.AlreadyLoggedIn(serviceKey)
	}

	log := a.log.WithValues("service", desc.Key, "user", util.Mask(creds.UserID))
	log.V(1).Info("starting SSO login", "state", StateStart.String())

	fields, err := a.fetchLoginPage(ctx, sess, desc, log)
	if err != nil {
		return a.fail(log, err)
	}

	form, err := a.prepareCredentials(creds, fields, log)
	if err != nil {
		return a.fail(log, err)
	}

	page, err := a.submit(ctx, sess, desc, fields, form, log)
	if err != nil {
		return a.fail(log, err)
	}

	page, err = a.followRedirects(ctx, sess, desc, page, log)
	if err != nil {
		return a.fail(log, err)
	}

	if err := a.validate(desc, page, log); err != nil {
		return a.fail(log, err)
	}

	sess.MarkAuthenticated(desc.Key)
	log.Info("SSO login succeeded", "state", StateSuccess.String())
	return nil
}

func (a *Authenticator) fail(log logr.Logger, err error) error {
	log.Info("SSO login failed", "state", StateFailure.String(), "kind", autherr.KindOf(err), "reason", autherr.Reason(err))
	return err
}

func (a *Authenticator) fetchLoginPage(ctx context.Context, sess *transport.Session, desc service.Descriptor, log logr.Logger) (htmlscan.LoginPageFields, error) {
	page, err := sess.Get(ctx, desc.LoginURL, sess.Timeouts().Default)
	if err != nil {
		return htmlscan.LoginPageFields{}, err
	}

	fields := htmlscan.ExtractLoginPageFields(page.Body)
	switch fields.Missing() {
	case htmlscan.FieldPublicKey:
		return fields, autherr.Parsing("public key not found on login page", htmlscan.FieldPublicKey)
	case htmlscan.FieldCSRF:
		return fields, autherr.Parsing("c_r_t token not found on login page", htmlscan.FieldCSRF)
	case htmlscan.FieldForm:
		return fields, autherr.Parsing("signin form not found on login page", htmlscan.FieldForm)
	}

	log.V(1).Info("login page fetched", "state", StatePageFetched.String(), "url", page.URL, "action", fields.FormAction)
	return fields, nil
}

func (a *Authenticator) prepareCredentials(creds Credentials, fields htmlscan.LoginPageFields, log logr.Logger) (url.Values, error) {
	key, err := crypto.GenerateSessionKey(a.keyLength)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	timestamp := strconv.FormatInt(a.now().UnixMilli(), 10)
	encsymka, err := crypto.EncryptWithRSA(key.KeyString+","+timestamp, fields.PublicKey)
	if err != nil {
		return nil, err
	}
	pwEnc, err := crypto.EncryptWithAES(creds.Password, key)
	if err != nil {
		return nil, err
	}

	log.V(1).Info("credentials encrypted", "state", StateCredentialsPrepared.String())
	return url.Values{
		"user_id":     {creds.UserID},
		"pw":          {""},
		"pw_enc":      {pwEnc},
		"encsymka":    {encsymka},
		"c_r_t":       {fields.CSRFToken},
		"user_id_enc": {""},
	}, nil
}

func (a *Authenticator) submit(ctx context.Context, sess *transport.Session, desc service.Descriptor, fields htmlscan.LoginPageFields, form url.Values, log logr.Logger) (*transport.Page, error) {
	action := transport.ResolveURL(transport.Origin(desc.LoginURL)+"/", fields.FormAction)
	headers := map[string]string{
		"Origin":                    transport.Origin(desc.LoginURL),
		"Referer":                   desc.LoginURL,
		"Upgrade-Insecure-Requests": "1",
	}

	page, err := sess.PostForm(ctx, action, form, headers, sess.Timeouts().Login)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("credentials submitted", "state", StateSubmitted.String(), "url", page.URL, "status", page.Status)
	return page, nil
}

// followRedirects performs the navigations a browser's scripts would: an
// auto-submitting form is posted, a location assignment is followed. It
// stops at the target portal, when no script step is found, or after
// maxRedirects steps.
func (a *Authenticator) followRedirects(ctx context.Context, sess *transport.Session, desc service.Descriptor, page *transport.Page, log logr.Logger) (*transport.Page, error) {
	for i := 0; i < a.maxRedirects; i++ {
		if desc.Reached(page.URL) {
			break
		}

		if htmlscan.HasAutoSubmitScript(page.Body) {
			action, fields := htmlscan.ExtractForm(page.Body)
			if action != "" && len(fields) > 0 {
				target := transport.ResolveURL(page.URL, action)
				headers := map[string]string{
					"Origin":  transport.Origin(page.URL),
					"Referer": page.URL,
				}
				log.V(1).Info("posting auto-submit form", "state", StateRedirecting.String(), "step", i+1, "url", target)

				next, err := sess.PostForm(ctx, target, fields, headers, sess.Timeouts().Login)
				if err != nil {
					return nil, err
				}
				page = next
				continue
			}
		}

		if ref := htmlscan.ExtractJSRedirect(page.Body); ref != "" {
			target := transport.ResolveURL(page.URL, ref)
			log.V(1).Info("following script redirect", "state", StateRedirecting.String(), "step", i+1, "url", target)

			next, err := sess.Get(ctx, target, sess.Timeouts().Login)
			if err != nil {
				return nil, err
			}
			page = next
			continue
		}

		break
	}
	return page, nil
}

func (a *Authenticator) validate(desc service.Descriptor, page *transport.Page, log logr.Logger) error {
	reached := desc.Reached(page.URL)
	loginForm := htmlscan.HasLoginForm(page.Body)
	logout := htmlscan.HasLogoutAffordance(page.Body)
	log.V(1).Info("validating login result", "state", StateValidated.String(), "url", page.URL,
		"reached", reached, "loginForm", loginForm, "logout", logout)

	switch Evaluate(reached, loginForm, logout) {
	case VerdictSuccess:
		return nil
	case VerdictRejected:
		return autherr.InvalidCredentials(htmlscan.ExtractErrorMessage(page.Body), desc.Key)
	default:
		return autherr.Unknown("login result could not be determined", nil)
	}
}

// IsSessionValid probes the service's landing page with sess. Any failure
// to decide counts as invalid.
func (a *Authenticator) IsSessionValid(ctx context.Context, sess *transport.Session, serviceKey string) bool {
	if sess == nil {
		return false
	}
	desc, err := a.registry.Lookup(serviceKey)
	if err != nil {
		return false
	}

	page, err := sess.Get(ctx, desc.CheckURL(), sess.Timeouts().Default)
	if err != nil {
		a.log.V(1).Info("session probe failed", "service", serviceKey, "error", err.Error())
		return false
	}
	if page.Status >= 400 {
		return false
	}

	switch {
	case htmlscan.HasLogoutAffordance(page.Body):
		return true
	case htmlscan.HasLoginForm(page.Body):
		return false
	default:
		return desc.Reached(page.URL)
	}
}
