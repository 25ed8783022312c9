// Package htmlscan extracts the handful of values the login flow and the
// record fetchers need from server-rendered pages. It is a compatibility
// shim for what a browser would learn by running the page's scripts: fast
// regular expressions first, with an HTML tokenizer as the fallback.
package htmlscan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jmcleod/mjuauth/internal/util"
)

const (
	FieldPublicKey = "public-key"
	FieldCSRF      = "c_r_t"
	FieldForm      = "signin-form"
)

var (
	publicKeyRe  = regexp.MustCompile(`value=["']([^"']+)["'][^>]*id=["']public-key["']`)
	loginCSRFRe  = regexp.MustCompile(`value=["']([^"']+)["'][^>]*id=["']c_r_t["']`)
	signinFormRe = regexp.MustCompile(`<form[^>]*id=["']signin-form["'][^>]*action=["']([^"']+)["']`)

	errorMsgRe = regexp.MustCompile(`var\s+errorMsg\s*=\s*"([^"]+)"`)
	alertRe    = regexp.MustCompile(`alert\(['"](.+?)['"]\)`)

	jsRedirectRes = []*regexp.Regexp{
		regexp.MustCompile(`location\.href\s*=\s*['"]([^'"]+)['"]`),
		regexp.MustCompile(`location\.replace\(\s*['"]([^'"]+)['"]\s*\)`),
		regexp.MustCompile(`window\.location\s*=\s*['"]([^'"]+)['"]`),
	}
)

// LoginPageFields are the three values scraped from the SSO login page.
type LoginPageFields struct {
	PublicKey  string
	CSRFToken  string
	FormAction string
}

// Missing names the first absent field, or "" when all are present.
func (f LoginPageFields) Missing() string {
	switch {
	case f.PublicKey == "":
		return FieldPublicKey
	case f.CSRFToken == "":
		return FieldCSRF
	case f.FormAction == "":
		return FieldForm
	}
	return ""
}

// ExtractLoginPageFields finds the RSA public key, the c_r_t token and the
// signin form action.
func ExtractLoginPageFields(page string) LoginPageFields {
	var f LoginPageFields
	if m := publicKeyRe.FindStringSubmatch(page); m != nil {
		f.PublicKey = m[1]
	}
	if m := loginCSRFRe.FindStringSubmatch(page); m != nil {
		f.CSRFToken = m[1]
	}
	if m := signinFormRe.FindStringSubmatch(page); m != nil {
		f.FormAction = m[1]
	}
	if f.Missing() == "" {
		return f
	}

	forEachTag(page, func(t tag) bool {
		switch {
		case t.name == "input" && t.attr("id") == FieldPublicKey && f.PublicKey == "":
			f.PublicKey = t.attr("value")
		case t.name == "input" && t.attr("id") == FieldCSRF && f.CSRFToken == "":
			f.CSRFToken = t.attr("value")
		case t.name == "form" && t.attr("id") == FieldForm && f.FormAction == "":
			f.FormAction = t.attr("action")
		}
		return f.Missing() != ""
	})
	return f
}

// HasLoginForm reports whether the page still shows the SSO password form.
func HasLoginForm(page string) bool {
	return strings.Contains(page, "signin-form") && strings.Contains(page, "input-password")
}

// HasLogoutAffordance reports whether the page offers a logout control.
func HasLogoutAffordance(page string) bool {
	return strings.Contains(page, "로그아웃") || strings.Contains(strings.ToLower(page), "logout")
}

// HasAutoSubmitScript detects an intermediate page that posts itself on
// load.
func HasAutoSubmitScript(page string) bool {
	return strings.Contains(page, "onLoad=") &&
		(strings.Contains(page, "submit()") || strings.Contains(page, "doLogin()"))
}

// ExtractJSRedirect returns the target of a script-driven redirect. The
// result may be relative.
func ExtractJSRedirect(page string) string {
	for _, re := range jsRedirectRes {
		if m := re.FindStringSubmatch(page); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractErrorMessage returns the message the login page would show,
// preferring an errorMsg variable over an alert() call.
func ExtractErrorMessage(page string) string {
	var raw string
	if m := errorMsgRe.FindStringSubmatch(page); m != nil {
		raw = m[1]
	} else if m := alertRe.FindStringSubmatch(page); m != nil {
		raw = m[1]
	} else {
		return ""
	}
	return util.Normalize(strings.TrimSpace(unescapeJS(raw)))
}

// unescapeJS decodes JavaScript string escapes. Unknown escapes are kept
// verbatim.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		if s[0] != '\\' || len(s) == 1 {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		if s[1] == '\'' || s[1] == '"' {
			b.WriteByte(s[1])
			s = s[2:]
			continue
		}
		r, _, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = tail
	}
	return b.String()
}
