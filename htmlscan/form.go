package htmlscan

import (
	"net/url"
	"regexp"
)

var (
	formActionRe = regexp.MustCompile(`<form[^>]*action=["']([^"']+)["']`)
	inputRe      = regexp.MustCompile(`<input[^>]*name=["']([^"']+)["'][^>]*value=["']([^"']*)["']|<input[^>]*value=["']([^"']*)["'][^>]*name=["']([^"']+)["']`)

	csrfRes = []*regexp.Regexp{
		regexp.MustCompile(`meta[^>]*_csrf[^>]*content="([^"]+)"`),
		regexp.MustCompile(`X-CSRF-TOKEN["']?\s*:\s*["']([^"']+)["']`),
		regexp.MustCompile(`name="_csrf"\s+value="([^"]+)"`),
		regexp.MustCompile(`value="([^"]+)"[^>]*name="_csrf"`),
	}
)

// ExtractForm returns the first form's action and the named inputs on the
// page. An empty action means no form was found.
func ExtractForm(page string) (string, url.Values) {
	m := formActionRe.FindStringSubmatch(page)
	if m == nil {
		return "", nil
	}
	action := m[1]

	fields := url.Values{}
	for _, im := range inputRe.FindAllStringSubmatch(page, -1) {
		switch {
		case im[1] != "":
			fields.Set(im[1], im[2])
		case im[4] != "":
			fields.Set(im[4], im[3])
		}
	}
	if len(fields) > 0 {
		return action, fields
	}

	inForm := false
	forEachTag(page, func(t tag) bool {
		switch {
		case t.name == "form" && !t.end:
			inForm = true
		case t.name == "form" && t.end:
			return false
		case inForm && t.name == "input":
			if name := t.attr("name"); name != "" {
				fields.Set(name, t.attr("value"))
			}
		}
		return true
	})
	return action, fields
}

// ExtractCSRFToken finds the portal's _csrf token in a meta tag, a script
// header assignment or a hidden input.
func ExtractCSRFToken(page string) string {
	for _, re := range csrfRes {
		if m := re.FindStringSubmatch(page); m != nil {
			return m[1]
		}
	}
	return ""
}
