package student

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/go-logr/logr"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/htmlscan"
	"github.com/jmcleod/mjuauth/internal/util"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/transport"
)

const (
	pgmStudentCard = "W_SUD005"
	pgmChangeLog   = "W_SUD020"
)

// Op is a fetch run against a logged-in session.
type Op[T any] func(ctx context.Context, sess *transport.Session) (T, error)

// Fetcher reads records from the MSI portal.
type Fetcher struct {
	endpoints service.MSIEndpoints
	ssoHost   string
	log       logr.Logger
}

type Option func(*Fetcher)

func WithLogger(logger logr.Logger) Option {
	return func(f *Fetcher) {
		f.log = logger
	}
}

// WithSSOHost sets the host whose appearance in a response URL means the
// portal bounced the session back to the login gateway.
func WithSSOHost(host string) Option {
	return func(f *Fetcher) {
		f.ssoHost = strings.ToLower(host)
	}
}

func NewFetcher(endpoints service.MSIEndpoints, opts ...Option) *Fetcher {
	f := &Fetcher{
		endpoints: endpoints,
		ssoHost:   service.SSOHost,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log.GetSink() == nil {
		f.log = logr.Discard()
	}
	return f
}

// FetchCard returns the student card operation. password answers the
// portal's second password check when it asks for one.
func (f *Fetcher) FetchCard(password string) Op[*Card] {
	return func(ctx context.Context, sess *transport.Session) (*Card, error) {
		return f.card(ctx, sess, password)
	}
}

// FetchChangeLog returns the enrollment change log operation.
func (f *Fetcher) FetchChangeLog() Op[*ChangeLog] {
	return f.changeLog
}

// FetchBasicInfo returns the main page summary operation.
func (f *Fetcher) FetchBasicInfo() Op[*BasicInfo] {
	return f.basicInfo
}

func (f *Fetcher) basicInfo(ctx context.Context, sess *transport.Session) (*BasicInfo, error) {
	if err := requireMSI(sess); err != nil {
		return nil, err
	}

	page, err := f.home(ctx, sess)
	if err != nil {
		return nil, err
	}

	cells, ok, err := htmlscan.ExtractInfoCells(page.Body)
	if err != nil || !ok {
		return nil, autherr.Parsing("summary card not found on portal home", "main-user-info")
	}
	info := basicInfoFromCells(cells)
	if info.Department == "" {
		return nil, autherr.Parsing("department missing from summary card", "department")
	}

	f.log.V(1).Info("basic info fetched")
	return info, nil
}

func (f *Fetcher) card(ctx context.Context, sess *transport.Session, password string) (*Card, error) {
	if err := requireMSI(sess); err != nil {
		return nil, err
	}

	csrf, err := f.csrfToken(ctx, sess)
	if err != nil {
		return nil, err
	}

	form := recordForm(pgmStudentCard, csrf)
	form.Set("userFlag", "1")
	page, err := sess.PostForm(ctx, f.endpoints.StudentCard, form, f.headers(f.endpoints.Home, csrf), sess.Timeouts().PageAccess)
	if err != nil {
		return nil, err
	}

	if passwordRequired(page.Body) {
		f.log.V(1).Info("second password check requested")
		page, err = f.verifyPassword(ctx, sess, page, csrf, password)
		if err != nil {
			return nil, err
		}
		page, err = f.followVerifyRedirect(ctx, sess, page, csrf)
		if err != nil {
			return nil, err
		}
		if passwordRequired(page.Body) {
			return nil, autherr.InvalidCredentials("second password check failed", service.MSI)
		}
	}

	items, err := htmlscan.ExtractTableItems(page.Body)
	if err != nil {
		return nil, autherr.Parsing("student card page could not be parsed", "student_card")
	}
	card := cardFromItems(items, htmlscan.ExtractDataImage(page.Body))
	if card.Profile.StudentID == "" {
		return nil, autherr.Parsing("student id missing from student card page", "student_id")
	}

	f.log.V(1).Info("student card fetched", "student", util.Mask(card.Profile.StudentID))
	return card, nil
}

func (f *Fetcher) changeLog(ctx context.Context, sess *transport.Session) (*ChangeLog, error) {
	if err := requireMSI(sess); err != nil {
		return nil, err
	}

	csrf, err := f.csrfToken(ctx, sess)
	if err != nil {
		return nil, err
	}

	page, err := sess.PostForm(ctx, f.endpoints.ChangeLog, recordForm(pgmChangeLog, csrf), f.headers(f.endpoints.Home, csrf), sess.Timeouts().PageAccess)
	if err != nil {
		return nil, err
	}

	fields, err := htmlscan.ExtractTableFields(page.Body)
	if err != nil {
		return nil, autherr.Parsing("change log page could not be parsed", "student_changelog")
	}
	log := changeLogFromFields(fields)
	if log.StudentID == "" {
		return nil, autherr.Parsing("student id missing from change log page", "student_id")
	}

	f.log.V(1).Info("change log fetched", "student", util.Mask(log.StudentID))
	return log, nil
}

func requireMSI(sess *transport.Session) error {
	if sess == nil {
		return autherr.SessionNotExist("no session; log in first")
	}
	if current := sess.Service(); current != service.MSI {
		return autherr.InvalidServiceUsage(service.MSI, current)
	}
	return nil
}

// home loads the portal home page. Landing on the SSO host means the portal
// session has expired.
func (f *Fetcher) home(ctx context.Context, sess *transport.Session) (*transport.Page, error) {
	page, err := sess.Get(ctx, f.endpoints.Home, sess.Timeouts().Default)
	if err != nil {
		return nil, err
	}
	if strings.Contains(transport.Host(page.URL), f.ssoHost) {
		return nil, autherr.SessionExpired("portal session expired", page.URL)
	}
	return page, nil
}

func (f *Fetcher) csrfToken(ctx context.Context, sess *transport.Session) (string, error) {
	page, err := f.home(ctx, sess)
	if err != nil {
		return "", err
	}

	token := htmlscan.ExtractCSRFToken(page.Body)
	if token == "" {
		return "", autherr.Parsing("CSRF token not found on portal home", "csrf")
	}
	return token, nil
}

func (f *Fetcher) verifyPassword(ctx context.Context, sess *transport.Session, page *transport.Page, csrf, password string) (*transport.Page, error) {
	_, fields := htmlscan.ExtractForm(page.Body)
	original := fields.Get("originalurl")
	if original == "" {
		original = f.endpoints.StudentCard
	}

	form := url.Values{
		"originalurl": {original},
		"tfpassword":  {password},
		"_csrf":       {csrf},
	}
	return sess.PostForm(ctx, f.endpoints.PasswordVerify, form, f.headers(page.URL, csrf), sess.Timeouts().PageAccess)
}

// followVerifyRedirect posts the form the verification page uses to send
// the browser back to the student card. Pages without that form are
// returned unchanged.
func (f *Fetcher) followVerifyRedirect(ctx context.Context, sess *transport.Session, page *transport.Page, csrf string) (*transport.Page, error) {
	action, fields := htmlscan.ExtractForm(page.Body)
	if action == "" || !strings.Contains(action, endpointName(f.endpoints.StudentCard)) {
		return page, nil
	}
	if token := fields.Get("_csrf"); token != "" {
		csrf = token
	}

	target := transport.ResolveURL(page.URL, action)
	return sess.PostForm(ctx, target, url.Values{"_csrf": {csrf}}, f.headers(page.URL, csrf), sess.Timeouts().PageAccess)
}

func (f *Fetcher) headers(referer, csrf string) map[string]string {
	return map[string]string{
		"Origin":       transport.Origin(f.endpoints.Home),
		"Referer":      referer,
		"X-CSRF-TOKEN": csrf,
	}
}

func recordForm(pgmID, csrf string) url.Values {
	return url.Values{
		"sysdiv":    {"SCH"},
		"subsysdiv": {"SCH"},
		"folderdiv": {"101"},
		"pgmid":     {pgmID},
		"_csrf":     {csrf},
	}
}

func passwordRequired(page string) bool {
	return strings.Contains(page, "tfpassword") || strings.Contains(page, "verifyPW")
}

func endpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}
