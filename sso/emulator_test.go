package sso

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jmcleod/mjuauth/crypto"
	"github.com/jmcleod/mjuauth/service"
)

const rejectMessage = "ID 또는 비밀번호가 일치하지 않습니다."

// gateway emulates the SSO login page, the credential check and a portal
// reached through an auto-submit form and a script redirect.
type gateway struct {
	t        *testing.T
	srv      *httptest.Server
	priv     *rsa.PrivateKey
	userID   string
	password string

	mu         sync.Mutex
	logins     int
	timestamps []string
	headers    http.Header
	omitKey    bool
	keyLength  int
}

func newGateway(t *testing.T, userID, password string) *gateway {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	g := &gateway{t: t, priv: priv, userID: userID, password: password, keyLength: crypto.DefaultKeyLength}

	mux := http.NewServeMux()
	mux.HandleFunc("/sso/auth", g.loginPage)
	mux.HandleFunc("/sso/auth/process", g.process)
	mux.HandleFunc("/portal/sso_response", g.ssoResponse)
	mux.HandleFunc("/portal/home", g.home)
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *gateway) descriptor() service.Descriptor {
	return service.Descriptor{
		Key:        "test",
		Name:       "Test Portal",
		LoginURL:   g.srv.URL + "/sso/auth?client_id=test",
		SuccessURL: g.srv.URL + "/portal/home",
	}
}

func (g *gateway) registry() *service.Registry {
	r, err := service.NewRegistry(g.descriptor())
	if err != nil {
		g.t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func (g *gateway) loginCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logins
}

func (g *gateway) lastLogin() ([]string, http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.timestamps...), g.headers.Clone()
}

func (g *gateway) hidePublicKey() {
	g.mu.Lock()
	g.omitKey = true
	g.mu.Unlock()
}

func (g *gateway) publicKey() string {
	der, err := x509.MarshalPKIXPublicKey(&g.priv.PublicKey)
	if err != nil {
		g.t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func (g *gateway) renderLogin(w http.ResponseWriter, script string) {
	g.mu.Lock()
	omit := g.omitKey
	g.mu.Unlock()

	key := fmt.Sprintf(`<input type="hidden" value="%s" id="public-key">`, g.publicKey())
	if omit {
		key = ""
	}
	fmt.Fprintf(w, `<html><body>
<form id="signin-form" action="/sso/auth/process" method="post">
%s
<input type="hidden" value="crt-1" id="c_r_t">
<input type="password" id="input-password">
</form>%s</body></html>`, key, script)
}

func (g *gateway) loginPage(w http.ResponseWriter, r *http.Request) {
	g.renderLogin(w, "")
}

func (g *gateway) process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.logins++
	g.headers = r.Header.Clone()
	g.mu.Unlock()

	ok := g.checkCredentials(r)
	if !ok {
		g.renderLogin(w, fmt.Sprintf(`<script>alert('%s');</script>`, rejectMessage))
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "SSO_TOKEN", Value: "granted", Path: "/"})
	fmt.Fprint(w, `<html><body onLoad="document.forms[0].submit()">
<form name="f" action="/portal/sso_response" method="post">
<input type="hidden" name="code" value="auth-code">
</form></body></html>`)
}

func (g *gateway) checkCredentials(r *http.Request) bool {
	if r.PostForm.Get("c_r_t") != "crt-1" || r.PostForm.Get("user_id") != g.userID || r.PostForm.Get("pw") != "" {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(r.PostForm.Get("encsymka"))
	if err != nil {
		return false
	}
	envelope, err := rsa.DecryptPKCS1v15(nil, g.priv, raw)
	if err != nil {
		return false
	}
	keyString, timestamp, found := strings.Cut(string(envelope), ",")
	if !found {
		return false
	}
	g.mu.Lock()
	g.timestamps = append(g.timestamps, timestamp)
	g.mu.Unlock()

	key, err := crypto.DeriveSessionKey(keyString, g.keyLength)
	if err != nil {
		return false
	}
	password, err := crypto.DecryptWithAES(r.PostForm.Get("pw_enc"), key)
	if err != nil {
		return false
	}
	return password == g.password
}

func (g *gateway) ssoResponse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "auth-code" {
		http.Error(w, "bad code", http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, `<html><script>location.href = '/portal/home';</script></html>`)
}

func (g *gateway) home(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("SSO_TOKEN"); err != nil {
		g.renderLogin(w, "")
		return
	}
	fmt.Fprint(w, `<html><body><a href="/logout">로그아웃</a></body></html>`)
}
