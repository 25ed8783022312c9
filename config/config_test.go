package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/mjuauth/service"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Cache.SessionTTL.Std())
	assert.Equal(t, 20*time.Minute, cfg.Cache.DataTTL.Std())
}

func TestLoadYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/mjuauth.yaml", `
server:
  port: 9000
  workers: 2
cache:
  session_ttl: 5m
timeouts:
  login: 20s
login:
  max_redirects: 5
services:
  - key: lms
    name: LMS (staging)
    login_url: https://sso.mju.ac.kr/sso/auth?client_id=lms-staging
    success_url: https://lms-staging.mju.ac.kr/ilos/main/main_form.acl
  - key: cafe
    name: Cafe
    login_url: https://sso.mju.ac.kr/sso/auth?client_id=cafe
    success_domain: cafe.mju.ac.kr
`)

	cfg, err := Load(fs, "/etc/mjuauth.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 2, cfg.Server.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SessionTTL.Std())
	assert.Equal(t, 20*time.Minute, cfg.Cache.DataTTL.Std(), "unset fields keep defaults")
	assert.Equal(t, 5, cfg.Login.MaxRedirects)

	timeouts := cfg.TransportTimeouts()
	assert.Equal(t, 20*time.Second, timeouts.Login)
	assert.Equal(t, 10*time.Second, timeouts.Default)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	lms, err := reg.Lookup(service.LMS)
	require.NoError(t, err)
	assert.Equal(t, "LMS (staging)", lms.Name)
	_, err = reg.Lookup("cafe")
	assert.NoError(t, err)
	_, err = reg.Lookup(service.MSI)
	assert.NoError(t, err, "built-in services survive overrides")
}

func TestLoadTOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "mjuauth.toml", `
[server]
host = "127.0.0.1"
port = 8080

[rate_limit]
max_failures = 3
lockout = "1h"

[msi]
home = "https://msi.example.test/"
`)

	cfg, err := Load(fs, "mjuauth.toml")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, 3, cfg.RateLimit.MaxFailures)
	assert.Equal(t, time.Hour, cfg.RateLimit.Lockout.Std())
	assert.Equal(t, DefaultFailWindow, cfg.RateLimit.Window.Std())
	assert.Equal(t, "https://msi.example.test/", cfg.MSI.Home)
	assert.Equal(t, service.DefaultMSIEndpoints().ChangeLog, cfg.MSI.ChangeLog)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.json", `{}`)
	writeFile(t, fs, "bad.yaml", "server: [")
	writeFile(t, fs, "dur.yaml", "cache:\n  session_ttl: soon\n")
	writeFile(t, fs, "redirects.yaml", "login:\n  max_redirects: 11\n")
	writeFile(t, fs, "svc.yaml", "services:\n  - key: x\n")

	tests := []struct {
		name string
		path string
	}{
		{"Missing", "nope.yaml"},
		{"Extension", "c.json"},
		{"Syntax", "bad.yaml"},
		{"Duration", "dur.yaml"},
		{"Redirects", "redirects.yaml"},
		{"Service", "svc.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fs, tt.path)
			assert.Error(t, err)
		})
	}

	_, err := Load(fs, "c.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Server.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Timeouts.Login = Duration(-time.Second)
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 90s ")))
	assert.Equal(t, 90*time.Second, d.Std())

	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}
