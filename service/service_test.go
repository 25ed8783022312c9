package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/mjuauth/autherr"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"intern", "ipp", "library", "lms", "main", "msi", "myicap", "portal", "ucheck"}, r.Keys())

	msi, err := r.Lookup(MSI)
	require.NoError(t, err)
	assert.Contains(t, msi.LoginURL, "client_id=msi")
	assert.Equal(t, "https://msi.mju.ac.kr/servlet/security/MySecurityStart", msi.CheckURL())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, autherr.ErrServiceNotFound)
	assert.Contains(t, err.Error(), "msi")
}

func TestReached(t *testing.T) {
	msi, err := Default().Lookup(MSI)
	require.NoError(t, err)
	library, err := Default().Lookup(Library)
	require.NoError(t, err)

	tests := []struct {
		name string
		desc Descriptor
		url  string
		want bool
	}{
		{"ExactMatch", msi, "https://msi.mju.ac.kr/servlet/security/MySecurityStart", true},
		{"TrailingSlash", msi, "https://msi.mju.ac.kr/servlet/security/MySecurityStart/", true},
		{"QueryIgnored", msi, "https://msi.mju.ac.kr/servlet/security/MySecurityStart?x=1", true},
		{"HostCase", msi, "https://MSI.mju.ac.kr/servlet/security/MySecurityStart", true},
		{"OtherPath", msi, "https://msi.mju.ac.kr/index_Myiweb.jsp", false},
		{"OtherHost", msi, "https://sso.mju.ac.kr/servlet/security/MySecurityStart", false},
		{"Garbage", msi, "::not a url", false},
		{"DomainMatch", library, "https://lib.mju.ac.kr/main", true},
		{"DomainMiss", library, "https://sso.mju.ac.kr/sso/auth", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.desc.Reached(tt.url))
		})
	}
}

func TestNewRegistryValidation(t *testing.T) {
	ok := Descriptor{Key: "a", LoginURL: "https://sso.example/auth", SuccessDomain: "a.example"}

	_, err := NewRegistry(ok, ok)
	assert.ErrorIs(t, err, ErrDuplicateService)

	_, err = NewRegistry(Descriptor{LoginURL: "x", SuccessDomain: "y"})
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewRegistry(Descriptor{Key: "a", SuccessDomain: "y"})
	assert.ErrorIs(t, err, ErrEmptyLoginURL)

	_, err = NewRegistry(Descriptor{Key: "a", LoginURL: "x"})
	assert.ErrorIs(t, err, ErrNoSuccessMarker)
}

func TestWithOverrides(t *testing.T) {
	base := Default()
	custom := Descriptor{Key: MSI, Name: "staging", LoginURL: "https://sso.test/auth", SuccessURL: "https://msi.test/home"}
	extra := Descriptor{Key: "test", LoginURL: "https://sso.test/auth", SuccessDomain: "test.example"}

	r, err := base.With(custom, extra)
	require.NoError(t, err)

	got, err := r.Lookup(MSI)
	require.NoError(t, err)
	assert.Equal(t, "staging", got.Name)
	assert.Contains(t, r.Keys(), "test")

	orig, err := base.Lookup(MSI)
	require.NoError(t, err)
	assert.NotEqual(t, "staging", orig.Name)
	assert.Len(t, r.All(), len(base.Keys())+1)
}
