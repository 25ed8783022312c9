// Package service holds the table of portals that sit behind the SSO gateway
// and the predicate that tells whether a login reached one of them.
package service

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/jmcleod/mjuauth/autherr"
)

var (
	ErrEmptyKey         = errors.New("service: key is empty")
	ErrEmptyLoginURL    = errors.New("service: login url is empty")
	ErrNoSuccessMarker  = errors.New("service: success url or success domain is required")
	ErrDuplicateService = errors.New("service: service already registered")
)

// Descriptor describes one downstream portal.
type Descriptor struct {
	Key  string `yaml:"key" toml:"key" json:"key"`
	Name string `yaml:"name" toml:"name" json:"name"`
	// LoginURL is the SSO authorize URL that starts the flow for this portal.
	LoginURL string `yaml:"login_url" toml:"login_url" json:"login_url"`
	// SuccessURL, when set, must be matched by the final URL (host and path).
	SuccessURL string `yaml:"success_url" toml:"success_url" json:"success_url,omitempty"`
	// SuccessDomain is used when SuccessURL is empty; the final host must
	// contain it.
	SuccessDomain string `yaml:"success_domain" toml:"success_domain" json:"success_domain,omitempty"`
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Key) == "" {
		return ErrEmptyKey
	}
	if strings.TrimSpace(d.LoginURL) == "" {
		return ErrEmptyLoginURL
	}
	if d.SuccessURL == "" && d.SuccessDomain == "" {
		return ErrNoSuccessMarker
	}
	return nil
}

// Reached reports whether rawURL is the portal's landing page: same host and
// same path (ignoring one trailing slash) as SuccessURL, or a host containing
// SuccessDomain.
func (d Descriptor) Reached(rawURL string) bool {
	got, err := url.Parse(rawURL)
	if err != nil || got.Host == "" {
		return false
	}

	if d.SuccessURL == "" {
		return d.SuccessDomain != "" && strings.Contains(strings.ToLower(got.Host), strings.ToLower(d.SuccessDomain))
	}

	want, err := url.Parse(d.SuccessURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(got.Host, want.Host) {
		return false
	}
	return strings.TrimSuffix(got.Path, "/") == strings.TrimSuffix(want.Path, "/")
}

// CheckURL is the page fetched to probe whether a session is still valid.
func (d Descriptor) CheckURL() string {
	if d.SuccessURL != "" {
		return d.SuccessURL
	}
	return "https://" + d.SuccessDomain + "/"
}

// Registry is an immutable key → Descriptor table.
type Registry struct {
	services map[string]Descriptor
}

func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{services: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.services[d.Key]; exists {
			return nil, ErrDuplicateService
		}
		r.services[d.Key] = d
	}
	return r, nil
}

// With returns a copy of r where each of descs is added or replaces the entry
// with the same key.
func (r *Registry) With(descs ...Descriptor) (*Registry, error) {
	out := &Registry{services: make(map[string]Descriptor, len(r.services)+len(descs))}
	for k, d := range r.services {
		out.services[k] = d
	}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		out.services[d.Key] = d
	}
	return out, nil
}

// Lookup returns the descriptor for key or a service_not_found error listing
// the known keys.
func (r *Registry) Lookup(key string) (Descriptor, error) {
	d, ok := r.services[key]
	if !ok {
		return Descriptor{}, autherr.ServiceNotFound(key, r.Keys())
	}
	return d, nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns the descriptors ordered by key.
func (r *Registry) All() []Descriptor {
	keys := r.Keys()
	out := make([]Descriptor, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.services[k])
	}
	return out
}
