package oauth

import (
	"context"
	"testing"
)

type stubDescriptor struct {
	id     string
	scopes []string
}

func (s stubDescriptor) ID() string                  { return s.id }
func (s stubDescriptor) AuthorizeURL(Config) string  { return "https://idp.example/authorize" }
func (s stubDescriptor) TokenURL(Config) string      { return "https://idp.example/token" }
func (s stubDescriptor) DefaultScopes() []string     { return s.scopes }
func (s stubDescriptor) ExchangeCode(context.Context, string, string, string, Config) (*Token, error) {
	return nil, nil
}
func (s stubDescriptor) FetchUser(context.Context, string) (*User, error) { return nil, nil }

func TestScopeString(t *testing.T) {
	d := stubDescriptor{id: "stub", scopes: []string{"openid", "email"}}

	tests := []struct {
		name   string
		extras []string
		want   string
	}{
		{"defaults_only", nil, "openid email"},
		{"empty_extras", []string{}, "openid email"},
		{"extras_appended_in_order", []string{"calendar", "contacts"}, "openid email calendar contacts"},
		{"duplicates_kept", []string{"email"}, "openid email email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopeString(d, Config{Scopes: tt.extras})
			if got != tt.want {
				t.Fatalf("ScopeString: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	a := stubDescriptor{id: "alpha"}
	b := stubDescriptor{id: "beta"}
	r := NewRegistry(b, a)

	if _, ok := r.Get("alpha"); !ok {
		t.Fatalf("alpha not found")
	}
	if _, ok := r.Get("gamma"); ok {
		t.Fatalf("unexpected gamma")
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Fatalf("IDs: got %v", ids)
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Fatalf("empty string should map to nil")
	}
	if p := StringPtr("x"); p == nil || *p != "x" {
		t.Fatalf("non-empty string should round-trip")
	}
}
