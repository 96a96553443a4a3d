package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidScopeToken(t *testing.T) {
	valid := []string{
		"a",
		"openid",
		"read:user",
		"User.Read",
		"offline_access",
		"https://www.googleapis.com/auth/userinfo.email",
		strings.Repeat("x", 256),
	}
	for _, s := range valid {
		assert.True(t, ValidScopeToken(s), "scope %q", s)
	}

	invalid := []string{
		"",
		"read write", // two tokens in one entry
		`say"cheese`,
		`back\slash`,
		"tab\there",
		"búzios", // non-ASCII
	}
	for _, s := range invalid {
		assert.False(t, ValidScopeToken(s), "scope %q", s)
	}
}
