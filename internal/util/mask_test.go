package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jane.doe@example.com", "j…@e….com"},
		{"JANE@EXAMPLE.COM", "j…@e….com"},
		{"a@b.co", "a@b.co"},
		{"x@sub.example.org", "x@s….example.org"},
		{"not-an-email", "n…l"},
		{"ab", "***"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskEmail(tc.in), "input %q", tc.in)
	}
}

func TestMaskToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5Qx8tYz0AbCdEfGh", "5Qx8tY…"},
		{"12345678", "123456…"},
		{"short", "***"},
		{"  padded-token  ", "padded…"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskToken(tc.in), "input %q", tc.in)
	}
}
