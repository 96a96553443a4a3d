package password

import (
	"fmt"
	"unicode"
)

// Policy is the acceptance rule set applied before a password is hashed
// for the directory. The zero value accepts anything.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Validate checks plain against the policy. On failure, reasons lists
// every violated rule in operator-readable form.
func (p Policy) Validate(plain string) (ok bool, reasons []string) {
	if n := len([]rune(plain)); n < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("shorter than %d characters", p.MinLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range plain {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
		symbol = symbol || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}

	rules := []struct {
		required bool
		met      bool
		reason   string
	}{
		{p.RequireUpper, upper, "no uppercase letter"},
		{p.RequireLower, lower, "no lowercase letter"},
		{p.RequireDigit, digit, "no digit"},
		{p.RequireSymbol, symbol, "no symbol"},
	}
	for _, rule := range rules {
		if rule.required && !rule.met {
			reasons = append(reasons, rule.reason)
		}
	}
	return len(reasons) == 0, reasons
}
