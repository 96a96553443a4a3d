// Package validation holds small input validators shared across the module.
package validation

import "regexp"

// scopeTokenRe matches one OAuth scope token: printable ASCII minus space,
// double quote and backslash (RFC 6749 section 3.3).
var scopeTokenRe = regexp.MustCompile(`^[\x21\x23-\x5B\x5D-\x7E]+$`)

// ValidScopeToken reports whether s is a single well-formed OAuth scope
// token. A string holding several space-separated scopes fails on purpose:
// scopes are configured one per entry and joined at request time.
func ValidScopeToken(s string) bool {
	return scopeTokenRe.MatchString(s)
}
