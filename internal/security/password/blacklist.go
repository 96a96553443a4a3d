package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist is a set of banned passwords loaded from a newline-separated
// file. Matching ignores case and surrounding whitespace. Loaded once and
// read-only afterwards.
type Blacklist struct {
	banned map[string]struct{}
}

// LoadBlacklist reads a blacklist file. An empty path yields an empty list,
// so callers need no special case when the flag is unset. Blank lines and
// "#" comments are skipped.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := &Blacklist{banned: make(map[string]struct{})}
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry := normalizeEntry(sc.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		bl.banned[entry] = struct{}{}
	}
	return bl, sc.Err()
}

// Contains reports whether pwd is banned. A nil receiver bans nothing.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, ok := b.banned[normalizeEntry(pwd)]
	return ok
}

func normalizeEntry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
