package shell

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// globChars are the characters that make a word a candidate pattern,
// per spec.md §4.3 ("*", "?", "[").
const globChars = "*?["

// ExpandGlobs replaces each argument containing a glob metacharacter
// with the sorted list of matching pathnames. A non-matching pattern is
// kept literal (nullglob off). Tilde at the start of a word is expanded
// to HOME before matching, but only for words that contain a glob
// metacharacter — a bare "~" argument is left untouched, matching the
// teacher's delegation of tilde handling to the pattern matcher only
// for glob-bearing words (spec.md §9).
func ExpandGlobs(args []string) []string {
	expanded := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.ContainsAny(arg, globChars) {
			expanded = append(expanded, arg)
			continue
		}

		pattern := expandTilde(arg)
		matches, err := matchPattern(pattern)
		if err != nil || len(matches) == 0 {
			// No match, or the matcher itself failed: keep the
			// original pattern literally (spec.md §4.3).
			expanded = append(expanded, arg)
			continue
		}
		sort.Strings(matches)
		expanded = append(expanded, matches...)
	}
	return expanded
}

// expandTilde expands a leading "~" to HOME. Left literal when HOME is
// unset.
func expandTilde(arg string) string {
	if !strings.HasPrefix(arg, "~") {
		return arg
	}
	home := os.Getenv("HOME")
	if home == "" {
		return arg
	}
	if arg == "~" {
		return home
	}
	if strings.HasPrefix(arg, "~/") {
		return filepath.Join(home, arg[2:])
	}
	return arg
}

// matchPattern resolves pattern's directory portion, reads its real
// entries, and matches the base pattern against each one with
// doublestar — the same matcher the teacher uses against its virtual
// file cache (internal/api.FileCache.MatchGlob), repointed here at
// os.ReadDir so it walks the real filesystem the child processes will
// see.
func matchPattern(pattern string) ([]string, error) {
	dir := filepath.Dir(pattern)
	base := filepath.Base(pattern)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, e := range entries {
		// Traditional glob(3) semantics, which spec.md §4.3 says this
		// mirrors: a leading dot in a filename is only matched by a
		// pattern that itself starts with a dot.
		if strings.HasPrefix(e.Name(), ".") && !strings.HasPrefix(base, ".") {
			continue
		}

		ok, err := doublestar.Match(base, e.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if dir == "." && !strings.HasPrefix(pattern, "./") {
			matches = append(matches, e.Name())
		} else {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	return matches, nil
}
