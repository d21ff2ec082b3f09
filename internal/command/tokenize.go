package command

import "github.com/google/shlex"

// tokenize splits raw shell-style input into words, honoring single and
// double quoting the way a POSIX shell would — the split step behind
// parse_args(raw_string) in spec.md §4.9.
func tokenize(raw string) ([]string, error) {
	return shlex.Split(raw)
}
