package util

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pathSeparatorStandIn replaces '/' before matching. doublestar treats '/' as
// a path separator that '*' and '?' never cross, while permission arguments
// are flat strings where wildcards must match '/' too.
const pathSeparatorStandIn = "\uE000"

// literalMeta escapes the doublestar syntax shell globs do not have: backslash
// escapes and brace alternation.
var literalMeta = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)

// MatchGlob reports whether name matches the shell-style pattern. '*', '?'
// and bracket classes are supported and all of them may match '/'. Braces
// and backslashes are literal characters. A malformed pattern matches
// nothing.
func MatchGlob(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	flatPattern := strings.ReplaceAll(literalMeta.Replace(pattern), "/", pathSeparatorStandIn)
	flatName := strings.ReplaceAll(name, "/", pathSeparatorStandIn)
	matched, err := doublestar.Match(flatPattern, flatName)
	if err != nil {
		return false
	}
	return matched
}

// SplitGrantArgument splits a grant argument of the form
// "<permission glob>/<argument glob>" on its first '/'. A missing argument
// glob defaults to "*".
func SplitGrantArgument(argument string) (permissionGlob, argumentGlob string) {
	permissionGlob, argumentGlob, found := strings.Cut(argument, "/")
	if !found {
		return permissionGlob, "*"
	}
	return permissionGlob, argumentGlob
}
