package parser

import "regexp"

// The legacy orientation literal used square brackets:
// [..., rx, ry, rz]. The current grammar only accepts the
// parenthesized form, so old programs are rewritten before lexing.
// Plain bracket sequences are left alone: they are list literals in
// the current grammar.
var legacyOrientationPattern = regexp.MustCompile(
	`\[\s*\.\.\.\s*,\s*` +
		`((?:\w+\[\d+\]|[^,\]]+)),\s*` +
		`((?:\w+\[\d+\]|[^,\]]+)),\s*` +
		`((?:\w+\[\d+\]|[^,\]]+))` +
		`\s*\]`)

// MigrateLegacyPoses rewrites legacy bracket orientation literals to
// their parenthesized form.
func MigrateLegacyPoses(content string) string {
	return legacyOrientationPattern.ReplaceAllString(content, "(..., $1, $2, $3)")
}
