// Package scanner matches request text against known malicious-content
// signatures. It is heuristic defense-in-depth, not a parser: false
// positives are an accepted cost for catching known attack shapes cheaply.
package scanner

import "regexp"

type signatureGroup struct {
	name     string
	patterns []*regexp.Regexp
}

// Groups are evaluated in order and scanning short-circuits on the first
// matching pattern.
var groups = []signatureGroup{
	{
		name: "sql_injection",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|create|alter|exec|execute|union)\b`),
			regexp.MustCompile(`(?i)('|%27)\s*(or|and)\b`),
			regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
			regexp.MustCompile(`--`),
		},
	},
	{
		name: "xss",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script`),
			regexp.MustCompile(`(?i)javascript:`),
			regexp.MustCompile(`(?i)\bon\w+\s*=`),
			regexp.MustCompile(`(?i)<(iframe|object|embed|link|meta)\b`),
		},
	},
	{
		name: "path_traversal",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\.\./`),
			regexp.MustCompile(`\.\.\\`),
			regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)`),
			regexp.MustCompile(`(?i)\.\.(%2f|%5c)`),
		},
	},
	{
		name: "template_injection",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\$\{`),
			regexp.MustCompile(`<%`),
			regexp.MustCompile(`%>`),
			regexp.MustCompile(`\{\{`),
			regexp.MustCompile(`\}\}`),
		},
	},
	{
		name: "ssrf_scheme",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(file|ftp|ldap|dict|gopher)://`),
		},
	},
	{
		name: "command_injection",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(cmd|powershell|bash|sh|exec|system)\b`),
		},
	},
}

// Match reports whether text contains a known malicious signature and, if
// so, the name of the signature group that matched. Empty input never
// matches.
func Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	for _, group := range groups {
		for _, pattern := range group.patterns {
			if pattern.MatchString(text) {
				return group.name, true
			}
		}
	}

	return "", false
}

// Scan reports whether text contains a known malicious signature.
func Scan(text string) bool {
	_, matched := Match(text)
	return matched
}
