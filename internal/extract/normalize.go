package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {3,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
)

// Normalize applies NFKC, collapses noisy whitespace and drops ruler lines.
// Keeps line breaks and two-space column gaps, which the detectors rely on.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reTabs.ReplaceAllString(s, "  ")
	s = reMultiSpace.ReplaceAllString(s, "  ")
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// WordCount counts whitespace separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
