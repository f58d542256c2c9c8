package export

import (
	"regexp"
	"strings"
)

// The Teams message body is an HTML fragment. Normalize converts the small
// set of constructs we care about to a plain-text analog and throws the rest
// away. It never fails: unrecognized input degrades to plain text.

var (
	lineBreakRe  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	boldRe       = regexp.MustCompile(`(?is)<(?:b|strong)(?:\s[^>]*)?>(.*?)</(?:b|strong)>`)
	emphasisRe   = regexp.MustCompile(`(?is)<(?:i|em)(?:\s[^>]*)?>(.*?)</(?:i|em)>`)
	codeRe       = regexp.MustCompile("(?is)<code(?:\\s[^>]*)?>(.*?)</code>")
	linkRe       = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	blockquoteRe = regexp.MustCompile(`(?is)<blockquote(?:\s[^>]*)?>(.*?)</blockquote>`)
	anyTagRe     = regexp.MustCompile(`<[^>]*>`)
	blankRunRe   = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)
)

// entity replacements, applied in order. &amp; goes last so that already
// decoded ampersands are not expanded a second time.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&amp;", "&",
)

// Normalize converts a message's rich content into plain structured text.
// It is a pure transform with no failure mode.
func Normalize(raw string) string {
	s := lineBreakRe.ReplaceAllString(raw, "\n")

	s = blockquoteRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := blockquoteRe.FindStringSubmatch(m)[1]
		lines := strings.Split(strings.TrimSpace(inner), "\n")
		for i, l := range lines {
			lines[i] = "> " + strings.TrimSpace(l)
		}
		return "\n" + strings.Join(lines, "\n") + "\n"
	})

	s = boldRe.ReplaceAllString(s, "**$1**")
	s = emphasisRe.ReplaceAllString(s, "_${1}_")
	s = codeRe.ReplaceAllString(s, "`$1`")
	s = linkRe.ReplaceAllString(s, "[$2]($1)")

	// Everything else is markup we don't carry over.
	s = anyTagRe.ReplaceAllString(s, "")

	s = entityReplacer.Replace(s)

	// Three or more consecutive blank lines collapse to exactly one.
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
