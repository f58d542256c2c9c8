package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

const dayHeadingFormat = "Monday, 2 January 2006"

// Render produces the day-grouped archive body for a batch of messages
// (ascending by ID). A day heading precedes the first message of each
// calendar day; "---" separates distinct days, never messages within one.
// The author label is written once per run of consecutive same-author
// messages; continuations carry only a bracketed timestamp. Author runs
// reset at day boundaries. Days are rendered in UTC so merges of the same
// archive are deterministic across machines.
func Render(msgs []export.Message) string {
	var b strings.Builder
	var day, author string

	for _, m := range msgs {
		t := m.Timestamp.UTC()
		d := t.Format("2006-01-02")
		if d != day {
			if day != "" {
				b.WriteString("---\n\n")
			}
			fmt.Fprintf(&b, "## %s\n\n", t.Format(dayHeadingFormat))
			day = d
			author = ""
		}

		ts := t.Format(time.RFC3339)
		if m.Author != author {
			fmt.Fprintf(&b, "**%s** [%s]:\n", m.Author, ts)
			author = m.Author
		} else {
			fmt.Fprintf(&b, "*[%s]:*\n", ts)
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}
