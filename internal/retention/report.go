package retention

import (
	"fmt"
	"strings"
	"time"
)

// topN bounds the oldest-archive listing in the formatted report.
const topN = 5

const caveat = "Note: this analysis cannot distinguish UI-level visibility truncation " +
	"from an organization's configured deletion policy. Only data that was " +
	"visible in the client at export time is available."

// Format renders the report as human-readable text. It is a pure,
// deterministic projection of the report structure.
func (r *Report) Format() string {
	if r.ArchivesDated == 0 {
		return "No archives with parseable message dates found.\n"
	}

	var b strings.Builder
	b.WriteString("Archive visibility report\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "Archives scanned: %d (%d with parseable dates)\n\n", r.ArchivesScanned, r.ArchivesDated)

	fmt.Fprintf(&b, "Oldest message: %s  (%s)\n", r.OldestSeen.UTC().Format(time.RFC3339), r.OldestArchive)
	fmt.Fprintf(&b, "Newest message: %s  (%s)\n", r.NewestSeen.UTC().Format(time.RFC3339), r.NewestArchive)
	fmt.Fprintf(&b, "Max age:    %d days\n", r.MaxAgeDays)
	fmt.Fprintf(&b, "Median age: %d days\n", r.MedianAgeDays)
	fmt.Fprintf(&b, "Nearest retention tier: %d days\n\n", r.NearestTierDays)

	fmt.Fprintf(&b, "Explanation: %s\n\n", r.Explanation)

	b.WriteString("Oldest archives:\n")
	for i, cr := range r.Ranges {
		if i >= topN {
			break
		}
		fmt.Fprintf(&b, "  %4dd  %s  (%d messages, %s to %s)\n",
			cr.AgeDays, cr.Name, cr.MessageCount,
			cr.Oldest.UTC().Format("2006-01-02"), cr.Newest.UTC().Format("2006-01-02"))
	}

	b.WriteString("\n")
	b.WriteString(caveat)
	b.WriteString("\n")
	return b.String()
}
