// Package retention characterizes how far back exported archives reach and
// why. It only sees data that was visible in the client at export time, so
// it can suggest — but never prove — what bounds the observed history.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

// Tiers is the catalogue of known organizational retention horizons, in
// days. Immutable reference data.
var Tiers = []int{30, 60, 90, 120, 180, 365, 730, 1095, 1825, 2555}

// clusterWindow is how close to the maximum age an archive must stop for
// it to count toward a shared visibility boundary.
const clusterWindow = 14

// ChatRange is one archive's observed message span.
type ChatRange struct {
	Name         string
	Oldest       time.Time
	Newest       time.Time
	AgeDays      int
	MessageCount int
}

// Report aggregates range statistics across every archive in a directory.
type Report struct {
	ArchivesScanned int
	ArchivesDated   int         // archives with at least one parseable timestamp
	Ranges          []ChatRange // sorted by AgeDays descending
	MedianAgeDays   int
	MaxAgeDays      int
	OldestSeen      time.Time
	OldestArchive   string
	NewestSeen      time.Time
	NewestArchive   string
	NearestTierDays int
	Explanation     string
}

// Message timestamps appear bracketed in the rendered archives. Two on-disk
// formats are in circulation: the machine format current exports write, and
// the locale format older exports used. Both must be tried.
var (
	isoStampRe    = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))\]`)
	legacyStampRe = regexp.MustCompile(`\[(\d{1,2}/\d{1,2}/\d{4},? \d{1,2}:\d{2}:\d{2} [AP]M)\]`)
)

var legacyLayouts = []string{
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
}

// Analyzer scans archives and derives the visibility report.
type Analyzer struct {
	clock  export.Clock
	logger export.Logger
}

func NewAnalyzer(clock export.Clock, logger export.Logger) *Analyzer {
	if logger == nil {
		logger = export.NewNopLogger()
	}
	return &Analyzer{clock: clock, logger: logger}
}

// Analyze scans every archive file under dir and aggregates the findings.
// Archives with zero parseable timestamps are counted as scanned but are
// excluded from range statistics; a single unparseable timestamp is
// skipped, not the whole archive.
func (a *Analyzer) Analyze(dir string) (*Report, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	r := &Report{}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading archive %s: %w", p, err)
		}
		r.ArchivesScanned++

		name := strings.TrimSuffix(filepath.Base(p), ".md")
		cr, ok := a.rangeOf(name, string(data))
		if !ok {
			a.logger.Debug("archive has no parseable timestamps", "archive", name)
			continue
		}
		r.ArchivesDated++
		r.Ranges = append(r.Ranges, cr)
	}

	a.aggregate(r)
	return r, nil
}

// rangeOf extracts every bracketed display timestamp from one archive body
// and derives its range. ok is false when nothing parses.
func (a *Analyzer) rangeOf(name, body string) (ChatRange, bool) {
	var stamps []time.Time

	for _, m := range isoStampRe.FindAllStringSubmatch(body, -1) {
		if t, err := time.Parse(time.RFC3339Nano, m[1]); err == nil {
			stamps = append(stamps, t)
		}
	}
	for _, m := range legacyStampRe.FindAllStringSubmatch(body, -1) {
		if t, ok := parseLegacy(m[1]); ok {
			stamps = append(stamps, t)
		}
	}

	if len(stamps) == 0 {
		return ChatRange{}, false
	}

	cr := ChatRange{Name: name, Oldest: stamps[0], Newest: stamps[0], MessageCount: len(stamps)}
	for _, t := range stamps[1:] {
		if t.Before(cr.Oldest) {
			cr.Oldest = t
		}
		if t.After(cr.Newest) {
			cr.Newest = t
		}
	}
	cr.AgeDays = int(a.clock.Now().Sub(cr.Oldest).Hours() / 24)
	return cr, true
}

func parseLegacy(s string) (time.Time, bool) {
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// aggregate fills the population statistics and the explanation.
func (a *Analyzer) aggregate(r *Report) {
	if len(r.Ranges) == 0 {
		return
	}

	sort.Slice(r.Ranges, func(i, j int) bool { return r.Ranges[i].AgeDays > r.Ranges[j].AgeDays })

	ages := make([]int, len(r.Ranges))
	for i, cr := range r.Ranges {
		ages[i] = cr.AgeDays

		if r.OldestSeen.IsZero() || cr.Oldest.Before(r.OldestSeen) {
			r.OldestSeen = cr.Oldest
			r.OldestArchive = cr.Name
		}
		if cr.Newest.After(r.NewestSeen) {
			r.NewestSeen = cr.Newest
			r.NewestArchive = cr.Name
		}
	}

	r.MaxAgeDays = ages[0]
	r.MedianAgeDays = median(ages)
	r.NearestTierDays = nearestTier(r.MaxAgeDays)
	r.Explanation = a.explain(r)
}

// explain derives the best-effort reading of the observed history depth.
// Several archives all stopping near the same horizon points at a shared
// visibility boundary rather than a per-chat retention cutoff.
func (a *Analyzer) explain(r *Report) string {
	clustered := 0
	for _, cr := range r.Ranges {
		if r.MaxAgeDays-cr.AgeDays <= clusterWindow {
			clustered++
		}
	}

	if clustered >= 3 {
		return fmt.Sprintf(
			"%d archives stop within %d days of the %d-day horizon; this clustering suggests a shared visibility boundary (account start or a sidebar window) rather than a per-chat retention cutoff",
			clustered, clusterWindow, r.MaxAgeDays)
	}
	return fmt.Sprintf("oldest observed message is %d days old", r.MaxAgeDays)
}

// median over ages; even-sized populations average the middle pair.
func median(ages []int) int {
	sorted := make([]int, len(ages))
	copy(sorted, ages)
	sort.Ints(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// nearestTier returns the catalogue entry with the smallest absolute day
// difference from age.
func nearestTier(age int) int {
	best := Tiers[0]
	bestDiff := abs(age - best)
	for _, t := range Tiers[1:] {
		if d := abs(age - t); d < bestDiff {
			best = t
			bestDiff = d
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
