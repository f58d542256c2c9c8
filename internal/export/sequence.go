package export

import "sort"

// Sequence merges raw nodes collected across repeated scroll passes into a
// unique, ID-ordered sequence. The first occurrence of an ID wins; later
// duplicates come from re-renders and are discarded, not merged. Nodes that
// are non-text media placeholders (GIFs, stickers) are excluded entirely.
//
// ID is assumed to be a reliable, monotonically assigned identifier: it is
// the dedup and ordering key, not the timestamp.
func Sequence(nodes []RawNode) []RawNode {
	seen := make(map[int64]struct{}, len(nodes))
	out := make([]RawNode, 0, len(nodes))

	for _, n := range nodes {
		if n.Media {
			continue
		}
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
