package export

import "time"

// RawNode is a single message node as harvested from the live view.
// Because the client re-renders the list on every scroll, the same message
// usually appears in many collection passes; ID is the dedup key.
type RawNode struct {
	ID        int64  `json:"id"`
	Author    string `json:"author"`
	Timestamp string `json:"ts"`   // RFC 3339 as rendered by the client
	Body      string `json:"body"` // rich content, HTML fragment
	Media     bool   `json:"media"`
}

// Message is one normalized chat message. Identity is ID; two messages with
// the same ID are the same message regardless of re-render differences.
type Message struct {
	ID        int64
	Author    string
	Timestamp time.Time
	Content   string
}

// parseNodeTime parses a timestamp as the client renders it.
func parseNodeTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
