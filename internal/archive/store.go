package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

// cursorPattern matches the cursor marker at end of file only. If manual
// edits leave earlier markers in the body, they are treated as body text;
// only the trailing one is stripped on append.
var cursorPattern = regexp.MustCompile(`\n?<!-- last-message: ([^>]+) -->\s*$`)

// Store merges extraction batches into durable, append-only archives, one
// per chat. The cursor embedded at the end of each archive marks the
// timestamp of the most recently persisted message; merges append only
// messages strictly newer than it. Single-writer access per archive file is
// assumed for the duration of one process.
type Store struct {
	dir    string
	clock  export.Clock
	logger export.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first merge if absent.
func NewStore(dir string, clock export.Clock, logger export.Logger) *Store {
	if logger == nil {
		logger = export.NewNopLogger()
	}
	return &Store{dir: dir, clock: clock, logger: logger}
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the archive file path for a chat name.
func (s *Store) Path(chatName string) string {
	return filepath.Join(s.dir, SanitizeName(chatName)+".md")
}

// Cursor returns the archive's last-message cursor for a chat, or ok=false
// if no archive exists yet or it carries no parseable cursor.
func (s *Store) Cursor(chatName string) (time.Time, bool, error) {
	data, err := os.ReadFile(s.Path(chatName))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("reading archive: %w", err)
	}
	return parseCursor(data)
}

// Merge appends the messages in batch that are strictly newer than the
// archive's cursor and rewrites the cursor. It returns the number of
// messages written; a batch with nothing new returns 0 and leaves the file
// untouched. Merging the same batch twice therefore writes nothing the
// second time.
func (s *Store) Merge(chatName string, batch []export.Message) (int, error) {
	path := s.Path(chatName)

	existing, err := os.ReadFile(path)
	fresh := false
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("reading archive: %w", err)
		}
		fresh = true
	}

	var cursor time.Time
	if !fresh {
		if c, ok, err := parseCursor(existing); err != nil {
			return 0, err
		} else if ok {
			cursor = c
		}
	}

	newMsgs := make([]export.Message, 0, len(batch))
	var maxTS time.Time
	for _, m := range batch {
		if !cursor.IsZero() && !m.Timestamp.After(cursor) {
			continue
		}
		newMsgs = append(newMsgs, m)
		if m.Timestamp.After(maxTS) {
			maxTS = m.Timestamp
		}
	}
	if len(newMsgs) == 0 {
		s.logger.Debug("merge is a no-op", "chat", chatName, "cursor", cursor)
		return 0, nil
	}

	body := Render(newMsgs)
	now := s.clock.Now().UTC().Format(time.RFC3339)
	cursorLine := fmt.Sprintf("<!-- last-message: %s -->", maxTS.UTC().Format(time.RFC3339))

	var doc string
	if fresh {
		doc = fmt.Sprintf("# %s\n\nExported: %s\n\n%s%s\n", chatName, now, body, cursorLine)
	} else {
		stripped := strings.TrimRight(string(cursorPattern.ReplaceAll(existing, nil)), "\n")
		doc = fmt.Sprintf("%s\n\n---\n\n### Export appended: %s\n\n%s%s\n", stripped, now, body, cursorLine)
	}

	if err := s.writeAtomic(path, []byte(doc)); err != nil {
		return 0, err
	}

	s.logger.Info("archive merged", "chat", chatName, "written", len(newMsgs), "cursor", maxTS)
	return len(newMsgs), nil
}

// List returns the archive file paths currently on disk, sorted by name.
func (s *Store) List() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	return paths, nil
}

// writeAtomic writes the full document via temp file + rename so a merge
// either lands completely or not at all.
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}

	success = true
	return nil
}

// parseCursor extracts the trailing cursor marker from archive content.
func parseCursor(data []byte) (time.Time, bool, error) {
	m := cursorPattern.FindSubmatch(data)
	if m == nil {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(m[1])))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing archive cursor: %w", err)
	}
	return t, true, nil
}
