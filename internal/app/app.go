// Package app is the application layer between the CLI and the export
// pipeline. It constructs all dependencies from config and exposes the
// high-level operations the commands call.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catchingknives/teams-webapp-exporter/internal/archive"
	"github.com/catchingknives/teams-webapp-exporter/internal/config"
	"github.com/catchingknives/teams-webapp-exporter/internal/database"
	"github.com/catchingknives/teams-webapp-exporter/internal/encryption"
	"github.com/catchingknives/teams-webapp-exporter/internal/export"
	"github.com/catchingknives/teams-webapp-exporter/internal/mirror"
	"github.com/catchingknives/teams-webapp-exporter/internal/retention"
)

// App wires config, storage, and the export pipeline together.
// The caller must call Close when done.
type App struct {
	cfg       *config.Config
	db        *database.DB
	store     *archive.Store
	mirror    mirror.Mirror
	encryptor encryption.Encryptor
	clock     export.Clock
	idgen     export.IDGenerator
	logger    export.Logger
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	dbPath, err := databasePath(cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	m, err := mirror.NewFromConfig(ctx, cfg.Mirror)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating mirror: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	clock := export.RealClock{}
	idgen := export.UUIDGenerator{}

	runID := clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store := archive.NewStore(cfg.ArchiveDir, clock, logger)

	return &App{
		cfg:       cfg,
		db:        db,
		store:     store,
		mirror:    m,
		encryptor: enc,
		clock:     clock,
		idgen:     idgen,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// newApp is the test constructor: same wiring, injected seams, no
// filesystem logger.
func newApp(cfg *config.Config, db *database.DB, store *archive.Store, m mirror.Mirror, enc encryption.Encryptor, clock export.Clock, idgen export.IDGenerator, logger export.Logger) *App {
	return &App{
		cfg:       cfg,
		db:        db,
		store:     store,
		mirror:    m,
		encryptor: enc,
		clock:     clock,
		idgen:     idgen,
		logger:    logger,
	}
}

// databasePath maps the database config onto an sqlite path.
func databasePath(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "memory":
		return ":memory:", nil
	case "sqlite", "":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("sqlite database requires data_dir to be set")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
		return filepath.Join(cfg.DataDir, "teamsexport.db"), nil
	default:
		return "", fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// ExportChat runs one extraction against the given view and merges the
// result into the chat's archive. The archive's embedded cursor becomes
// the resume boundary, so re-running against an existing archive only
// walks back to the last synced message. Returns the number of messages
// appended.
//
// A run that extracts nothing new is not an error: the run is recorded
// as done with zero messages written.
func (a *App) ExportChat(ctx context.Context, view export.View, chatName string, opts export.Options, progress func(string)) (int, error) {
	runID := a.idgen.New()
	startedAt := a.clock.Now().UTC()

	if err := a.db.CreateRun(runID, chatName, startedAt); err != nil {
		return 0, err
	}

	cursor, ok, err := a.store.Cursor(chatName)
	if err != nil {
		a.finishRun(runID, database.StatusFailed, err.Error(), 0)
		return 0, fmt.Errorf("reading archive cursor: %w", err)
	}
	if ok {
		opts.Resume = cursor
		a.logger.Info("resuming from archive cursor", "chat", chatName, "cursor", cursor)
	}

	ctrl := export.NewController(view, opts, a.logger, progress)
	msgs, err := ctrl.Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrNoMessages):
			a.finishRun(runID, database.StatusDone, "no new messages", 0)
			return 0, nil
		case errors.Is(err, export.ErrTimeout):
			a.finishRun(runID, database.StatusTimeout, err.Error(), 0)
			return 0, err
		default:
			a.finishRun(runID, database.StatusFailed, err.Error(), 0)
			return 0, err
		}
	}

	written, err := a.store.Merge(chatName, msgs)
	if err != nil {
		a.finishRun(runID, database.StatusFailed, err.Error(), 0)
		return 0, fmt.Errorf("merging into archive: %w", err)
	}

	if a.mirror != nil && written > 0 {
		if err := a.mirrorArchive(ctx, chatName); err != nil {
			// The local archive is already updated; a mirror failure
			// degrades the run, it does not fail it.
			a.logger.Error("mirroring archive failed", "chat", chatName, "error", err)
		}
	}

	a.finishRun(runID, database.StatusDone, "", written)
	a.logger.Info("export finished", "chat", chatName, "written", written)
	return written, nil
}

// finishRun records the run outcome; failures to record are logged, not
// propagated, so they never mask the export outcome itself.
func (a *App) finishRun(runID, status, reason string, written int) {
	if err := a.db.FinishRun(runID, status, reason, written, a.clock.Now().UTC()); err != nil {
		a.logger.Error("recording run outcome failed", "run", runID, "error", err)
	}
}

// mirrorArchive pushes one chat's archive to the mirror, encrypting it
// first when an encryptor is configured.
func (a *App) mirrorArchive(ctx context.Context, chatName string) error {
	data, err := os.ReadFile(a.store.Path(chatName))
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	name := archive.SanitizeName(chatName) + ".md"
	if a.encryptor != nil {
		var enc bytes.Buffer
		if err := a.encryptor.Encrypt(bytes.NewReader(data), &enc); err != nil {
			return fmt.Errorf("encrypting archive: %w", err)
		}
		data = enc.Bytes()
		name += ".age"
	}

	if err := a.mirror.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("pushing to mirror: %w", err)
	}
	return nil
}

// MirrorPush pushes every local archive to the configured mirror.
// Returns the number of archives pushed.
func (a *App) MirrorPush(ctx context.Context) (int, error) {
	if a.mirror == nil {
		return 0, fmt.Errorf("no mirror configured")
	}
	if err := a.mirror.ValidateSetup(ctx); err != nil {
		return 0, fmt.Errorf("validating mirror: %w", err)
	}

	paths, err := a.store.List()
	if err != nil {
		return 0, fmt.Errorf("listing archives: %w", err)
	}

	pushed := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return pushed, fmt.Errorf("reading archive %s: %w", p, err)
		}

		name := filepath.Base(p)
		if a.encryptor != nil {
			var enc bytes.Buffer
			if err := a.encryptor.Encrypt(bytes.NewReader(data), &enc); err != nil {
				return pushed, fmt.Errorf("encrypting %s: %w", name, err)
			}
			data = enc.Bytes()
			name += ".age"
		}

		if err := a.mirror.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
			return pushed, fmt.Errorf("pushing %s: %w", name, err)
		}
		pushed++
	}
	return pushed, nil
}

// Analyze scans the archive directory and returns the formatted
// retention report.
func (a *App) Analyze() (string, error) {
	analyzer := retention.NewAnalyzer(a.clock, a.logger)
	report, err := analyzer.Analyze(a.store.Dir())
	if err != nil {
		return "", err
	}
	return report.Format(), nil
}

// History returns the most recent export runs.
func (a *App) History(limit int) ([]*database.ExportRun, error) {
	return a.db.ListRuns(limit)
}

// Close closes all resources.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing run history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
