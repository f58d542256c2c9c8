package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/catchingknives/teams-webapp-exporter/internal/app"
	"github.com/catchingknives/teams-webapp-exporter/internal/browser"
	"github.com/catchingknives/teams-webapp-exporter/internal/config"
	"github.com/catchingknives/teams-webapp-exporter/internal/encryption"
	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from its default (or overridden) location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// progressPrinter returns a progress callback when stderr is a
// terminal, nil otherwise. Progress lines are chatty by design and
// useless in a log pipe.
func progressPrinter() func(string) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return func(line string) {
		fmt.Fprintf(os.Stderr, "  %s\n", line)
	}
}

var rootCmd = &cobra.Command{
	Use:   "teamsexport",
	Short: "Incremental Teams chat archiver",
	Long: `teamsexport extracts chat history from a signed-in Teams web tab and
maintains one Markdown archive per chat, appending only messages newer
than each archive's embedded cursor.`,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Archive Dir: %s\n", cfg.ArchiveDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Archive Dir:  %s\n", cfg.ArchiveDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Devtools URL: %s\n", cfg.Browser.DevtoolsURL)
		if cfg.Mirror.Type != "" {
			fmt.Printf("Mirror:       %s (%s)\n", cfg.Mirror.Type, cfg.Mirror.Name)
		}
		return nil
	},
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an age key pair for mirror encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if err := enc.GenerateKey(); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		fmt.Printf("Recipients written to %s\n", cfg.Encryption.RecipientsPath)
		fmt.Printf("Identity written to %s\n", cfg.Encryption.IdentityPath)
		fmt.Println("Keep the identity file safe; it is the only way to decrypt mirrored archives.")
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export CHAT",
	Short: "Extract a chat into its archive",
	Long: `Extract the currently open chat from the Teams tab and merge new
messages into the chat's archive. The browser must be running with
remote debugging enabled and the chat open.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatName := args[0]
		direction, _ := cmd.Flags().GetString("direction")
		maxAgeDays, _ := cmd.Flags().GetInt("max-age-days")
		deadlineSecs, _ := cmd.Flags().GetInt("deadline")
		devtoolsURL, _ := cmd.Flags().GetString("devtools-url")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts, err := exportOptions(cfg, direction, maxAgeDays, deadlineSecs)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if devtoolsURL == "" {
			devtoolsURL = cfg.Browser.DevtoolsURL
		}
		view, err := browser.NewDriver(cmd.Context(), devtoolsURL, export.NewNopLogger())
		if err != nil {
			return err
		}
		defer view.Close()

		written, err := a.ExportChat(cmd.Context(), view, chatName, opts, progressPrinter())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if written == 0 {
			fmt.Printf("%s: already up to date\n", chatName)
		} else {
			fmt.Printf("%s: %d message(s) appended\n", chatName, written)
		}
		return nil
	},
}

// exportOptions merges config defaults with command-line overrides.
func exportOptions(cfg *config.Config, direction string, maxAgeDays, deadlineSecs int) (export.Options, error) {
	var opts export.Options

	switch direction {
	case "older", "":
		opts.Direction = export.Older
	case "newer":
		opts.Direction = export.Newer
	default:
		return opts, fmt.Errorf("unknown direction %q (want older or newer)", direction)
	}

	if cfg.Export.SettleMillis > 0 {
		opts.Settle = time.Duration(cfg.Export.SettleMillis) * time.Millisecond
	}
	if cfg.Export.MaxIterations > 0 {
		opts.MaxIterations = cfg.Export.MaxIterations
	}

	if deadlineSecs == 0 {
		deadlineSecs = cfg.Export.DeadlineSecs
	}
	if deadlineSecs > 0 {
		opts.Deadline = time.Duration(deadlineSecs) * time.Second
	}

	if maxAgeDays == 0 {
		maxAgeDays = cfg.Export.MaxAgeDays
	}
	if maxAgeDays > 0 {
		opts.Cutoff = time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	}

	return opts, nil
}

// analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report visible history depth across archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Analyze()
		if err != nil {
			return fmt.Errorf("analyzing archives: %w", err)
		}

		fmt.Print(report)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View export run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No export runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-20s  %s  %-8s  %4d msg  %s\n",
				r.ID[:8],
				r.ChatName,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.MessagesWritten,
				duration,
			)
		}
		return nil
	},
}

// mirror command
var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Manage the archive mirror",
}

var mirrorPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push all local archives to the mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		pushed, err := a.MirrorPush(cmd.Context())
		if err != nil {
			return fmt.Errorf("mirror push failed: %w", err)
		}

		fmt.Printf("Pushed %d archive(s)\n", pushed)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)

	// mirror subcommands
	mirrorCmd.AddCommand(mirrorPushCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("direction", "older", "Walk direction: older (edge jumps) or newer (incremental steps)")
	exportCmd.Flags().Int("max-age-days", 0, "Trim messages older than this many days (0 = keep all)")
	exportCmd.Flags().Int("deadline", 0, "Wall-clock budget in seconds (0 = config or built-in default)")
	exportCmd.Flags().String("devtools-url", "", "Override the browser devtools URL")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(mirrorCmd)
}
