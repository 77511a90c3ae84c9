package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"
	"nalanda/pkg/auth"
	"nalanda/pkg/config"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/moodle"
	"nalanda/pkg/scraper"
	"nalanda/pkg/storage"
	"nalanda/pkg/ui"
)

var (
	// Sync flags
	promptUser      bool
	resetConfig     bool
	chooseCourses   bool
	selectExpr      string
	rootDir         string
	baseURL         string
	exclude         []string
	safeFilenames   bool
	notificationsOn bool
	rateLimit       int
)

// syncCmd mirrors the selected courses into the root directory
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download new course resources (default command)",
	Long: `Log into Nalanda and download every file and page that is not in the
root directory yet.

Credentials and the root directory come from the configuration file. When
any of them is missing you are asked for them and may save the answers as
the new defaults.`,
	Example: `  # Sync every course
  nalanda

  # Pick courses from a list
  nalanda --course

  # Sync the first and third to fifth course without asking
  nalanda --select 1,3-5

  # Log in as someone else for this run only
  nalanda --user`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addSyncFlags(syncCmd)
}

func addSyncFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&promptUser, "user", "u", false, "ask for credentials instead of reading the config")
	f.BoolVarP(&resetConfig, "reset", "r", false, "ask for new default credentials and directory, then exit")
	f.BoolVarP(&chooseCourses, "course", "c", false, "choose the courses to sync from a list")
	f.StringVar(&selectExpr, "select", "", `courses to sync by number, e.g. "1,3-5"`)
	f.StringVar(&rootDir, "root-dir", "", "directory to store course data in")
	f.StringVar(&baseURL, "base-url", "", "portal address")
	f.StringSliceVar(&exclude, "exclude", nil, "skip files whose name matches this glob (repeatable)")
	f.BoolVar(&safeFilenames, "safe-filenames", false, "rewrite file names to portable ASCII")
	f.BoolVar(&notificationsOn, "notifications", false, "send a desktop notification when done")
	f.IntVar(&rateLimit, "rate-limit", 0, "maximum portal requests per minute (0 disables)")
}

// syncFlagMap collects the flags that override configuration values
func syncFlagMap(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"root-dir": rootDir,
		"base-url": baseURL,
		"exclude":  exclude,
	}
	if cmd.Flags().Changed("safe-filenames") {
		flags["safe-filenames"] = safeFilenames
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notificationsOn
	}
	if cmd.Flags().Changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if verboseLog {
		flags["log-level"] = "debug"
	}
	return flags
}

func runSync(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, syncFlagMap(cmd))
	if err != nil {
		console.Errorf("Failed to load configuration: %v", err)
		exitCode = exitFailure
		return nil
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		console.Errorf("Failed to set up logging: %v", err)
		exitCode = exitFailure
		return nil
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("nalanda starting")
	if cfg.PlaintextPassword() {
		log.WithField("config", cfg.Path).Warn("password is stored in plain text; set credentials.store to keyring or encrypted")
	}

	store, err := auth.NewStore(cfg)
	if err != nil {
		console.Errorf("Failed to open credential store: %v", err)
		exitCode = exitFailure
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	prompter := &interruptiblePrompter{ctx: ctx, next: auth.NewTerminalPrompter()}

	if resetConfig {
		exitCode = resetDefaults(cfg, store, prompter, console)
		return nil
	}

	creds, err := resolveCredentials(cfg, store, prompter, console, log, promptUser)
	if err != nil {
		if ctx.Err() != nil {
			console.Errorf("\nClosing session and quitting...")
			exitCode = exitInterrupted
			return nil
		}
		console.Errorf("%v", err)
		exitCode = exitFailure
		return nil
	}

	exitCode = syncCourses(ctx, cfg, creds, prompter, console, log)
	return nil
}

func resetDefaults(cfg *config.Config, store auth.PasswordStore, p auth.Prompter, console *ui.Console) int {
	if err := auth.AskAll(cfg, p); err != nil {
		console.Errorf("%v", err)
		return exitFailure
	}
	if err := auth.Persist(cfg, store); err != nil {
		console.Errorf("Failed to save defaults: %v", err)
		return exitFailure
	}
	console.Success("Saved new defaults to %s", cfg.Path)
	return exitOK
}

// resolveCredentials returns the stored login. When ask is set, or a value
// is missing, every value is asked for instead; answers given because of a
// missing value may be saved as the new defaults.
func resolveCredentials(cfg *config.Config, store auth.PasswordStore, p auth.Prompter, console *ui.Console, log logger.Logger, ask bool) (auth.Credentials, error) {
	if !ask {
		creds, err := auth.Lookup(cfg, store)
		if err == nil && strings.TrimSpace(cfg.Dirs.RootDir) != "" {
			return creds, nil
		}
		if err != nil {
			log.WithError(err).DebugWithFields("no stored credentials", logger.Fields{"store": store.Name()})
		}
		console.Warnf("Something's wrong with your config file. We'll have to do this the old fashioned way.")
	}

	if err := auth.AskAll(cfg, p); err != nil {
		return auth.Credentials{}, err
	}

	if !ask {
		save, err := auth.Confirm(p, "Make these values default?")
		if err != nil {
			return auth.Credentials{}, err
		}
		if save {
			if err := auth.Persist(cfg, store); err != nil {
				return auth.Credentials{}, fmt.Errorf("failed to save defaults: %w", err)
			}
			log.WithField("config", cfg.Path).Info("saved new defaults")
		}
	}

	return auth.Credentials{Username: cfg.Credentials.Username, Password: cfg.Credentials.Password}, nil
}

// syncCourses runs one sync and returns the exit code
func syncCourses(ctx context.Context, cfg *config.Config, creds auth.Credentials, p auth.Prompter, console *ui.Console, log logger.Logger) int {
	files, err := storage.NewManager(cfg.Dirs.RootDir, cfg.Output.SafeFilenames)
	if err != nil {
		console.Errorf("Cannot use %s: %v", cfg.Dirs.RootDir, err)
		return exitFailure
	}

	console.Printf("Connecting to Nalanda as %s", creds.Username)
	console.Printf("Resources last updated: %s %s", cfg.Last.Datetime, cfg.Last.Status)

	client, err := moodle.NewClientFromConfig(cfg, log, clock.WallClock)
	if err != nil {
		console.Errorf("Failed to create portal client: %v", err)
		return exitFailure
	}
	defer client.Close()

	finalize := func(status scraper.Status, at time.Time) error {
		return config.RecordRun(cfg.Path, at, status.Label())
	}
	s, err := scraper.New(client, files, cfg.Download.Exclude, scraper.NewRunContext(console, log), clock.WallClock, finalize)
	if err != nil {
		console.Errorf("%v", err)
		return exitFailure
	}

	opts := scraper.Options{
		Username:  creds.Username,
		Password:  creds.Password,
		Selection: selectExpr,
	}
	if chooseCourses && selectExpr == "" {
		opts.Prompt = func(count int) (string, error) {
			return p.ReadLine(fmt.Sprintf("Courses to be downloaded (1-%d): ", count))
		}
	}

	report, err := s.Run(ctx, opts)
	console.PrintSummary(report.Summary())
	notifier := ui.NewNotifier(nil, cfg.Notifications.Enabled)

	switch scraper.StatusFor(err) {
	case scraper.StatusCompleted:
		if failed := report.Err(); failed != nil {
			log.WithError(failed).WarnWithFields("some resources were skipped", logger.Fields{"count": report.Failed})
		}
		notifier.SendSuccess("Sync complete", fmt.Sprintf("%d new files", report.Written))
		console.Success("Finished updating your resources!")
		return exitOK

	case scraper.StatusInterrupted:
		console.Errorf("\nClosing session and quitting...")
		return exitInterrupted

	default:
		if errs.Is(err, errs.KindLogin) {
			console.Errorf("Cannot log in to Nalanda!")
		} else {
			console.Errorf("Oops! Looks like something went wrong somewhere.")
		}
		log.WithError(err).Error("sync failed")
		notifier.SendError("Sync failed", err.Error())
		return exitFailure
	}
}

// interruptiblePrompter gives up on a pending answer once ctx is cancelled,
// so Ctrl-C at a prompt ends the program like it does during a sync
type interruptiblePrompter struct {
	ctx  context.Context
	next auth.Prompter
}

func (p *interruptiblePrompter) ReadLine(prompt string) (string, error) {
	return p.wait(func() (string, error) { return p.next.ReadLine(prompt) })
}

func (p *interruptiblePrompter) ReadSecret(prompt string) (string, error) {
	return p.wait(func() (string, error) { return p.next.ReadSecret(prompt) })
}

func (p *interruptiblePrompter) wait(read func() (string, error)) (string, error) {
	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := read()
		done <- answer{line, err}
	}()

	select {
	case a := <-done:
		return a.line, a.err
	case <-p.ctx.Done():
		return "", p.ctx.Err()
	}
}
