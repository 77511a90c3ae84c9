package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"nalanda/pkg/ui"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	silent     bool
	verboseLog bool
	noColor    bool

	// exitCode is set by commands that finish without a cobra error
	exitCode = exitOK
)

// rootCmd syncs courses when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "nalanda",
	Short: "Keep a local copy of your Nalanda course resources",
	Long: `nalanda logs into the Nalanda Moodle portal, lists your courses and
mirrors their files and pages into a local directory.

Every run only fetches what is not on disk yet. Lecture and topic sections
of a course share one "Lectures" directory; every other section gets its own.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	return exitCode
}

// newConsole builds the console for the global flags
func newConsole() *ui.Console {
	return ui.NewConsole(silent, !noColor)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.nalanda.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&silent, "silent", "s", false, "print only the course menu and errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "log", "l", false, "write debug logs, including every portal request")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	addSyncFlags(rootCmd)

	rootCmd.SetVersionTemplate(`nalanda {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
