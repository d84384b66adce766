// Command aura is a voice and text personal assistant shell. It classifies
// each utterance into one or more intents, dispatches them in order and
// optionally speaks the replies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aura-v0/internal/config"
	"aura-v0/internal/intent"
	"aura-v0/internal/logging"
	"aura-v0/internal/state"
)

var (
	version = "dev"

	flagConfig  string
	flagVerbose bool
	flagMode    string

	logger *zap.SugaredLogger

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "Voice and text personal assistant",
	Long: `Aura is a personal assistant shell. Type a request or drop recognized
speech into the watched query file; multi-part requests like
"open chrome and tell me a joke" run each part in order.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zl, err := logging.New(flagVerbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = zl.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSession(ctx, cfg, flagMode, logger)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the assistant session (same as running with no subcommand)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return rootCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <query...>",
	Short: "Show how an utterance is split into intents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		for _, seg := range intent.Classify(query) {
			if seg.Arg == "" {
				fmt.Println(string(seg.Tag))
				continue
			}
			fmt.Printf("%s\t%s\n", seg.Tag, seg.Arg)
		}
		return nil
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List saved reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		db, err := state.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		rs, err := db.ListReminders()
		if err != nil {
			return err
		}
		if len(rs) == 0 {
			fmt.Println(dimStyle.Render("(no reminders)"))
			return nil
		}
		for _, r := range rs {
			fmt.Printf("%s  %s\n", dimStyle.Render(r.CreatedAt), r.Text)
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "aura.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&flagMode, "mode", "m", "text", "Input mode: text, voice or both")
	runCmd.Flags().AddFlagSet(rootCmd.Flags())
	rootCmd.AddCommand(runCmd, versionCmd, classifyCmd, remindersCmd)
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
