// Package main implements the loanchat CLI, a terminal client for the
// loan application agent.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/agent"
	"github.com/lendflow-labs/loanchat/internal/config"
	"github.com/lendflow-labs/loanchat/internal/logging"
	"github.com/lendflow-labs/loanchat/internal/panel"
	"github.com/lendflow-labs/loanchat/internal/realtime"
	"github.com/lendflow-labs/loanchat/internal/session"
	"github.com/lendflow-labs/loanchat/internal/tui"
	"github.com/lendflow-labs/loanchat/internal/upload"
)

var (
	configPath string
	threadID   string
	// version is set at build time via -ldflags
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "loanchat",
	Short:   "Terminal client for the loan application agent",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	chatCmd.Flags().StringVar(&threadID, "thread-id", "", "resume an existing conversation thread")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive loan application chat",
	Long: `Start an interactive chat session with the loan agent.

The left pane holds the conversation, the right pane shows the
applicant details the agent has collected so far and updates live as
the conversation progresses.

Examples:
  # Start a new conversation
  loanchat chat

  # Resume an existing thread
  loanchat chat --thread-id 9f3c2a

  # Use a different config file
  loanchat chat --config ./loanchat.yaml`,
	RunE: runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loanchat %s\n", version)
	},
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	client := agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.Timeout.Duration(), logger)
	rec := session.New(client, threadID, logger)
	defer rec.Close()

	sched := panel.NewScheduler(panel.Config{}, logger)
	defer sched.Close()

	var uploader *upload.Uploader
	if cfg.Upload.BaseURL != "" {
		uploader = upload.NewUploader(cfg.Upload.BaseURL, cfg.Agent.Timeout.Duration(), cfg.Upload.MaxFileSize, logger)
	}

	updates := make(chan tea.Msg, 64)

	// The chat works without the push channel; applicant data just
	// stops updating live.
	rt, err := realtime.Connect(cfg.Realtime.URL, tui.RealtimeCallbacks(updates), logger)
	if err != nil {
		logger.Warn("realtime channel unavailable", zap.Error(err))
	} else {
		defer rt.Close()
	}

	model := tui.NewModel(rec, sched, uploader, updates, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if rt != nil {
		go joinWhenKnown(rt, rec, logger)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}

// joinWhenKnown joins the realtime conversation once the session has a
// thread identity.
func joinWhenKnown(rt *realtime.Client, rec *session.Reconciler, logger *zap.Logger) {
	events := rec.Events()
	if id := rec.ThreadID(); id != "" {
		if err := rt.JoinConversation(id); err != nil {
			logger.Warn("join conversation failed", zap.Error(err))
		}
		return
	}
	for range events {
		id := rec.ThreadID()
		if id == "" {
			continue
		}
		if err := rt.JoinConversation(id); err != nil {
			logger.Warn("join conversation failed", zap.Error(err))
		}
		return
	}
}
