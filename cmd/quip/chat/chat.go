// Package chatcmder implements the interactive chat session: the text
// input, the three ask/voice/video actions gated by the in-flight
// state, and playback of synthesized answers.
package chatcmder

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quiplabs/quip/pkg/convo"
	"github.com/quiplabs/quip/pkg/gateway"
	"github.com/quiplabs/quip/pkg/logger"
	"github.com/quiplabs/quip/pkg/orchestrate"
	"github.com/quiplabs/quip/pkg/playback"
)

const chatLongDesc string = `Start an interactive chat session.

Enter sends the question as text. Ctrl+V asks for a spoken answer
and plays it; Ctrl+G asks for a talking-avatar video. A second
submission is rejected while one is still being processed.

The shared secret is read from QUIP_LOCAL_KEY.

Examples:
  quip chat --server http://localhost:8080
  quip chat --server http://localhost:8080 --db ~/.quip/chat.db --player afplay
  quip chat --server http://localhost:8080 --static ./public`

const chatShortDesc string = "Start an interactive chat session"

type chatCommander struct {
	serverURL  string
	dbPath     string
	player     string
	staticRoot string
	timeout    time.Duration
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", "http://localhost:8080", "quipd server URL")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Persist the conversation to this SQLite file")
	cmd.Flags().StringVar(&cmder.player, "player", defaultPlayerCommand(), "External media player command")
	cmd.Flags().StringVar(&cmder.staticRoot, "static", "", "Server static root, when it is on this filesystem")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 2*time.Minute, "Per-request timeout")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("chat needs an interactive terminal")
	}

	key := os.Getenv("QUIP_LOCAL_KEY")
	if key == "" {
		return fmt.Errorf("QUIP_LOCAL_KEY must be set")
	}

	log := logger.NewLogger("chat", c.debug)
	defer log.Sync()

	var store convo.Store
	if c.dbPath != "" {
		var err error
		store, err = convo.NewSQLiteStore(c.dbPath)
		if err != nil {
			return fmt.Errorf("could not open conversation store: %w", err)
		}
	} else {
		store = convo.NewMemoryStore()
	}
	defer store.Close()

	client := gateway.NewClient(c.serverURL, c.timeout)
	orchestrator := orchestrate.New(store, client, client, client, key, log)
	controller := playback.NewController(playback.NewExecPlayer(c.player), log.Named("playback"))

	model, err := newChatModel(chatDeps{
		store:        store,
		client:       client,
		orchestrator: orchestrator,
		controller:   controller,
		staticRoot:   c.staticRoot,
		timeout:      c.timeout,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// defaultPlayerCommand picks a player likely to exist on the host.
func defaultPlayerCommand() string {
	for _, candidate := range []string{"afplay", "mpv", "ffplay"} {
		if _, err := os.Stat("/usr/bin/" + candidate); err == nil {
			return candidate
		}
		if _, err := os.Stat("/usr/local/bin/" + candidate); err == nil {
			return candidate
		}
	}
	return "mpv"
}
