package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/quiplabs/quip/pkg/artifact"
	"github.com/quiplabs/quip/pkg/convo"
	"github.com/quiplabs/quip/pkg/gateway"
	"github.com/quiplabs/quip/pkg/orchestrate"
	"github.com/quiplabs/quip/pkg/playback"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// chatDeps are the collaborators the model drives.
type chatDeps struct {
	store        convo.Store
	client       *gateway.Client
	orchestrator *orchestrate.Orchestrator
	controller   *playback.Controller
	staticRoot   string
	timeout      time.Duration
}

type chatModel struct {
	deps chatDeps

	conversationID string
	input          textinput.Model
	spin           spinner.Model
	renderer       *glamour.TermRenderer
	updates        <-chan convo.Update

	width   int
	busy    bool
	action  orchestrate.Action
	status  string
	failure string
}

// Messages produced by the background commands.
type (
	answerMsg       struct{ text string }
	voiceReadyMsg   struct{ handle artifact.Handle }
	videoReadyMsg   struct{ url string }
	playbackDoneMsg struct {
		action orchestrate.Action
		err    error
	}
	actionErrMsg   struct{ err error }
	storeUpdateMsg struct{ update convo.Update }
)

func newChatModel(deps chatDeps) (*chatModel, error) {
	conversation, err := deps.store.Create(context.Background(), "")
	if err != nil {
		return nil, fmt.Errorf("could not create conversation: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "What is the meaning of life?"
	input.Focus()
	input.CharLimit = 512

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create renderer: %w", err)
	}

	return &chatModel{
		deps:           deps,
		conversationID: conversation.ID,
		input:          input,
		spin:           spin,
		renderer:       renderer,
		updates:        deps.store.Subscribe(),
		status:         "Ask a question",
	}, nil
}

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit(orchestrate.ActionAsk)
		case "ctrl+v":
			return m.submit(orchestrate.ActionVoice)
		case "ctrl+g":
			return m.submit(orchestrate.ActionVideo)
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case answerMsg:
		m.busy = false
		m.failure = ""
		m.status = "Response received"
		return m, nil

	case voiceReadyMsg:
		m.status = "Voice received, playing..."
		return m, m.playArtifact(msg.handle)

	case videoReadyMsg:
		m.status = "Video ready, playing..."
		return m, m.playVideo(msg.url)

	case playbackDoneMsg:
		// Playback completion is what finally clears the voice/video
		// gate.
		m.deps.orchestrator.Release(msg.action)
		m.busy = false
		if msg.err != nil {
			m.failure = "Playback failed. The response text is still above."
		} else {
			m.status = "Done"
		}
		return m, nil

	case actionErrMsg:
		m.busy = false
		m.failure = userFacingError(msg.err)
		m.status = ""
		return m, nil

	case storeUpdateMsg:
		m.status = fmt.Sprintf("History updated (%d exchanges)", msg.update.HistoryLen)
		return m, m.waitForUpdate()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts one of the three pipelines unless one of that kind is
// already in flight.
func (m *chatModel) submit(action orchestrate.Action) (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Please wait, still processing..."
		return m, nil
	}

	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		m.failure = "Please enter a question"
		return m, nil
	}

	m.busy = true
	m.action = action
	m.failure = ""
	m.status = "Getting response..."
	m.input.Reset()

	return m, tea.Batch(m.spin.Tick, m.runAction(action, question))
}

func (m *chatModel) runAction(action orchestrate.Action, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.timeout)
		defer cancel()

		switch action {
		case orchestrate.ActionVoice:
			handle, err := m.deps.orchestrator.AskVoice(ctx, m.conversationID, question)
			if err != nil {
				return actionErrMsg{err: err}
			}
			return voiceReadyMsg{handle: handle}

		case orchestrate.ActionVideo:
			url, err := m.deps.orchestrator.AskVideo(ctx, m.conversationID, question)
			if err != nil {
				return actionErrMsg{err: err}
			}
			return videoReadyMsg{url: url}

		default:
			text, err := m.deps.orchestrator.AskText(ctx, m.conversationID, question)
			if err != nil {
				return actionErrMsg{err: err}
			}
			return answerMsg{text: text}
		}
	}
}

// playArtifact resolves the audio file and plays it. With a shared
// filesystem the waiter picks the file up straight from the static
// root; otherwise it is fetched from the server first.
func (m *chatModel) playArtifact(handle artifact.Handle) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.timeout)
		defer cancel()

		var src string
		var err error
		if m.deps.staticRoot != "" {
			waiter := artifact.NewWaiter(m.deps.staticRoot, zap.NewNop())
			src, err = waiter.Wait(ctx, handle)
		} else {
			src, err = m.download(ctx, handle)
		}
		if err != nil {
			return playbackDoneMsg{action: orchestrate.ActionVoice, err: err}
		}

		m.deps.controller.Start(ctx, src)
		res := <-m.deps.controller.Done()
		return playbackDoneMsg{action: orchestrate.ActionVoice, err: res.Err}
	}
}

func (m *chatModel) playVideo(url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.timeout)
		defer cancel()

		m.deps.controller.Start(ctx, url)
		res := <-m.deps.controller.Done()
		return playbackDoneMsg{action: orchestrate.ActionVideo, err: res.Err}
	}
}

// download fetches the artifact over HTTP into a temp file.
func (m *chatModel) download(ctx context.Context, handle artifact.Handle) (string, error) {
	url := m.deps.client.ArtifactURL(handle.URLPath())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := (&http.Client{Timeout: m.deps.timeout}).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artifact fetch returned %d", resp.StatusCode)
	}

	path := filepath.Join(os.TempDir(), handle.Filename())
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}

	return path, nil
}

// waitForUpdate re-arms the store-update subscription.
func (m *chatModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return nil
		}
		return storeUpdateMsg{update: u}
	}
}

func (m *chatModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("quip"))
	b.WriteString("\n\n")

	conversation, err := m.deps.store.Get(context.Background(), m.conversationID)
	if err == nil {
		for _, ex := range conversation.History {
			b.WriteString(questionStyle.Render("You: "))
			b.WriteString(ex.Question)
			b.WriteString("\n")
			if rendered, err := m.renderer.Render(ex.Response); err == nil {
				b.WriteString(rendered)
			} else {
				b.WriteString(ex.Response + "\n")
			}
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.failure != "" {
		b.WriteString(errorStyle.Render(m.failure))
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString(m.spin.View())
		b.WriteString(" ")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter ask · ctrl+v voice · ctrl+g video · esc quit"))
	return b.String()
}

// userFacingError maps pipeline failures to the generic notices the
// user sees; detail stays in the logs.
func userFacingError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, orchestrate.ErrEmptyQuestion):
		return "Please enter a question"
	case errors.Is(err, orchestrate.ErrBusy):
		return "Please wait, still processing..."
	default:
		return "Something went wrong. Please try again."
	}
}
