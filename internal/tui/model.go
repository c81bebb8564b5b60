// Package tui renders the loan chat: a streaming transcript on the
// left, the live applicant panel on the right.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/applicant"
	"github.com/lendflow-labs/loanchat/internal/panel"
	"github.com/lendflow-labs/loanchat/internal/realtime"
	"github.com/lendflow-labs/loanchat/internal/session"
	"github.com/lendflow-labs/loanchat/internal/upload"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	inputHeight   = 3
)

// Message types
type sessionChangedMsg struct{}
type panelChangedMsg struct{}
type applicantDataMsg applicant.Data
type stageDataMsg applicant.StageData
type variablesMsg []realtime.Variable
type streamFinishedMsg struct{ err error }
type attachFailedMsg struct{ reason string }

// Model is the BubbleTea model for the chat screen.
type Model struct {
	reconciler *session.Reconciler
	scheduler  *panel.Scheduler
	uploader   *upload.Uploader
	logger     *zap.Logger

	// updates funnels events from the session, the scheduler and the
	// realtime channel into the BubbleTea loop.
	updates chan tea.Msg

	viewport  viewport.Model
	input     textarea.Model
	spinner   spinner.Model
	stagebar  progress.Model
	width     int
	height    int
	ready     bool
	quitting  bool
	sending   bool
	statusErr string

	details   applicant.Details
	variables []realtime.Variable
	stage     *applicant.StageData
}

// NewModel wires the chat screen to its collaborators. The updates
// channel must be the one the realtime callbacks publish to; pass a
// fresh channel when no realtime connection exists. A nil uploader
// disables the /attach command.
func NewModel(rec *session.Reconciler, sched *panel.Scheduler, uploader *upload.Uploader, updates chan tea.Msg, logger *zap.Logger) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Prompt = "┃ "
	ta.SetHeight(inputHeight)
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = thinkingStyle

	bar := progress.New(
		progress.WithGradient("#00ffff", "#00ff00"),
		progress.WithWidth(30),
	)

	vp := viewport.New(defaultWidth, defaultHeight)

	m := Model{
		reconciler: rec,
		scheduler:  sched,
		uploader:   uploader,
		logger:     logger,
		updates:    updates,
		viewport:   vp,
		input:      ta,
		spinner:    sp,
		stagebar:   bar,
		width:      defaultWidth,
		height:     defaultHeight,
	}

	sched.SetOnChange(func() {
		select {
		case updates <- panelChangedMsg{}:
		default:
		}
	})

	return m
}

// RealtimeCallbacks builds the realtime callback set that feeds this
// model's update channel.
func RealtimeCallbacks(updates chan tea.Msg) realtime.Callbacks {
	return realtime.Callbacks{
		OnApplicantData: func(d applicant.Data) { updates <- applicantDataMsg(d) },
		OnStageData:     func(s applicant.StageData) { updates <- stageDataMsg(s) },
		OnVariables:     func(vs []realtime.Variable) { updates <- variablesMsg(vs) },
	}
}

// Init starts the spinner and the event pumps.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForUpdate(),
		m.waitForSession(),
		m.bootstrap(),
	)
}

// waitForUpdate delivers the next external event into the loop.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.updates
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) waitForSession() tea.Cmd {
	events := m.reconciler.Events()
	return func() tea.Msg {
		_, ok := <-events
		if !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

func (m Model) bootstrap() tea.Cmd {
	return func() tea.Msg {
		err := m.reconciler.Bootstrap(context.Background())
		return streamFinishedMsg{err: err}
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		err := m.reconciler.SendMessage(context.Background(), text, nil)
		return streamFinishedMsg{err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			text := m.input.Value()
			if strings.TrimSpace(text) == "" || m.sending {
				return m, nil
			}
			m.input.Reset()
			m.sending = true
			m.statusErr = ""
			// A new user turn collapses the panel back to its default
			// state.
			m.scheduler.ResetExpanded()
			if paths, ok := parseAttachCommand(text); ok {
				return m, m.attach(paths)
			}
			return m, m.send(text)

		case "ctrl+e":
			m.scheduler.ExpandHighlighted()
			m.refreshViewport()
			return m, nil

		default:
			if n, ok := sectionHotkey(msg.String()); ok {
				if name := m.sectionByIndex(n); name != "" {
					m.scheduler.ToggleSection(name)
					m.refreshViewport()
					return m, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshViewport()

	case sessionChangedMsg:
		m.refreshViewport()
		cmds = append(cmds, m.waitForSession())

	case panelChangedMsg:
		m.refreshViewport()
		cmds = append(cmds, m.waitForUpdate())

	case applicantDataMsg:
		data := applicant.Data(msg)
		changes := applicant.Diff(m.details, data.ApplicantDetails)
		m.details = data.ApplicantDetails
		m.scheduler.ApplyDiff(changes)
		m.refreshViewport()
		cmds = append(cmds, m.waitForUpdate())

	case stageDataMsg:
		stage := applicant.StageData(msg)
		m.stage = &stage
		cmds = append(cmds, m.waitForUpdate())

	case variablesMsg:
		changes := realtime.DiffVariables(m.variables, msg)
		m.variables = msg
		m.scheduler.ApplyVariableChanges(changes.ChangedNames, changes.ChangedFields)
		m.refreshViewport()
		cmds = append(cmds, m.waitForUpdate())

	case streamFinishedMsg:
		m.sending = false
		if msg.err != nil {
			m.statusErr = m.reconciler.LastError()
		}
		m.refreshViewport()

	case attachFailedMsg:
		m.sending = false
		m.statusErr = msg.reason
		m.refreshViewport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) layout() {
	chatWidth := m.chatWidth()
	m.viewport.Width = chatWidth
	m.viewport.Height = m.height - inputHeight - 3
	m.input.SetWidth(chatWidth)
}

func (m Model) chatWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width * 3 / 5
}

func (m Model) panelWidth() int {
	w := m.width - m.chatWidth() - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	chat := m.viewport.View() + "\n" + m.input.View()
	right := m.renderPanel(m.panelWidth())

	body := lipgloss.JoinHorizontal(lipgloss.Top, chat, "  ", right)

	footer := footerKeyStyle.Render("[enter]") + footerStyle.Render(" send  ") +
		footerKeyStyle.Render("[alt+1-9]") + footerStyle.Render(" toggle section  ") +
		footerKeyStyle.Render("[ctrl+e]") + footerStyle.Render(" expand recent  ") +
		footerKeyStyle.Render("[esc]") + footerStyle.Render(" quit")

	return body + "\n" + footer
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	width := m.chatWidth()

	for _, msg := range m.reconciler.Messages() {
		if msg.IsBot {
			b.WriteString(botStyle.Width(width).Render("🤖 "+msg.Text) + "\n\n")
		} else {
			b.WriteString(userStyle.Width(width).Align(lipgloss.Right).Render(msg.Text+" 👤") + "\n\n")
		}
	}

	if streaming := m.reconciler.StreamingText(); streaming != "" {
		b.WriteString(streamingStyle.Width(width).Render("🤖 "+streaming+"▌") + "\n")
	} else if m.reconciler.IsThinking() {
		b.WriteString(m.spinner.View() + thinkingStyle.Render(" thinking...") + "\n")
	}

	if m.statusErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.statusErr) + "\n")
	}

	return b.String()
}

// sectionByIndex maps a 1-based hotkey to a section name in sorted
// render order.
func (m Model) sectionByIndex(n int) string {
	names := sectionNames(m.details)
	if n < 1 || n > len(names) {
		return ""
	}
	return names[n-1]
}

// sectionHotkey parses alt+1..alt+9; plain digits stay available to the
// input box.
func sectionHotkey(key string) (int, bool) {
	if len(key) != 5 || !strings.HasPrefix(key, "alt+") {
		return 0, false
	}
	if key[4] < '1' || key[4] > '9' {
		return 0, false
	}
	return int(key[4] - '0'), true
}

func (m Model) renderStageProgress(width int) string {
	if m.stage == nil || m.stage.TotalSteps == 0 {
		return ""
	}
	completed := len(m.stage.CompletedSteps)
	frac := float64(completed) / float64(m.stage.TotalSteps)
	if frac > 1.0 {
		frac = 1.0
	}
	label := progressLabelStyle.Render(
		fmt.Sprintf("Step %d of %d", completed, m.stage.TotalSteps))
	return label + "\n" + m.stagebar.ViewAs(frac) + "\n"
}
