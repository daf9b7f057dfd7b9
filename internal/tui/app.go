package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat-relay/internal/client"
	"chat-relay/internal/conversation"
	"chat-relay/internal/models"
)

// Sender relays one message and reports its terminal outcome.
type Sender interface {
	Send(ctx context.Context, text string) client.Outcome
}

// replyMsg carries a finished relay call back into Update.
type replyMsg client.Outcome

type Model struct {
	state    conversation.State
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	sender   Sender
	title    string

	// ctx scopes in-flight sends; cancel fires when the program quits.
	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
}

func New(sender Sender, title string) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask something..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		sender:   sender,
		title:    title,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

// State exposes the current transcript snapshot.
func (m Model) State() conversation.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		if msg.Err != nil {
			m.state = m.state.Fail(client.UserMessage(msg.Err))
		} else {
			m.state = m.state.Succeed(msg.Text)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Loading {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.state = m.state.SetInput(m.input.Value())
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	next, text, ok := m.state.SetInput(m.input.Value()).Submit()
	if !ok {
		return m, nil
	}
	m.state = next
	m.input.Reset()
	m.refresh()
	return m, m.send(text)
}

func (m Model) send(text string) tea.Cmd {
	ctx, sender := m.ctx, m.sender
	return func() tea.Msg {
		return replyMsg(sender.Send(ctx, text))
	}
}

// refresh re-renders the transcript and scrolls to the newest message.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m Model) renderMessages() string {
	if len(m.state.Messages) == 0 && !m.state.Loading {
		return dimStyle.Render("No messages yet. Start the conversation!")
	}

	bubbleWidth := max(m.width*4/5, 20)
	var sb strings.Builder
	for _, msg := range m.state.Messages {
		sb.WriteString(m.renderMessage(msg, bubbleWidth))
		sb.WriteString("\n\n")
	}
	if m.state.Loading {
		sb.WriteString(aiStyle.Render(m.spinner.View() + " thinking"))
	}
	return sb.String()
}

func (m Model) renderMessage(msg models.ChatMessage, width int) string {
	switch {
	case msg.Sender == models.SenderUser:
		bubble := userStyle.MaxWidth(width).Render(msg.Text)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)
	case msg.Error:
		return errorStyle.MaxWidth(width).Render(msg.Text)
	default:
		return aiStyle.MaxWidth(width).Render(msg.Text)
	}
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	status := "enter: send  pgup/pgdown: scroll  esc: quit"
	if m.state.Loading {
		status = "waiting for reply...  esc: quit"
	}
	sb.WriteString(statusBarStyle.Render(status))
	return sb.String()
}
