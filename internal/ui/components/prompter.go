package components

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	locationdto "geowatch/internal/modules/location/dto"
	"geowatch/internal/ui/theme"
)

// PromptMsg delivers an advisory to the model. Answer must be called once
// for advisories that carry actions.
type PromptMsg struct {
	Advisory locationdto.Advisory
	reply    chan string
}

func (m PromptMsg) NeedsAnswer() bool { return m.reply != nil }

func (m PromptMsg) Answer(choice string) {
	if m.reply != nil {
		m.reply <- choice
	}
}

// Prompter carries advisories from the session into the Bubble Tea loop.
// It is safe for concurrent use.
type Prompter struct {
	requests chan PromptMsg
	done     chan struct{}
	once     sync.Once
}

func NewPrompter() *Prompter {
	return &Prompter{requests: make(chan PromptMsg, 8), done: make(chan struct{})}
}

// Show queues a notice. Notices are dropped when the queue is full.
func (p *Prompter) Show(_ context.Context, advisory locationdto.Advisory) {
	select {
	case p.requests <- PromptMsg{Advisory: advisory}:
	default:
	}
}

// Ask blocks until the user answers, ctx is done or the prompter shuts down.
func (p *Prompter) Ask(ctx context.Context, advisory locationdto.Advisory) string {
	reply := make(chan string, 1)
	select {
	case p.requests <- PromptMsg{Advisory: advisory, reply: reply}:
	case <-ctx.Done():
		return ""
	case <-p.done:
		return ""
	}
	select {
	case choice := <-reply:
		return choice
	case <-ctx.Done():
		return ""
	case <-p.done:
		return ""
	}
}

// Next waits for the next advisory.
func (p *Prompter) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.requests:
			return msg
		case <-p.done:
			return nil
		}
	}
}

// Shutdown releases any pending Ask.
func (p *Prompter) Shutdown() {
	p.once.Do(func() { close(p.done) })
}

// RenderPrompt draws an alert with numbered actions.
func RenderPrompt(advisory locationdto.Advisory, width int) string {
	var sb strings.Builder
	sb.WriteString(theme.Error.Bold(true).Render(advisory.Title))
	if advisory.Message != "" {
		sb.WriteString("\n\n" + advisory.Message)
	}
	if len(advisory.Actions) > 0 {
		sb.WriteString("\n\n")
		for idx, action := range advisory.Actions {
			sb.WriteString(theme.Hot.Render(strconv.Itoa(idx+1)) + "  " + action + "\n")
		}
		sb.WriteString(theme.Muted.Render("esc: dismiss"))
	} else {
		sb.WriteString("\n\n" + theme.Muted.Render("enter: ok"))
	}
	w := width / 2
	if w < 40 {
		w = 40
	}
	return theme.Alert.Width(w).Render(sb.String())
}
