package out

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
)

var (
	alertTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	alertBodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4"))
	toastStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	actionStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#74c7ec"))
)

// ConsoleNotifier prints advisories to a writer. Choices are read from
// input, and only when input is an interactive terminal.
type ConsoleNotifier struct {
	mu          sync.Mutex
	out         io.Writer
	in          *bufio.Reader
	interactive bool
}

func NewConsoleNotifier(out io.Writer, in *os.File) *ConsoleNotifier {
	n := &ConsoleNotifier{out: out}
	if in != nil && term.IsTerminal(in.Fd()) {
		n.in = bufio.NewReader(in)
		n.interactive = true
	}
	return n
}

var _ locationout.Notifier = (*ConsoleNotifier)(nil)

func (n *ConsoleNotifier) Notify(_ context.Context, advisory domain.Advisory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, renderAdvisory(advisory))
}

// Choose prints the advisory with numbered actions and waits for a pick.
// Anything other than a listed number counts as no choice.
func (n *ConsoleNotifier) Choose(ctx context.Context, advisory domain.Advisory) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, renderAdvisory(advisory))
	if !n.interactive || len(advisory.Actions) == 0 {
		return ""
	}
	for idx, action := range advisory.Actions {
		fmt.Fprintf(n.out, "  %s %s\n", actionStyle.Render(fmt.Sprintf("[%d]", idx+1)), action)
	}
	fmt.Fprint(n.out, "> ")

	lines := make(chan string, 1)
	go func() {
		line, _ := n.in.ReadString('\n')
		lines <- line
	}()
	select {
	case <-ctx.Done():
		return ""
	case line := <-lines:
		picked, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || picked < 1 || picked > len(advisory.Actions) {
			return ""
		}
		return advisory.Actions[picked-1]
	}
}

func renderAdvisory(advisory domain.Advisory) string {
	if advisory.Kind == domain.AdvisoryToast {
		return toastStyle.Render(advisoryText(advisory))
	}
	var b strings.Builder
	b.WriteString(alertTitleStyle.Render(advisory.Title))
	if advisory.Message != "" {
		b.WriteString("\n")
		b.WriteString(alertBodyStyle.Render(advisory.Message))
	}
	return b.String()
}

func advisoryText(advisory domain.Advisory) string {
	if advisory.Message != "" {
		return advisory.Message
	}
	return advisory.Title
}
