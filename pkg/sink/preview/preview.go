// Package preview provides an interactive display sink that shows the live
// status line in the terminal via a Bubbletea program. Pressing q or ctrl-c
// invokes the callback registered with OnQuit, which the entry point wires
// to the application's stop request; the sink itself never terminates the
// run loop directly.
package preview

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const previewTitleLimit = 256

// lineMsg delivers a freshly rendered status line into the update loop.
type lineMsg string

// titleMsg updates the header shown above the status line.
type titleMsg string

// quitFnMsg registers the callback invoked on a quit keypress.
type quitFnMsg func()

// Sink is an interactive preview implementing the sink.Sink interface.
type Sink struct {
	mu     sync.Mutex
	prog   *tea.Program
	done   chan struct{}
	closed bool
	runErr error
}

// New creates a preview sink and starts its program. A quit keypress only
// exits the preview until a callback is registered with OnQuit.
func New() *Sink {
	s := &Sink{done: make(chan struct{})}
	s.prog = tea.NewProgram(&model{})
	go func() {
		_, err := s.prog.Run()
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		close(s.done)
	}()
	return s
}

// OnQuit registers fn to be called once when the user requests quit from
// the keyboard. Registration travels through the program's message loop,
// so it is safe from any goroutine at any point after New. fn must not
// block.
func (s *Sink) OnQuit(fn func()) {
	s.prog.Send(quitFnMsg(fn))
}

// SetTitle sets the header text above the status line.
func (s *Sink) SetTitle(title string) error {
	if len(title) > previewTitleLimit {
		return fmt.Errorf("title %d chars exceeds preview limit %d", len(title), previewTitleLimit)
	}
	s.prog.Send(titleMsg(title))
	return nil
}

// Render pushes a status line into the preview.
func (s *Sink) Render(line string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("preview sink is closed")
	}
	s.prog.Send(lineMsg(line))
	return nil
}

// Close shuts the Bubbletea program down and waits for it to exit.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.prog.Quit()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// --- Bubbletea model ---

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

type model struct {
	title  string
	line   string
	onQuit func()
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
	case titleMsg:
		m.title = string(msg)
	case lineMsg:
		m.line = string(msg)
	case quitFnMsg:
		m.onQuit = msg
	}
	return m, nil
}

func (m *model) View() string {
	line := m.line
	if line == "" {
		line = helpStyle.Render("waiting for first sample...")
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		titleStyle.Render(m.title),
		line,
		helpStyle.Render("q: quit"))
}
