package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// Pager shows rendered trace content in a scrollable viewport.
type Pager struct {
	title string
}

// NewPager creates a pager with the given title bar text.
func NewPager(title string) *Pager {
	return &Pager{title: title}
}

// Run shows static content until the user quits.
func (p *Pager) Run(content string) error {
	prog := tea.NewProgram(
		&pagerModel{title: p.title, content: content},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := prog.Run()
	return err
}

// RunLive watches the trace file and re-renders on every write, so an
// in-progress run can be followed as it executes.
func (p *Pager) RunLive(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer watcher.Close()

	prog := tea.NewProgram(
		&pagerModel{
			title:   p.title,
			content: content,
			live:    true,
			render:  render,
			watcher: watcher,
		},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = prog.Run()
	return err
}

type traceChangedMsg struct{}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	ready    bool

	live    bool
	follow  bool
	render  func() (string, error)
	watcher *fsnotify.Watcher
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live && m.watcher != nil {
		return m.watchTrace()
	}
	return nil
}

// watchTrace waits for the next write to the trace file. Writes are
// debounced briefly so a burst of records coalesces into one reload.
func (m *pagerModel) watchTrace() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					time.Sleep(100 * time.Millisecond)
					return traceChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case traceChangedMsg:
		if m.render != nil {
			if content, err := m.render(); err == nil {
				offset := m.viewport.YOffset
				m.content = content
				m.viewport.SetContent(wrapContent(m.content, m.viewport.Width))
				if m.follow {
					m.viewport.GotoBottom()
				} else if offset <= m.viewport.TotalLineCount() {
					m.viewport.YOffset = offset
				}
			}
		}
		cmds = append(cmds, m.watchTrace())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "g":
			m.follow = false
			m.viewport.GotoTop()
		case "G":
			m.follow = false
			m.viewport.GotoBottom()
		case "f":
			if m.live {
				m.follow = !m.follow
				if m.follow {
					m.viewport.GotoBottom()
				}
			}
		}

	case tea.WindowSizeMsg:
		headerHeight, footerHeight := 1, 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.viewport.SetContent(wrapContent(m.content, msg.Width))
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := pagerTitleStyle.Render(m.title)
	line := strings.Repeat("─", maxInt(0, m.viewport.Width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, pagerInfoStyle.Render(line))

	var status string
	switch {
	case m.live && m.follow:
		status = successStyle.Bold(true).Render("● FOLLOW")
	case m.live:
		status = successStyle.Bold(true).Render("● LIVE")
	}
	help := " q: quit │ g/G: top/bottom "
	if m.live {
		help = " q: quit │ f: follow │ g/G: top/bottom "
	}
	info := fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)
	pad := maxInt(0, m.viewport.Width-lipgloss.Width(status)-lipgloss.Width(help)-lipgloss.Width(info))
	footer := status + pagerInfoStyle.Render(help) +
		pagerInfoStyle.Render(strings.Repeat("─", pad)) +
		pagerInfoStyle.Render(info)

	return header + "\n" + m.viewport.View() + "\n" + footer
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// wrapContent wraps long lines to the viewport width, indenting the
// continuation of timeline detail lines to stay under their step column.
func wrapContent(content string, width int) string {
	if width <= 0 {
		return content
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		if lipgloss.Width(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, strings.Split(wordwrap.String(line, width), "\n")...)
	}
	return strings.Join(out, "\n")
}
