package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"dpscript/internal/compiler"
)

const (
	statusQueued    = "queued"
	statusCompiling = "compiling"
	statusClean     = "clean"
	statusErrors    = "errors"
	statusFailed    = "failed"
	statusNoReport  = "no report"
)

type progressModel struct {
	title   string
	events  <-chan compiler.Progress
	spinner spinner.Model
	prog    progress.Model
	items   []folderItem
	index   map[string]int
	width   int
	done    bool
}

type folderItem struct {
	path   string
	status string
	errors int
}

type progressMsg compiler.Progress
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders batch compile
// progress for folders. The model quits when events is closed.
func NewProgressModel(title string, folders []string, events <-chan compiler.Progress) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]folderItem, 0, len(folders))
	index := make(map[string]int, len(folders))
	for i, folder := range folders {
		items = append(items, folderItem{path: folder, status: statusQueued})
		index[folder] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForProgress())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		cmd := m.applyProgress(compiler.Progress(msg))
		return m, tea.Batch(cmd, m.listenForProgress())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		model, cmd := m.prog.Update(msg)
		m.prog = model.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-10, 20)
	for _, item := range m.items {
		name := truncate(item.path, nameWidth)
		status := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s", status, name)
		if item.status == statusErrors {
			fmt.Fprintf(&b, " (%d)", item.errors)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return progressMsg(p)
	}
}

func (m *progressModel) applyProgress(p compiler.Progress) tea.Cmd {
	idx, ok := m.index[p.Folder]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if !p.Done {
		item.status = statusCompiling
	} else {
		item.status, item.errors = folderStatus(p.Result)
	}

	finished := 0.0
	for _, it := range m.items {
		switch it.status {
		case statusQueued:
		case statusCompiling:
			finished += 0.5
		default:
			finished++
		}
	}
	return m.prog.SetPercent(finished / float64(len(m.items)))
}

func folderStatus(fr compiler.FolderResult) (string, int) {
	switch {
	case fr.Err != nil:
		return statusFailed, fr.Errors
	case fr.NoReport:
		return statusNoReport, 0
	case fr.Errors > 0:
		return statusErrors, fr.Errors
	}
	return statusClean, 0
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case statusClean:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case statusErrors, statusFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case statusCompiling:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case statusNoReport:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

// DisplayName shortens folder to its last two path elements.
func DisplayName(folder string) string {
	parent := filepath.Base(filepath.Dir(folder))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(folder)
	}
	return filepath.Join(parent, filepath.Base(folder))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
