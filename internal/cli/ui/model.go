// Package ui is a bubbletea view over a single sort run: a scrollable list
// of the emitted load order while it is still in progress, and a dedicated
// cycle-trail view when the sort fails with a cyclic interaction, retargeted
// at a sort's much smaller, two-phase lifecycle (load, then order) instead
// of a per-file pipeline.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CartoonFan/libloot/internal/cli/hooks"
)

const listHeightMargin = 4

// Model is the TUI's state: a header/footer frame around either the
// in-progress/complete plugin list or, when a cycle is detected, the
// cycle-trail view instead.
type Model struct {
	list    list.Model
	spinner spinner.Model

	width  int
	height int

	initialized bool
	quitting    bool

	phaseMessage string
	pluginCount  int

	items    []listItem
	itemLock sync.Mutex

	masterlistRevision string
	masterlistChanged  bool

	cycle *CycleDetectedMsg

	startTime time.Time
}

// listItem is one entry in the result list: a plugin name at its final
// position, or still pending one.
type listItem struct {
	position int
	name     string
	placed   bool
}

func (i listItem) FilterValue() string { return i.name }
func (i listItem) Title() string {
	if !i.placed {
		return fmt.Sprintf("%3s %s", "…", i.name)
	}
	return fmt.Sprintf("%3d %s", i.position+1, i.name)
}
func (i listItem) Description() string { return "" }

// CycleDetectedMsg is sent directly by the CLI entrypoint (not routed
// through sorter.Hooks, which has no cycle callback) once GenerateOrder
// returns a *graph.CyclicInteraction, so the TUI can switch to the
// cycle-trail view instead of an (empty) result list.
type CycleDetectedMsg struct {
	Source string
	Target string
	Trail  []string
}

// DoneMsg signals the run finished (successfully or not) and the TUI
// should stop waiting for further hook events; it does not itself quit the
// program, so the user can still read the final view before pressing q.
type DoneMsg struct{ Err error }

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinCmd tea.Cmd
		m.spinner, spinCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinCmd)

	case hooks.PluginsLoadedMsg:
		m.pluginCount = msg.Count
		m.phaseMessage = "Sorting..."
		m.itemLock.Lock()
		m.items = make([]listItem, msg.Count)
		m.itemLock.Unlock()

	case hooks.SortCompleteMsg:
		m.phaseMessage = "Complete"
		m.itemLock.Lock()
		m.items = make([]listItem, len(msg.Order))
		for i, name := range msg.Order {
			m.items[i] = listItem{position: i, name: name, placed: true}
		}
		items := make([]list.Item, len(m.items))
		for i, it := range m.items {
			items[i] = it
		}
		m.itemLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))

	case hooks.MasterlistUpdatedMsg:
		m.masterlistChanged = msg.Changed
		m.masterlistRevision = msg.RevisionID

	case CycleDetectedMsg:
		m.phaseMessage = "Cyclic interaction detected"
		c := msg
		m.cycle = &c

	case DoneMsg:
		if msg.Err != nil && m.phaseMessage != "Cyclic interaction detected" {
			m.phaseMessage = "Failed"
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerRight := m.phaseMessage
	if m.phaseMessage == "Sorting..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, "loot-sort", strings.Repeat(" ", max(0, m.width-len("loot-sort")-len(headerRight)-2)), headerRight),
	)

	if m.cycle != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.cycleView())
	}

	footer := m.footerView()
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), footer)
}

func (m *Model) cycleView() string {
	var b strings.Builder
	b.WriteString(CycleStyle.Render(fmt.Sprintf("cyclic interaction between %q and %q", m.cycle.Source, m.cycle.Target)))
	b.WriteString("\n\n")
	for i, name := range m.cycle.Trail {
		arrow := " "
		if i > 0 {
			arrow = "-> "
		}
		b.WriteString(arrow + name + "\n")
	}
	return b.String()
}

func (m *Model) footerView() string {
	elapsed := time.Since(m.startTime).Round(time.Millisecond)
	text := fmt.Sprintf("plugins: %d | masterlist: %s | elapsed: %s | q: quit",
		m.pluginCount, masterlistSummary(m.masterlistChanged, m.masterlistRevision), elapsed)
	return FooterStyle.Width(m.width).Render(text)
}

func masterlistSummary(changed bool, revision string) string {
	if revision == "" {
		return "not updated"
	}
	if changed {
		return "updated to " + revision
	}
	return "up to date (" + revision + ")"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// NewModel builds the initial TUI model for one sort run.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = false

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		phaseMessage: "Loading plugins...",
		startTime:    time.Now(),
	}
}

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("56")).
			Padding(0, 1)

	CycleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)
