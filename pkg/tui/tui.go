// Package tui provides a terminal user interface for tensormidi
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wrongbad/tensormidi/pkg/converter"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"go.uber.org/zap"
)

// Phosphor color scheme
var (
	phosphor   = lipgloss.Color("#39FF14")
	amber      = lipgloss.Color("#FFB000")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(phosphor).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(phosphor).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(amber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(phosphor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(phosphor).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateResult
)

// Action is what a menu item does with the picked file
type Action int

const (
	ActionInspect Action = iota
	ActionExport
	ActionVerify
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	Format      converter.Format
}

var menuItems = []MenuItem{
	{Title: "Inspect", Description: "Show tracks, notes, channels and tempo map", Action: ActionInspect},
	{Title: "MIDI → NPY", Description: "Export event tables as numpy structured arrays", Action: ActionExport, Format: converter.FormatNPY},
	{Title: "MIDI → CSV", Description: "Export event tables as CSV", Action: ActionExport, Format: converter.FormatCSV},
	{Title: "MIDI → JSON", Description: "Export the whole decode as one JSON document", Action: ActionExport, Format: converter.FormatJSON},
	{Title: "Verify", Description: "Cross-check the decoder against gomidi", Action: ActionVerify},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	tracks       table.Model
	conv         *converter.Converter
	selectedFile string
	item         MenuItem
	result       workDoneMsg
	width        int
	height       int
}

// workDoneMsg carries the outcome of the selected action
type workDoneMsg struct {
	written []string
	info    *converter.Info
	report  *converter.CheckReport
	err     error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model that decodes with opts
func New(opts tensormidi.Options, logger *zap.Logger) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".smf", ".kar"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(phosphor)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Track", Width: 6},
			{Title: "Events", Width: 8},
			{Title: "Notes", Width: 8},
			{Title: "Channels", Width: 16},
			{Title: "Seconds", Width: 10},
		}),
		table.WithHeight(8),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Foreground(phosphor).Bold(true)
	ts.Selected = ts.Selected.Foreground(darkGray).Background(phosphor)
	t.SetStyles(ts)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		tracks:     t,
		conv:       converter.New(opts, logger),
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs every message while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateWorking
			return m, tea.Batch(m.spinner.Tick, m.perform())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		m.tracks.SetHeight(max(msg.Height-20, 4))
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case workDoneMsg:
		m.state = StateResult
		m.result = msg
		if msg.info != nil {
			m.tracks.SetRows(trackRows(msg.info))
			m.tracks.Focus()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.result = workDoneMsg{}
		m.selectedFile = ""
		m.tracks.SetRows(nil)
		m.tracks.Blur()
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if m.result.info != nil {
		var cmd tea.Cmd
		m.tracks, cmd = m.tracks.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) perform() tea.Cmd {
	item, path, conv := m.item, m.selectedFile, m.conv
	return func() tea.Msg {
		switch item.Action {
		case ActionExport:
			base := strings.TrimSuffix(path, filepath.Ext(path))
			written, err := conv.ConvertFile(path, base+item.Format.Extension())
			return workDoneMsg{written: written, err: err}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return workDoneMsg{err: err}
		}
		if item.Action == ActionVerify {
			report, err := converter.CrossCheck(data)
			return workDoneMsg{report: report, err: err}
		}
		info, err := converter.Inspect(data)
		return workDoneMsg{info: info, err: err}
	}
}

func trackRows(info *converter.Info) []table.Row {
	rows := make([]table.Row, len(info.Tracks))
	for i, t := range info.Tracks {
		channels := make([]string, len(t.Channels))
		for j, ch := range t.Channels {
			channels[j] = strconv.Itoa(int(ch) + 1)
		}
		rows[i] = table.Row{
			strconv.Itoa(t.Index),
			strconv.Itoa(t.Events),
			strconv.Itoa(t.Notes),
			strings.Join(channels, ","),
			strconv.FormatFloat(t.Seconds, 'f', 2, 64),
		}
	}
	return rows
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(amber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	opts := m.conv.GetOptions()
	s.WriteString(statusStyle.Render(fmt.Sprintf("unit: %s • merge: %t • notes only: %t • durations: %t",
		opts.TimeUnit, opts.MergeTracks, opts.NotesOnly, opts.Durations)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" DECODING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.item.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder
	r := m.result

	switch {
	case r.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.item.Title, r.err.Error())))

	case r.info != nil:
		s.WriteString(titleStyle.Render(" " + strings.ToUpper(filepath.Base(m.selectedFile)) + " "))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Format %d • %d ticks/beat • %.2fs • %d tempo changes\n\n",
			r.info.Format, r.info.TicksPerBeat, r.info.Seconds, len(r.info.Tempos)))
		s.WriteString(m.tracks.View())

	case r.report != nil:
		if r.report.OK() {
			s.WriteString(titleStyle.Render(" VERIFIED "))
			s.WriteString("\n\n")
			s.WriteString(successStyle.Render(fmt.Sprintf("✓ %d tracks, %d channel events, %d tempo changes agree",
				r.report.Tracks, r.report.Events, r.report.Tempos)))
		} else {
			s.WriteString(titleStyle.Render(" MISMATCH "))
			s.WriteString("\n\n")
			for _, mm := range r.report.Mismatches {
				s.WriteString(errorStyle.Render("✗ " + mm))
				s.WriteString("\n")
			}
		}

	default:
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Export complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		for _, w := range r.written {
			s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(w)))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  _____ _____ _   _ ____   ___  ____  __  __ ___ ____ ___
 |_   _| ____| \ | / ___| / _ \|  _ \|  \/  |_ _|  _ \_ _|
   | | |  _| |  \| \___ \| | | | |_) | |\/| || || | | | |
   | | | |___| |\  |___) | |_| |  _ <| |  | || || |_| | |
   |_| |_____|_| \_|____/ \___/|_| \_\_|  |_|___|____/___|
`
	return lipgloss.NewStyle().Foreground(phosphor).Render(logo)
}

// Run starts the TUI application
func Run(opts tensormidi.Options, logger *zap.Logger) error {
	p := tea.NewProgram(New(opts, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
