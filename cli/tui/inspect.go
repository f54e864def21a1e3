package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/depthstream/cli/reader"
)

const timeLayout = "2006-01-02 15:04:05"

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectRecording:
		content = m.renderInspectRecording()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectRecording() string {
	data, ok := m.data.(*reader.InspectRecordingResponse)
	if !ok {
		return "Invalid data type for inspect_recording"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Recording"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Path", data.Path},
		{"Job ID", data.JobID},
		{"Session ID", data.SessionID},
		{"Backend", data.BackendURL},
		{"Mode", data.Mode},
		{"Outcome", data.Outcome},
		{"Started At", data.StartedAt.Format(timeLayout)},
	}
	if data.EndedAt != nil {
		rows = append(rows, []string{"Ended At", data.EndedAt.Format(timeLayout)})
	}
	if data.Error != "" {
		rows = append(rows, []string{"Error", data.Error})
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		var value string
		switch row[0] {
		case "Mode", "Outcome":
			value = StateStyle(row[1]).Render(row[1])
		case "Error":
			value = ErrorStyle.Render(row[1])
		default:
			value = ValueStyle.Render(row[1])
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Frames"))
	b.WriteString("\n")
	frameRows := [][]string{
		{"Frames", fmt.Sprintf("%d (%d with depth)", data.Frames, data.DepthFrames)},
		{"Image", fmt.Sprintf("%s, %s", data.ImageSize, formatBytes(data.ImageBytes))},
	}
	if data.DepthSize != "" {
		frameRows = append(frameRows, []string{"Depth", fmt.Sprintf("%s, %s", data.DepthSize, formatBytes(data.DepthBytes))})
	}
	frameRows = append(frameRows,
		[]string{"Span", fmt.Sprintf("%dms at %.2f Hz", data.SpanMs, data.EffectiveHz)},
		[]string{"Min Interval", fmt.Sprintf("%dms", data.MinDeltaMs)},
	)
	if data.EndedAt != nil {
		frameRows = append(frameRows, []string{"Received", fmt.Sprintf("%d (%d dropped)", data.FramesReceived, data.FramesDropped)})
	}
	for _, row := range frameRows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("  "+row[0]+":"),
			ValueStyle.Render(row[1])))
	}

	return BoxStyle.Render(b.String())
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
