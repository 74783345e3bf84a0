package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listDetailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// DiagnosticListModel - Interactive diagnostic browser
// =============================================================================

// DiagnosticListModel is the bubbletea model for browsing the diagnostics of
// a tikz-cd source. The selected diagnostic is shown below the list with the
// source line it points at.
type DiagnosticListModel struct {
	Name        string
	Source      string
	Diagnostics diagnostic.List
	Cursor      int
	Height      int
	Offset      int
}

// newDiagnosticModel creates a diagnostic list model.
func newDiagnosticModel(name, source string, diags diagnostic.List) DiagnosticListModel {
	return DiagnosticListModel{
		Name:        name,
		Source:      source,
		Diagnostics: diags,
		Height:      10,
	}
}

func (m DiagnosticListModel) Init() tea.Cmd {
	return nil
}

func (m DiagnosticListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m = m.move(-1)
		case "down", "j":
			m = m.move(1)
		case "home", "g":
			m = m.move(-len(m.Diagnostics))
		case "end", "G":
			m = m.move(len(m.Diagnostics))
		}
	case tea.WindowSizeMsg:
		// Leave room for the header, the detail box and the footer.
		m.Height = max(msg.Height-14, 3)
		m = m.move(0)
	}
	return m, nil
}

// move shifts the cursor by delta, clamped to the list, and scrolls the
// window to keep it visible.
func (m DiagnosticListModel) move(delta int) DiagnosticListModel {
	m.Cursor = max(0, min(m.Cursor+delta, len(m.Diagnostics)-1))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

func (m DiagnosticListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Diagnostics in " + m.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.Diagnostics) == 0 {
		b.WriteString(StyleSuccess.Render("No diagnostics"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Diagnostics))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := m.Diagnostics[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line, col := d.Range.LineCol(m.Source)
		rows = append(rows, []string{cursor, severityLabel(d), strconv.Itoa(line) + ":" + strconv.Itoa(col), d.Message.String()})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Kind", "At", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			idx := m.Offset + row
			if idx >= len(m.Diagnostics) {
				return lipgloss.NewStyle()
			}
			d := m.Diagnostics[idx]

			base := lipgloss.NewStyle()
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			switch col {
			case 1:
				if d.Severity == diagnostic.SeverityError {
					return base.Foreground(colorRed)
				}
				return base.Foreground(colorYellow)
			case 2:
				return base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Foreground(colorCyan)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDetailStyle.Render(formatDiagnostic(m.Name, m.Source, m.Diagnostics[m.Cursor])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Diagnostics))))

	return b.String()
}

func severityLabel(d diagnostic.Diagnostic) string {
	if d.Fatal {
		return "fatal"
	}
	return d.Severity.String()
}
