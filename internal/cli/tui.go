package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/manifest"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PackageListModel - Interactive workspace member selection
// =============================================================================

// PackageListModel is the bubbletea model for picking a workspace member.
type PackageListModel struct {
	Packages []*manifest.Manifest
	Cursor   int
	Selected *manifest.Manifest
	Height   int
	Offset   int
}

// NewPackageListModel creates a new package list model.
func NewPackageListModel(pkgs []*manifest.Manifest) PackageListModel {
	return PackageListModel{
		Packages: pkgs,
		Height:   15,
	}
}

func (m PackageListModel) Init() tea.Cmd {
	return nil
}

func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Packages) == 0 {
				return m, tea.Quit
			}
			m.Selected = m.Packages[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m PackageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Package"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Packages))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Packages[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		version := p.Version
		if version == "" {
			version = "—"
		}
		rows = append(rows, []string{cursor, p.Name, version, fmt.Sprint(len(p.Dependencies)), relPath(p.Path)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Version", "Deps", "Manifest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 2 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Packages))))

	return b.String()
}

// pickPackage runs the picker on stderr and returns the chosen package.
func pickPackage(pkgs []*manifest.Manifest) (*manifest.Manifest, error) {
	final, err := tea.NewProgram(NewPackageListModel(pkgs), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return nil, fmt.Errorf("package picker: %w", err)
	}
	if m, ok := final.(PackageListModel); ok && m.Selected != nil {
		return m.Selected, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "no package selected (use --package)")
}

// relPath shortens path relative to the working directory when possible.
func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
