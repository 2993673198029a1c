package chatui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"poolchat/pkg/types"
)

const defaultWidth = 80

var (
	colorUser      = lipgloss.Color("#7D56F4")
	colorAssistant = lipgloss.Color("#A3BE8C")
	colorSystem    = lipgloss.Color("#666666")
	colorError     = lipgloss.Color("#FF6B6B")
)

// styles are bound to one renderer so color detection follows the output.
type styles struct {
	label  map[types.Role]lipgloss.Style
	bubble map[types.Role]lipgloss.Style
	status lipgloss.Style
	prompt lipgloss.Style
	err    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, width int) styles {
	bubble := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c).
			Padding(0, 1).
			Width(width - 4)
	}
	label := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(c)
	}
	return styles{
		label: map[types.Role]lipgloss.Style{
			types.RoleUser:      label(colorUser),
			types.RoleAssistant: label(colorAssistant),
			types.RoleSystem:    label(colorSystem),
		},
		bubble: map[types.Role]lipgloss.Style{
			types.RoleUser:      bubble(colorUser),
			types.RoleAssistant: bubble(colorAssistant),
			types.RoleSystem:    bubble(colorSystem),
		},
		status: r.NewStyle().Faint(true),
		prompt: r.NewStyle().Bold(true).Foreground(colorUser),
		err:    r.NewStyle().Bold(true).Foreground(colorError),
	}
}

// renderMessage draws m as a labelled bubble.
func (s styles) renderMessage(m types.Message) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.label[m.Role].Render(string(m.Role)),
		s.bubble[m.Role].Render(m.Content),
	)
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth, true
	}
	return width, true
}
