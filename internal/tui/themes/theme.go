package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style of the quote editor.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Muted         lipgloss.Style
	Header        lipgloss.Style
	Focused       lipgloss.Style
	DragTarget    lipgloss.Style
	Divider       lipgloss.Style
	Group         lipgloss.Style
	Subtotal      lipgloss.Style
	Total         lipgloss.Style
	Excluded      lipgloss.Style
	Disabled      lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Primary       lipgloss.Color
	Border        lipgloss.Color
	Foreground    lipgloss.Color
	Background    lipgloss.Color
}

func build(primary, fg, bg, border, muted, success, warning, errColor, info lipgloss.Color) Theme {
	return Theme{
		Primary:    primary,
		Border:     border,
		Foreground: fg,
		Background: bg,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Subtitle: lipgloss.NewStyle().
			Foreground(muted),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Focused: lipgloss.NewStyle().
			Background(primary).
			Foreground(bg).
			Bold(true),
		DragTarget: lipgloss.NewStyle().
			Background(border).
			Foreground(fg).
			Underline(true),
		Divider: lipgloss.NewStyle().
			Foreground(border),
		Group: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Subtotal: lipgloss.NewStyle().
			Italic(true).
			Foreground(fg),
		Total: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Excluded: lipgloss.NewStyle().
			Foreground(muted).
			Strikethrough(true),
		Disabled: lipgloss.NewStyle().
			Foreground(warning),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(errColor).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(info),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#7c3aed"),
	lipgloss.Color("#fafafa"),
	lipgloss.Color("#1a1a1a"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#10b981"),
	lipgloss.Color("#f59e0b"),
	lipgloss.Color("#ef4444"),
	lipgloss.Color("#3b82f6"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#1e1e2e"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f9e2af"),
	lipgloss.Color("#f38ba8"),
	lipgloss.Color("#89dceb"),
)

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
