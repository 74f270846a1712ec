package tui

import (
	"os"
	"strconv"
	"strings"

	"visadesk/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. Adaptive colors keep the console readable on light and dark
// terminals; faint is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorInputBg    lipgloss.TerminalColor = ac("254", "234")
	colorWarn       lipgloss.TerminalColor = ac("#b35900", "#f39c12")
	colorMissing    lipgloss.TerminalColor = ac("#c0392b", "#e06c75")
	colorLink       lipgloss.TerminalColor = ac("27", "75")
)

// statusColors maps status classes to badge colors.
var statusColors = map[string]lipgloss.TerminalColor{
	"status-wait-app":       ac("#6c757d", "#9aa0a6"),
	"status-doc":            ac("#1f6feb", "#58a6ff"),
	"status-hold":           ac("#b35900", "#f39c12"),
	"status-reschedule":     ac("#8250df", "#c297ff"),
	"status-refund-request": ac("#c0392b", "#e06c75"),
	"status-refunded":       ac("#6c757d", "#9aa0a6"),
	"status-visa-approved":  ac("#1a7f37", "#3fb950"),
	"status-completed":      ac("#1a7f37", "#3fb950"),
}

var (
	headerStyle      = lipgloss.NewStyle().Bold(true)
	selectedRowStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
	labelStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	placeholderStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	missingStyle     = lipgloss.NewStyle().Foreground(colorMissing).Italic(true)
	linkStyle        = lipgloss.NewStyle().Foreground(colorLink).Underline(true)
	editingStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	minibufferStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle       = lipgloss.NewStyle().Foreground(colorMissing).Bold(true)
	progressStyle    = lipgloss.NewStyle().Foreground(colorAccent)
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func statusStyle(class string) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	if c, ok := statusColors[class]; ok {
		return st.Foreground(c)
	}
	return st.Foreground(colorMuted)
}

// applyAppearance switches to the high-contrast palette when the config asks
// for it. VISADESK_TUI_PROFILE wins over the config.
func applyAppearance(cfg *store.Config) {
	profile := strings.ToLower(strings.TrimSpace(os.Getenv("VISADESK_TUI_PROFILE")))
	if profile == "" && cfg != nil && cfg.TUI != nil {
		profile = strings.ToLower(strings.TrimSpace(cfg.TUI.Profile))
	}
	if profile != "contrast" {
		return
	}
	colorMuted = ac("235", "252")
	colorSelectedBg = ac("232", "255")
	colorSelectedFg = ac("255", "232")
	selectedRowStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	placeholderStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the console.
//
// termenv.EnvColorProfile honors CLICOLOR, which can disable colors in a full
// screen app; only NO_COLOR turns them off here.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && (profile == termenv.Ascii || profile == termenv.ANSI) {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection.
//
// Priority:
// 1) VISADESK_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg")
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("VISADESK_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
