package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive console and blocks until it exits.
func Run(opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyAppearance(opts.Config)

	m := newAppModel(opts)
	defer m.closeLog()
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(appModel); ok {
		fm.persist()
	}
	return err
}
