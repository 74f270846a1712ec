package tui

import (
	"strings"

	"visadesk/internal/edit"
	"visadesk/internal/fields"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxPickerRows = 8

// fieldEditor is the widget bound to an open edit.Session.
type fieldEditor struct {
	sess *edit.Session

	input textinput.Model
	area  textarea.Model

	// Select: options filtered by the input query.
	options  []string
	filtered []string
	cursor   int

	multi *edit.MultiPick
}

func newFieldEditor(sess *edit.Session, width int) *fieldEditor {
	e := &fieldEditor{sess: sess}
	initial := sess.InitialValue()

	switch sess.Widget {
	case fields.KindTextArea:
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.Prompt = ""
		ta.SetWidth(maxInt(20, width-4))
		ta.SetHeight(5)
		ta.SetValue(initial)
		ta.Focus()
		e.area = ta
	case fields.KindMultiSelect:
		e.multi = edit.NewMultiPick(sess.Spec.Options, initial)
		e.options = e.multi.Options()
	default:
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = maxInt(10, width-4)
		switch sess.Widget {
		case fields.KindDate:
			ti.Placeholder = "DD/MM/YYYY"
			ti.CharLimit = 10
			ti.SetValue(fields.MaskDate(initial))
		case fields.KindSelect:
			ti.Placeholder = "type to search"
			e.options = append([]string(nil), sess.Spec.Options...)
			e.filtered = e.options
			// Nothing highlighted until the user picks; closing keeps the value.
			e.cursor = -1
			for i, o := range e.filtered {
				if o == initial {
					e.cursor = i
				}
			}
		default:
			ti.SetValue(initial)
		}
		ti.CursorEnd()
		ti.Focus()
		e.input = ti
	}
	return e
}

// multiline editors take Tab and Enter as text.
func (e *fieldEditor) multiline() bool { return e.sess.Widget == fields.KindTextArea }

// value is what closing the editor right now would commit.
func (e *fieldEditor) value() string {
	switch e.sess.Widget {
	case fields.KindTextArea:
		return e.area.Value()
	case fields.KindMultiSelect:
		return e.multi.Value()
	case fields.KindSelect:
		if e.cursor >= 0 && e.cursor < len(e.filtered) {
			return e.filtered[e.cursor]
		}
		return e.sess.InitialValue()
	default:
		return e.input.Value()
	}
}

// update feeds a key to the widget.
func (e *fieldEditor) update(msg tea.KeyMsg) tea.Cmd {
	switch e.sess.Widget {
	case fields.KindTextArea:
		var cmd tea.Cmd
		e.area, cmd = e.area.Update(msg)
		return cmd
	case fields.KindMultiSelect:
		switch msg.String() {
		case "up", "ctrl+p":
			e.move(-1, len(e.options))
		case "down", "ctrl+n":
			e.move(1, len(e.options))
		case " ", "x":
			if e.cursor < len(e.options) {
				e.multi.Toggle(e.options[e.cursor])
			}
		}
		return nil
	case fields.KindSelect:
		switch msg.String() {
		case "up", "ctrl+p":
			e.move(-1, len(e.filtered))
			return nil
		case "down", "ctrl+n":
			e.move(1, len(e.filtered))
			return nil
		}
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		e.filtered = edit.FilterOptions(e.options, e.input.Value())
		e.cursor = 0
		return cmd
	case fields.KindDate:
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		if masked := fields.MaskDate(e.input.Value()); masked != e.input.Value() {
			e.input.SetValue(masked)
			e.input.CursorEnd()
		}
		return cmd
	default:
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		return cmd
	}
}

func (e *fieldEditor) move(delta, n int) {
	if n == 0 {
		e.cursor = 0
		return
	}
	if e.cursor < 0 {
		e.cursor = 0
		if delta < 0 {
			e.cursor = n - 1
		}
		return
	}
	e.cursor = (e.cursor + delta + n) % n
}

func (e *fieldEditor) view(width int) string {
	switch e.sess.Widget {
	case fields.KindTextArea:
		e.area.SetWidth(maxInt(20, width-4))
		return e.area.View() + "\n" + styleMuted().Render("ctrl+s: save  esc: cancel")
	case fields.KindMultiSelect:
		return e.optionList(e.options, func(o string) string {
			if e.multi.Picked(o) {
				return "[x] " + o
			}
			return "[ ] " + o
		}) + "\n" + styleMuted().Render("space: toggle  enter: save  esc: cancel")
	case fields.KindSelect:
		lines := []string{renderInputLine(width, e.input.View())}
		if len(e.filtered) == 0 {
			lines = append(lines, styleMuted().Render("  no matches"))
		} else {
			lines = append(lines, e.optionList(e.filtered, func(o string) string { return o }))
		}
		return strings.Join(lines, "\n")
	default:
		return renderInputLine(width, e.input.View())
	}
}

func (e *fieldEditor) optionList(opts []string, label func(string) string) string {
	start := 0
	if e.cursor >= maxPickerRows {
		start = e.cursor - maxPickerRows + 1
	}
	end := minInt(len(opts), start+maxPickerRows)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := "  " + label(opts[i])
		if i == e.cursor {
			line = selectedRowStyle.Render("> " + label(opts[i]))
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
