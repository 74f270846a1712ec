package tui

import (
	"fmt"
	"strings"

	"visadesk/internal/fields"
	"visadesk/internal/listing"
	"visadesk/internal/render"

	"github.com/charmbracelet/lipgloss"
)

const labelWidth = 22

func (m appModel) View() string {
	w := m.width
	if w <= 0 {
		w = 100
	}
	h := m.height
	if h <= 0 {
		h = 30
	}

	header := m.viewHeader(w)
	footer := m.viewFooter(w)
	overlay := m.viewOverlay(w)

	avail := h - lipgloss.Height(header) - lipgloss.Height(footer)
	if overlay != "" {
		avail -= lipgloss.Height(overlay)
	}
	if avail < 1 {
		avail = 1
	}

	parts := []string{header, m.viewBody(w, avail)}
	if overlay != "" {
		parts = append(parts, overlay)
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m appModel) viewHeader(w int) string {
	title := headerStyle.Render("Travelers")
	shown := len(m.board.Groups())
	counts := fmt.Sprintf("%d shown · %d loaded", shown, len(m.state.All))
	if m.state.Total > 0 {
		counts += fmt.Sprintf(" of %d", m.state.Total)
	}
	if m.loading {
		counts += " · loading…"
	} else if len(m.pendingChunks) > 0 {
		counts += " · rendering…"
	}
	line := title + "  " + styleMuted().Render(counts)

	var tags []string
	if m.state.Search != "" {
		tags = append(tags, "search: "+m.state.Search)
	}
	for _, c := range listing.Columns {
		if v, ok := m.state.Filters[c]; ok {
			tags = append(tags, columnTitle(c)+": "+v)
		}
	}
	if m.state.Sort.Type != listing.SortNone {
		dir := "↑"
		if !m.state.Sort.Asc {
			dir = "↓"
		}
		tags = append(tags, "sort: "+strings.ReplaceAll(string(m.state.Sort.Type), "_", " ")+" "+dir)
	}
	if len(tags) == 0 {
		return truncate(line, w) + "\n"
	}
	return truncate(line, w) + "\n" + truncate(styleMuted().Render(strings.Join(tags, "  ")), w)
}

// viewBody renders the board and scrolls so the selected row stays visible.
func (m appModel) viewBody(w, h int) string {
	if m.state.Err != nil && len(m.state.All) == 0 {
		return errorStyle.Render("Could not load travelers: "+m.state.Err.Error()) + "\n" + styleMuted().Render("r: retry")
	}
	if len(m.board.Groups()) == 0 {
		switch {
		case m.loading:
			return styleMuted().Render("Loading…")
		case len(m.state.All) > 0:
			return styleMuted().Render("No travelers match the current search and filters.")
		default:
			return styleMuted().Render("No travelers yet. n: new traveler")
		}
	}

	var lines []string
	cursorLine := 0
	i := 0
	for _, gv := range m.board.Groups() {
		for _, v := range gv.Views() {
			if i == m.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, m.viewRow(gv, v, i == m.cursor, w))
			if v.Expanded {
				lines = append(lines, m.viewRecordBody(v, w)...)
			}
			i++
		}
	}
	if m.state.HasMore() {
		lines = append(lines, styleMuted().Render(fmt.Sprintf("… page %d of %d  m: load more  M: load all", m.state.Page+1, m.state.TotalPages)))
	}

	offset := m.offset
	if cursorLine < offset {
		offset = cursorLine
	}
	if cursorLine >= offset+h {
		offset = cursorLine - h + 1
	}
	// Keep the selected record's body on screen while editing.
	if m.mode == modeEdit {
		if el := m.editorLine(lines, cursorLine); el >= offset+h {
			offset = el - h + 1
		}
	}
	if offset > len(lines)-1 {
		offset = maxInt(0, len(lines)-1)
	}
	end := minInt(len(lines), offset+h)
	return strings.Join(lines[offset:end], "\n")
}

// editorLine finds the open editor below the cursor row.
func (m appModel) editorLine(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], editorMarker) {
			return i
		}
	}
	return from
}

const editorMarker = "✎"

func (m appModel) viewRow(gv *render.GroupView, v *render.RecordView, selected bool, w int) string {
	marker := "▸ "
	if v.Expanded {
		marker = "▾ "
	}
	indent := ""
	if v.Kind == render.KindDependent {
		indent = "    "
	}

	name := v.Header.Name
	if v.Header.NamePlaceholder {
		name = placeholderStyle.Render(name)
	}
	parts := []string{indent + marker + name}
	if v.Header.Status != "" {
		parts = append(parts, statusStyle(v.Header.StatusClass).Render(v.Header.Status))
	}
	if v.Kind == render.KindTraveler {
		parts = append(parts, progressStyle.Render(fmt.Sprintf("%d%%", v.Header.Progress)))
		if n := v.Header.DependentCount; n > 0 {
			parts = append(parts, styleMuted().Render(fmt.Sprintf("+%d", n)))
		}
		parts = append(parts, styleMuted().Render(fmt.Sprintf("#%d", gv.ID())))
	}
	line := truncate(strings.Join(parts, "  "), w)
	if selected {
		return selectedRowStyle.Render(padRight(line, w))
	}
	return line
}

func (m appModel) viewRecordBody(v *render.RecordView, w int) []string {
	pad := "      "
	if v.Kind == render.KindDependent {
		pad = "          "
	}
	if v.Loading {
		return []string{pad + styleMuted().Render("loading…")}
	}
	if !v.BodyLoaded {
		return nil
	}
	valueWidth := maxInt(10, w-len(pad)-labelWidth)
	var out []string
	for _, f := range v.Order {
		if !v.Visible(f) {
			continue
		}
		spec := m.reg.Lookup(f)
		label := labelStyle.Render(padRight(truncate(spec.Label, labelWidth-1), labelWidth))

		if m.editor != nil && m.editor.sess.Key == v.Key(f) {
			ed := strings.Split(m.editor.view(valueWidth), "\n")
			out = append(out, pad+editingStyle.Render(padRight(truncate(editorMarker+" "+spec.Label, labelWidth-1), labelWidth))+ed[0])
			for _, l := range ed[1:] {
				out = append(out, pad+strings.Repeat(" ", labelWidth)+l)
			}
			continue
		}

		d := v.Fields[f]
		var value string
		switch {
		case d.Placeholder && d.Highlight:
			value = missingStyle.Render(d.Text)
		case d.Placeholder:
			value = placeholderStyle.Render(d.Text)
		case d.Link:
			value = linkStyle.Render(truncate(d.Text, valueWidth))
		case spec.Kind() == fields.KindTextArea && m.renderNotes:
			rendered := strings.Split(strings.TrimRight(renderNotes(d.Text, valueWidth), "\n"), "\n")
			out = append(out, pad+label+rendered[0])
			for _, l := range rendered[1:] {
				out = append(out, pad+strings.Repeat(" ", labelWidth)+l)
			}
			continue
		default:
			value = truncate(strings.ReplaceAll(d.Text, "\n", " ⏎ "), valueWidth)
		}
		out = append(out, pad+label+value)
	}
	return out
}

func (m appModel) viewOverlay(w int) string {
	switch m.mode {
	case modeSearch:
		return renderInputLine(w, m.search.View())
	case modeFilterColumn:
		return m.columns.View()
	case modeFilterValue:
		choices := m.filterChoices()
		lines := []string{
			headerStyle.Render("Filter " + columnTitle(m.filterCol)),
			renderInputLine(minInt(w, 40), m.filterQuery.View()),
		}
		start := 0
		if m.filterIdx >= maxPickerRows {
			start = m.filterIdx - maxPickerRows + 1
		}
		for i := start; i < len(choices) && i < start+maxPickerRows; i++ {
			if i == m.filterIdx {
				lines = append(lines, selectedRowStyle.Render("> "+choices[i]))
			} else {
				lines = append(lines, "  "+choices[i])
			}
		}
		return strings.Join(lines, "\n")
	case modeConfirmDelete:
		r, ok := m.current()
		if !ok {
			return ""
		}
		name := ""
		if _, v, found := m.board.Find(r.table, r.id); found {
			name = v.Header.Name
		}
		return errorStyle.Render(fmt.Sprintf("Delete %s %q? y/n", singular(r.table), name))
	case modePostcode:
		return renderInputLine(w, m.prompt.View())
	case modePassport:
		return headerStyle.Render("Passport MRZ") + "\n" + m.mrz.View() + "\n" + styleMuted().Render("ctrl+s: apply  esc: cancel")
	}
	return ""
}

func (m appModel) viewFooter(w int) string {
	msg := ""
	if m.minibufferText != "" {
		msg = minibufferStyle.Render(truncate(m.minibufferText, w))
	}
	var help string
	switch m.mode {
	case modeEdit:
		help = "enter: save  tab/shift+tab: next/prev field  esc: cancel"
	case modeSearch:
		help = "enter: keep  esc: clear"
	case modeFilterColumn, modeFilterValue:
		help = "enter: choose  esc: back"
	case modePostcode:
		help = "enter: look up  esc: cancel"
	default:
		help = "enter: expand  e: edit  /: search  f: filter  F: clear  s/S: sort  n: new  a: add dependent  d: delete  P: postcode  p: passport  q: quit"
	}
	return msg + "\n" + styleMuted().Render(truncate(help, w))
}
