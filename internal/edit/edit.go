// Package edit is the in-place field editor: a per-field state machine
// (Idle -> Editing -> Committing|Reverting -> Idle) with no UI attached.
package edit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"visadesk/internal/fields"
	"visadesk/internal/record"
)

// Key addresses one field of one record.
type Key struct {
	Table record.Table
	ID    int64
	Field string
}

func (k Key) String() string {
	return string(k.Table) + "/" + strconv.FormatInt(k.ID, 10) + "." + k.Field
}

// Display is how a field renders when it is not being edited.
type Display struct {
	Text        string
	Placeholder bool
	Highlight   bool
	Link        bool
}

// Value is the real value behind a display ("" for placeholders).
func (d Display) Value() string {
	if d.Placeholder {
		return ""
	}
	return d.Text
}

// DisplayFor renders a value through the registry: empty values show the
// placeholder and are highlighted unless the field suppresses highlight.
func DisplayFor(spec fields.Spec, value string) Display {
	if strings.TrimSpace(value) == "" {
		return Display{
			Text:        spec.Placeholder,
			Placeholder: true,
			Highlight:   !spec.SuppressHighlight,
		}
	}
	return Display{Text: value, Link: spec.Link}
}

type State int

const (
	Idle State = iota
	Editing
	Committing
	Reverting
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	case Reverting:
		return "reverting"
	default:
		return "idle"
	}
}

var (
	ErrAlreadyEditing = errors.New("field is already being edited")
	ErrNotEditing     = errors.New("field is not being edited")
	// ErrMultilineTab is returned when Tab is used to leave a multi-line editor;
	// the editor keeps the key instead.
	ErrMultilineTab = errors.New("tab does not leave a multi-line editor")
)

// Controller guards against two editors on the same field.
type Controller struct {
	reg  *fields.Registry
	open map[Key]*Session
}

func NewController(reg *fields.Registry) *Controller {
	return &Controller{reg: reg, open: map[Key]*Session{}}
}

func (c *Controller) IsEditing(k Key) bool {
	_, ok := c.open[k]
	return ok
}

// OpenCount is the number of fields currently in the Editing state.
func (c *Controller) OpenCount() int { return len(c.open) }

// Open moves a field from Idle to Editing, snapshotting its current display.
func (c *Controller) Open(k Key, current Display) (*Session, error) {
	if c.IsEditing(k) {
		return nil, fmt.Errorf("%s: %w", k, ErrAlreadyEditing)
	}
	spec := c.reg.Lookup(k.Field)
	s := &Session{
		Key:      k,
		Spec:     spec,
		Widget:   spec.Kind(),
		Original: current,
		state:    Editing,
		ctrl:     c,
	}
	c.open[k] = s
	return s, nil
}

// Session is one open editor.
type Session struct {
	Key      Key
	Spec     fields.Spec
	Widget   fields.Kind
	Original Display

	state State
	exit  State
	ctrl  *Controller
}

func (s *Session) State() State { return s.state }

// InitialValue is what the editor starts with: the real value, never the placeholder.
func (s *Session) InitialValue() string { return s.Original.Value() }

// Outcome is the result of leaving the Editing state.
type Outcome struct {
	// Path is Committing or Reverting.
	Path State
	// Restore is the display to put back on the Reverting path.
	Restore Display
	// Commit is set on the Committing path.
	Commit Commit
	// Err is a validation error that forced a revert.
	Err error
}

// Commit is handed to the update coordinator.
type Commit struct {
	Key Key
	// Value is the new value in display format.
	Value string
	// Original is the pre-edit display (originalDisplayText + wasPlaceholder).
	Original Display
}

func (s *Session) normalize(v string) string {
	switch s.Widget {
	case fields.KindTextArea:
		return strings.TrimRight(v, " \t\r\n")
	case fields.KindMultiSelect:
		return fields.JoinMulti(fields.SplitMulti(v))
	default:
		return strings.TrimSpace(v)
	}
}

// Close leaves the editor with value (blur, Enter, or picker close).
// Unchanged values and invalid dates revert; anything else commits.
func (s *Session) Close(value string) (Outcome, error) {
	if s.state != Editing {
		return Outcome{}, fmt.Errorf("%s: %w", s.Key, ErrNotEditing)
	}
	value = s.normalize(value)
	if value == s.normalize(s.Original.Value()) {
		return s.finish(Outcome{Path: Reverting, Restore: s.Original}), nil
	}
	if s.Spec.Date {
		if err := fields.ValidateDate(value); err != nil {
			return s.finish(Outcome{Path: Reverting, Restore: s.Original, Err: err}), nil
		}
	}
	return s.finish(Outcome{
		Path:   Committing,
		Commit: Commit{Key: s.Key, Value: value, Original: s.Original},
	}), nil
}

// Cancel leaves the editor without saving (Escape).
func (s *Session) Cancel() (Outcome, error) {
	if s.state != Editing {
		return Outcome{}, fmt.Errorf("%s: %w", s.Key, ErrNotEditing)
	}
	return s.finish(Outcome{Path: Reverting, Restore: s.Original}), nil
}

func (s *Session) finish(o Outcome) Outcome {
	s.exit = o.Path
	delete(s.ctrl.open, s.Key)
	s.state = Idle
	return o
}

// Exit is the path the session last left Editing by (Committing or Reverting).
func (s *Session) Exit() State { return s.exit }

// Tab commits the current field and returns the field to open next in the
// traversal. ok is false at either end of the traversal.
func (s *Session) Tab(value string, t Traversal, backward bool) (Outcome, Key, bool, error) {
	if s.Widget == fields.KindTextArea {
		return Outcome{}, Key{}, false, ErrMultilineTab
	}
	out, err := s.Close(value)
	if err != nil {
		return Outcome{}, Key{}, false, err
	}
	var next Key
	var ok bool
	if backward {
		next, ok = t.Prev(s.Key)
	} else {
		next, ok = t.Next(s.Key)
	}
	return out, next, ok, nil
}
