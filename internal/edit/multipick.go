package edit

import "visadesk/internal/fields"

// MultiPick is the state of a multi-pick dropdown. Picks keep the order in
// which they were made.
type MultiPick struct {
	options []string
	picked  []string
}

func NewMultiPick(options []string, stored string) *MultiPick {
	return &MultiPick{
		options: append([]string(nil), options...),
		picked:  fields.SplitMulti(stored),
	}
}

func (m *MultiPick) Options() []string { return append([]string(nil), m.options...) }

func (m *MultiPick) Picked(opt string) bool {
	for _, p := range m.picked {
		if p == opt {
			return true
		}
	}
	return false
}

func (m *MultiPick) Toggle(opt string) {
	for i, p := range m.picked {
		if p == opt {
			m.picked = append(m.picked[:i], m.picked[i+1:]...)
			return
		}
	}
	m.picked = append(m.picked, opt)
}

// Value is the stored form, joined by " - ".
func (m *MultiPick) Value() string { return fields.JoinMulti(m.picked) }
