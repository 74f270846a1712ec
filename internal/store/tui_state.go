package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const uiStateFileName = "ui_state.json"

// DashboardKey namespaces the listing state inside ui_state.json.
const DashboardKey = "visaDashboard"

// SortState is the persisted sort selection.
type SortState struct {
	Type string `json:"type,omitempty"`
	Asc  bool   `json:"asc"`
}

// ListingState is the persisted list view: search, column filters, sort,
// the most recently expanded record and the scroll-to-new flag.
type ListingState struct {
	Search           string            `json:"search,omitempty"`
	Filters          map[string]string `json:"filters,omitempty"`
	Sort             SortState         `json:"sort"`
	ExpandedRecordID string            `json:"expandedRecordId,omitempty"`
	ScrollToNew      bool              `json:"scrollToNew,omitempty"`
}

// UIState is small, user-facing state restored on relaunch. It is best
// effort: callers tolerate missing or invalid data.
type UIState struct {
	Version   int           `json:"version"`
	Dashboard *ListingState `json:"visaDashboard,omitempty"`
}

func (s Store) uiStatePath() string {
	return filepath.Join(s.Dir, uiStateFileName)
}

func (s Store) LoadUIState() (*UIState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return &UIState{Version: 1}, nil
	}
	b, err := os.ReadFile(s.uiStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s Store) SaveUIState(st *UIState) error {
	if st == nil {
		return nil
	}
	if strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.uiStatePath(), b, 0o644)
}

// LoadListing returns the persisted listing state, or a zero value.
func (s Store) LoadListing() ListingState {
	st, err := s.LoadUIState()
	if err != nil || st.Dashboard == nil {
		return ListingState{}
	}
	return *st.Dashboard
}

// SaveListing replaces the listing namespace of ui_state.json.
func (s Store) SaveListing(ls ListingState) error {
	st, err := s.LoadUIState()
	if err != nil {
		st = &UIState{Version: 1}
	}
	st.Dashboard = &ls
	return s.SaveUIState(st)
}

// ResetUIState removes ui_state.json.
func (s Store) ResetUIState() error {
	if strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	err := os.Remove(s.uiStatePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
