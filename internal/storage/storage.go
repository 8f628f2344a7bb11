package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"led-frame-merger/internal/model"
)

type Store struct {
	path  string
	mu    sync.RWMutex
	state model.WorkflowState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.WorkflowState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	mergeDefaults(&state)
	s.state = state
	return nil
}

func defaultState() model.WorkflowState {
	return model.WorkflowState{
		Sessions:  map[string]model.Session{},
		CreatedAt: time.Now().UTC(),
	}
}

func mergeDefaults(state *model.WorkflowState) {
	if state.Sessions == nil {
		state.Sessions = map[string]model.Session{}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
}

func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.state); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o600)
}

func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) PutSession(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sessions[sess.ID] = cloneSession(sess)
	return s.saveLocked()
}

func (s *Store) GetSession(id string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.state.Sessions[id]
	if !ok {
		return nil
	}
	cp := cloneSession(sess)
	return &cp
}

// DeleteSession reports whether a session was removed.
func (s *Store) DeleteSession(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Sessions[id]; !ok {
		return false, nil
	}
	delete(s.state.Sessions, id)
	return true, s.saveLocked()
}

// ListSessions returns every session, oldest first.
func (s *Store) ListSessions() []model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Session, 0, len(s.state.Sessions))
	for _, sess := range s.state.Sessions {
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

func cloneSession(in model.Session) model.Session {
	out := in
	out.Base = in.Base.Clone()
	if in.Sources != nil {
		out.Sources = make([]model.SourceFile, len(in.Sources))
		for i, src := range in.Sources {
			src.Config = src.Config.Clone()
			out.Sources[i] = src
		}
	}
	out.Selections = model.SlotMap[[]model.SelectionRef]{}
	in.Selections.Each(func(slot model.Slot, refs []model.SelectionRef) {
		var cp []model.SelectionRef
		if refs != nil {
			cp = make([]model.SelectionRef, len(refs))
			copy(cp, refs)
		}
		out.Selections.Set(slot, cp)
	})
	return out
}
