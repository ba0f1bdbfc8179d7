// Package app holds the application state shared by the windows: the open
// machine project, its catalog and the selected part.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"manual-markers/internal/catalog"
	"manual-markers/internal/marker"
	"manual-markers/internal/project"
	"manual-markers/internal/vinculo"
)

// EventType identifies application events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventPartsChanged
	EventSelectionChanged
	EventMarkersChanged
	EventManualChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// ErrNoProject is returned when an operation needs an open project.
var ErrNoProject = errors.New("no project open")

// State is the application state. Listeners run on the goroutine that
// emitted the event.
type State struct {
	mu sync.RWMutex

	ProjectPath string
	Project     *project.File

	store    catalog.Store
	parts    []*catalog.Repuesto
	selected string

	logger    *zap.Logger
	listeners map[EventType][]EventListener
}

// NewState creates a state backed by store.
func NewState(store catalog.Store, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		store:     store,
		logger:    logger,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// OpenProject loads a project file and the parts of its machine.
func (s *State) OpenProject(ctx context.Context, path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ProjectPath = path
	s.Project = proj
	s.selected = ""
	s.mu.Unlock()

	s.logger.Info("project opened", zap.String("path", path), zap.String("machine", proj.Name))
	s.Emit(EventProjectLoaded, path)
	s.Emit(EventManualChanged, proj.ManualURL(path))
	return s.RefreshParts(ctx)
}

// SetManual points the open project at a new manual and saves it.
func (s *State) SetManual(manual string) error {
	s.mu.Lock()
	proj, path := s.Project, s.ProjectPath
	if proj == nil {
		s.mu.Unlock()
		return ErrNoProject
	}
	proj.SetManual(path, manual)
	s.mu.Unlock()

	if err := proj.Save(path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	s.Emit(EventManualChanged, proj.ManualURL(path))
	return nil
}

// ManualURL returns the manual of the open project.
func (s *State) ManualURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Project == nil {
		return ""
	}
	return s.Project.ManualURL(s.ProjectPath)
}

// RefreshParts reloads the machine's parts from the catalog.
func (s *State) RefreshParts(ctx context.Context) error {
	s.mu.RLock()
	maquina := ""
	if s.Project != nil {
		maquina = s.Project.Name
	}
	s.mu.RUnlock()

	parts, err := s.store.List(ctx, maquina)
	if err != nil {
		return fmt.Errorf("list parts: %w", err)
	}
	s.mu.Lock()
	s.parts = parts
	s.mu.Unlock()
	s.Emit(EventPartsChanged, len(parts))
	return nil
}

// Parts returns the loaded parts.
func (s *State) Parts() []*catalog.Repuesto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*catalog.Repuesto(nil), s.parts...)
}

// Select makes id the part whose markers are shown.
func (s *State) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.Emit(EventSelectionChanged, id)
}

// Selected returns the selected part, or nil.
func (s *State) Selected() *catalog.Repuesto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.parts {
		if p.ID == s.selected {
			return p
		}
	}
	return nil
}

// SaveMarker appends v to the selected part.
func (s *State) SaveMarker(ctx context.Context, v catalog.VinculoManual) (int, error) {
	part := s.Selected()
	if part == nil {
		return 0, fmt.Errorf("save marker: %w", catalog.ErrNotFound)
	}
	idx, err := s.store.AddVinculo(ctx, part.ID, v)
	if err != nil {
		return 0, fmt.Errorf("save marker: %w", err)
	}
	s.logger.Info("marker saved",
		zap.String("part", part.ID),
		zap.Int("index", idx),
		zap.Int("page", v.Pagina),
		zap.String("forma", v.Forma),
	)
	if err := s.RefreshParts(ctx); err != nil {
		return idx, err
	}
	s.Emit(EventMarkersChanged, part.ID)
	return idx, nil
}

// UpdateMarker replaces marker index of the selected part.
func (s *State) UpdateMarker(ctx context.Context, index int, v catalog.VinculoManual) error {
	part := s.Selected()
	if part == nil {
		return fmt.Errorf("update marker: %w", catalog.ErrNotFound)
	}
	if err := s.store.UpdateVinculo(ctx, part.ID, index, v); err != nil {
		return fmt.Errorf("update marker: %w", err)
	}
	s.logger.Info("marker updated",
		zap.String("part", part.ID),
		zap.Int("index", index),
		zap.Int("page", v.Pagina),
		zap.String("forma", v.Forma),
	)
	if err := s.RefreshParts(ctx); err != nil {
		return err
	}
	s.Emit(EventMarkersChanged, part.ID)
	return nil
}

// DeleteMarker removes marker index of the selected part.
func (s *State) DeleteMarker(ctx context.Context, index int) error {
	part := s.Selected()
	if part == nil {
		return fmt.Errorf("delete marker: %w", catalog.ErrNotFound)
	}
	if err := s.store.DeleteVinculo(ctx, part.ID, index); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	if err := s.RefreshParts(ctx); err != nil {
		return err
	}
	s.Emit(EventMarkersChanged, part.ID)
	return nil
}

// MarkersOn resolves the selected part's markers on page. It has the
// shape of viewer.MarkerSource.
func (s *State) MarkersOn(page int, width, height, scale float64) []marker.Item {
	part := s.Selected()
	if part == nil {
		return nil
	}
	items, bad := vinculo.OnPage(*part, page, width, height, scale)
	for i, err := range bad {
		s.logger.Warn("marker skipped", zap.String("part", part.ID), zap.Int("index", i), zap.Error(err))
	}
	return items
}
