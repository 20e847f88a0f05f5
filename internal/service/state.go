package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

var (
	// ErrLayerNotFound is returned for unknown application or drawing
	// layers.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrDuplicateLayer is returned when a created layer id is taken.
	ErrDuplicateLayer = errors.New("layer already exists")
)

// AppStateService owns the application state and persists it as JSON in
// the data directory. Every mutation is published on the event bus.
type AppStateService struct {
	dataDir  string
	bus      *EventBus
	state    AppState
	watchers map[*Watcher]struct{}
	mu       sync.RWMutex
}

// NewAppStateService creates the service and loads any saved state.
func NewAppStateService(dataDir string, bus *EventBus) *AppStateService {
	if bus == nil {
		bus = NewEventBus()
	}
	s := &AppStateService{dataDir: dataDir, bus: bus, watchers: make(map[*Watcher]struct{})}
	s.loadFromDisk()
	return s
}

// Bus returns the event bus mutations are published on.
func (s *AppStateService) Bus() *EventBus { return s.bus }

// Snapshot returns a copy of the current state.
func (s *AppStateService) Snapshot() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Layer returns an application layer by id.
func (s *AppStateService) Layer(id int) (layer.AppLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.layerIndex(id)
	if i < 0 {
		return layer.AppLayer{}, false
	}
	return s.state.Layers[i], true
}

// LoadYAML replaces the state with an application configuration file.
// Group nodes of both trees start expanded.
func (s *AppStateService) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read app config: %w", err)
	}
	var st AppState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("parse app config %s: %w", path, err)
	}
	st.LayerTree = layertree.ExpandGroups(st.LayerTree)
	st.BackgroundTree = layertree.ExpandGroups(st.BackgroundTree)
	return s.Replace(st)
}

// Replace swaps in a whole new state.
func (s *AppStateService) Replace(st AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.clone()
	return s.commit(Event{Resource: ResourceState, Action: "loaded"})
}

// SetLayerVisibility shows or hides an application layer.
func (s *AppStateService) SetLayerVisibility(id int, visible bool) error {
	return s.updateLayer(id, func(l *layer.AppLayer) { l.Visible = visible })
}

// SetLayerOpacity sets an application layer's opacity (0-100).
func (s *AppStateService) SetLayerOpacity(id, opacity int) error {
	return s.updateLayer(id, func(l *layer.AppLayer) { l.Opacity = min(max(opacity, 0), 100) })
}

func (s *AppStateService) updateLayer(id int, fn func(*layer.AppLayer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("app layer %d: %w", id, ErrLayerNotFound)
	}
	fn(&s.state.Layers[i])
	return s.commit(Event{Resource: ResourceLayers, Action: "updated", ID: strconv.Itoa(id)})
}

// SetFilter sets or, with an empty predicate, clears the filter of an
// application layer.
func (s *AppStateService) SetFilter(id int, filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layerIndex(id) < 0 {
		return fmt.Errorf("app layer %d: %w", id, ErrLayerNotFound)
	}
	key := strconv.Itoa(id)
	if filter == "" {
		delete(s.state.Filters, key)
	} else {
		if s.state.Filters == nil {
			s.state.Filters = make(map[string]string)
		}
		s.state.Filters[key] = filter
	}
	return s.commit(Event{Resource: ResourceFilters, Action: "updated", ID: key})
}

// MoveNode moves a tree node relative to a target node. Errors from the
// tree, such as layertree.ErrCyclicMove, leave the state unchanged.
func (s *AppStateService) MoveNode(kind TreeKind, nodeID, targetID string, pos layertree.Position) error {
	return s.editTree(kind, nodeID, "moved", func(t *layertree.Tree) (*layertree.Tree, error) {
		return t.MoveRelative(nodeID, targetID, pos)
	})
}

// ToggleExpanded flips the expanded flag of a tree node.
func (s *AppStateService) ToggleExpanded(kind TreeKind, nodeID string) error {
	return s.editTree(kind, nodeID, "updated", func(t *layertree.Tree) (*layertree.Tree, error) {
		return t.ToggleExpanded(nodeID)
	})
}

func (s *AppStateService) editTree(kind TreeKind, nodeID, action string, fn func(*layertree.Tree) (*layertree.Tree, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := s.tree(kind)
	if nodes == nil {
		return fmt.Errorf("unknown tree %q", kind)
	}
	t, err := fn(layertree.New(*nodes))
	if err != nil {
		return err
	}
	*nodes = t.Nodes()
	res := ResourceTree
	if kind == TreeBackground {
		res = ResourceBackground
	}
	return s.commit(Event{Resource: res, Action: action, ID: nodeID})
}

func (s *AppStateService) tree(kind TreeKind) *[]layertree.Node {
	switch kind {
	case TreeLayers:
		return &s.state.LayerTree
	case TreeBackground:
		return &s.state.BackgroundTree
	}
	return nil
}

// SelectBackground selects a background tree node.
func (s *AppStateService) SelectBackground(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := layertree.New(s.state.BackgroundTree).Node(nodeID); !ok {
		return fmt.Errorf("background %q: %w", nodeID, layertree.ErrNodeNotFound)
	}
	s.state.SelectedBackground = nodeID
	return s.commit(Event{Resource: ResourceBackground, Action: "selected", ID: nodeID})
}

// DrawingLayer returns a drawing layer by id.
func (s *AppStateService) DrawingLayer(id string) (DrawingLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.state.DrawingLayers {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return DrawingLayer{}, false
}

// UpsertDrawingLayer creates or replaces a drawing layer. A missing id is
// derived from the name.
func (s *AppStateService) UpsertDrawingLayer(d DrawingLayer) (DrawingLayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Generate ID from name if not provided
	if d.ID == "" {
		d.ID = generateID(d.Name)
		if d.ID == "" {
			return DrawingLayer{}, fmt.Errorf("drawing layer needs an id or a name")
		}
	}
	action := "created"
	for i, existing := range s.state.DrawingLayers {
		if existing.ID == d.ID {
			s.state.DrawingLayers[i] = d.clone()
			action = "updated"
		}
	}
	if action == "created" {
		s.state.DrawingLayers = append(s.state.DrawingLayers, d.clone())
	}
	if err := s.commit(Event{Resource: ResourceDrawing, Action: action, ID: d.ID}); err != nil {
		return DrawingLayer{}, err
	}
	return d, nil
}

// RemoveDrawingLayer deletes a drawing layer.
func (s *AppStateService) RemoveDrawingLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.state.DrawingLayers)
	s.state.DrawingLayers = slices.DeleteFunc(s.state.DrawingLayers, func(d DrawingLayer) bool { return d.ID == id })
	if len(s.state.DrawingLayers) == n {
		return fmt.Errorf("drawing layer %q: %w", id, ErrLayerNotFound)
	}
	return s.commit(Event{Resource: ResourceDrawing, Action: "deleted", ID: id})
}

func (s *AppStateService) layerIndex(id int) int {
	return slices.IndexFunc(s.state.Layers, func(l layer.AppLayer) bool { return l.ID == id })
}

// commit persists the state, queues a snapshot for every watcher and
// publishes e. Callers hold the write lock.
func (s *AppStateService) commit(e Event) error {
	if err := s.saveToDisk(); err != nil {
		return err
	}
	s.notify(e)
	return nil
}

// stateFile returns the path to the persisted state.
func (s *AppStateService) stateFile() string {
	return filepath.Join(s.dataDir, "state.json")
}

// loadFromDisk loads saved state from disk.
func (s *AppStateService) loadFromDisk() {
	data, err := os.ReadFile(s.stateFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var st AppState
	if err := json.Unmarshal(data, &st); err != nil {
		return // Invalid JSON, start empty
	}

	s.state = st
}

// saveToDisk persists the state to disk.
func (s *AppStateService) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	// Ensure data directory exists
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.stateFile(), data, 0644)
}

func (st AppState) clone() AppState {
	out := st
	out.Services = slices.Clone(st.Services)
	out.Layers = slices.Clone(st.Layers)
	out.LayerTree = layertree.New(st.LayerTree).Nodes()
	out.BackgroundTree = layertree.New(st.BackgroundTree).Nodes()
	out.Filters = maps.Clone(st.Filters)
	out.DrawingLayers = make([]DrawingLayer, len(st.DrawingLayers))
	for i, d := range st.DrawingLayers {
		out.DrawingLayers[i] = d.clone()
	}
	return out
}

func (d DrawingLayer) clone() DrawingLayer {
	d.Style = cloneDescriptor(d.Style)
	return d
}

func cloneDescriptor(d mapstyle.Descriptor) mapstyle.Descriptor {
	d.LabelStyle = slices.Clone(d.LabelStyle)
	for _, p := range []**float64{&d.PointSize, &d.PointStrokeWidth, &d.LabelSize} {
		if *p != nil {
			*p = mapstyle.Float(**p)
		}
	}
	return d
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	// Remove any characters that aren't alphanumeric or underscore
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
