// Package layermanager owns the live render layer graph of a map.
//
// Callers hand in immutable layer specs; the manager keeps one mutable
// render object per layer id and reconciles each new snapshot against the
// previous one with the smallest set of changes: remove what vanished,
// update what survived in place, create what is new. Layers live in three
// groups that always stack background, base, vector from bottom to top.
package layermanager

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joeblew999/plat-viewer/internal/logging"
)

type group struct {
	name   Group
	layers map[string]*engineLayer
	// order is the container order, oldest first.
	order []string
}

func newGroup(name Group) *group {
	return &group{name: name, layers: make(map[string]*engineLayer)}
}

func (g *group) put(id string, l *engineLayer) {
	if _, ok := g.layers[id]; !ok {
		g.order = append(g.order, id)
	}
	g.layers[id] = l
}

func (g *group) remove(id string) bool {
	if _, ok := g.layers[id]; !ok {
		return false
	}
	delete(g.layers, id)
	g.order = slices.DeleteFunc(g.order, func(v string) bool { return v == id })
	return true
}

func (g *group) each(fn func(*engineLayer)) {
	for _, id := range g.order {
		fn(g.layers[id])
	}
}

// Manager reconciles layer specs into render layers. It is safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	background *group
	base       *group
	vector     *group

	prevBackground []string
	prevLayers     []string

	clock       func() time.Time
	lastRefresh int64
	mutations   int
	logger      *log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for cache busting.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrDiscard(logger) }
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		clock:  time.Now,
		logger: logging.Discard(),
	}
	m.reset()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) reset() {
	m.background = newGroup(GroupBackground)
	m.base = newGroup(GroupBase)
	m.vector = newGroup(GroupVector)
	m.prevBackground = nil
	m.prevLayers = nil
}

// Destroy releases every layer of every group. It may be called more than
// once.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.background.layers)+len(m.base.layers)+len(m.vector.layers) > 0 {
		m.mutations++
	}
	m.reset()
}

// Mutations returns the number of render-layer changes made so far.
func (m *Manager) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Layers returns the render stack, bottom layer first.
func (m *Manager) Layers() []Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Layer
	for _, g := range []*group{m.background, m.base, m.vector} {
		g.each(func(l *engineLayer) { out = append(out, l.snapshot()) })
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// GetLayer returns a snapshot of a base or vector layer.
func (m *Manager) GetLayer(id string) (Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lookup(id)
	if l == nil {
		return Layer{}, false
	}
	return l.snapshot(), true
}

// lookup finds a base or vector layer. Background layers are only reached
// through SetBackgroundLayers.
func (m *Manager) lookup(id string) *engineLayer {
	if l, ok := m.base.layers[id]; ok {
		return l
	}
	return m.vector.layers[id]
}

func (m *Manager) mutated() { m.mutations++ }

// restack recomputes every z-index. Background layers use their natural
// index, base layers sit above all background layers and vector layers are
// placed above the highest base layer in insertion order.
func (m *Manager) restack() {
	setZ := func(l *engineLayer, z int) {
		if l.zIndex != z {
			l.zIndex = z
			m.mutated()
		}
	}
	m.background.each(func(l *engineLayer) { setZ(l, l.natural) })

	offset := 0
	m.background.each(func(l *engineLayer) { offset = max(offset, l.natural+1) })
	offset = max(offset, len(m.background.layers))

	top := offset - 1
	m.base.each(func(l *engineLayer) {
		z := l.natural + offset
		setZ(l, z)
		top = max(top, z)
	})
	m.vector.each(func(l *engineLayer) {
		top++
		setZ(l, top)
	})
}
