package layermanager

import (
	"slices"

	"github.com/joeblew999/plat-viewer/internal/layer"
)

// SetBackgroundLayers reconciles the background group with specs. The
// first spec renders on top.
func (m *Manager) SetBackgroundLayers(specs []layer.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fps := fingerprints(specs)
	if slices.Equal(fps, m.prevBackground) {
		return
	}
	m.reconcile(m.background, specs, false, func(*engineLayer) bool { return true })
	m.prevBackground = fps
	m.restack()
}

// SetLayers reconciles the base group with the service specs and the
// vector group with the vector specs. The first spec renders on top unless
// a spec carries a z-index hint. When the fingerprints of specs equal
// those of the previous call nothing is touched.
//
// Vector layers added with AddLayer are left alone unless specs name
// them.
func (m *Manager) SetLayers(specs []layer.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fps := fingerprints(specs)
	if slices.Equal(fps, m.prevLayers) {
		return
	}
	var services, vectors []layer.Spec
	for _, s := range specs {
		if s.Kind == layer.KindVector {
			vectors = append(vectors, s)
		} else {
			services = append(services, s)
		}
	}
	m.reconcile(m.base, services, true, func(*engineLayer) bool { return true })
	m.reconcile(m.vector, vectors, true, func(l *engineLayer) bool { return l.managed })
	m.prevLayers = fps
	m.restack()
}

// reconcile removes owned layers missing from specs, updates survivors in
// place and creates new layers. owned selects the layers of g this call is
// responsible for.
func (m *Manager) reconcile(g *group, specs []layer.Spec, hints bool, owned func(*engineLayer) bool) {
	keep := make(map[string]bool, len(specs))
	for _, s := range specs {
		keep[s.ID] = true
	}
	for _, id := range slices.Clone(g.order) {
		if l := g.layers[id]; !keep[id] && owned(l) {
			g.remove(id)
			m.mutated()
			m.logger.Debug("layer removed", "group", g.name, "id", id)
		}
	}

	n := len(specs)
	for i, spec := range specs {
		natural := n - 1 - i
		if hints && spec.ZIndexHint != nil {
			natural = max(0, *spec.ZIndexHint)
		}
		if l, ok := g.layers[spec.ID]; ok && l.spec.Kind == spec.Kind {
			if l.update(spec) {
				m.mutated()
			}
			l.natural = natural
			l.managed = true
			continue
		}
		m.evict(g, spec.ID)
		l := newEngineLayer(spec, g.name)
		if l == nil {
			m.logger.Debug("layer not renderable", "group", g.name, "id", spec.ID, "kind", spec.Kind)
			continue
		}
		l.natural = natural
		l.managed = true
		l.zIndex = -1
		g.put(spec.ID, l)
		m.mutated()
		m.logger.Debug("layer created", "group", g.name, "id", spec.ID, "kind", spec.Kind)
	}
}

// evict drops an existing layer before id is recreated in g, for layers
// that change kind or move between the base and vector groups. The
// background group keeps its own ids.
func (m *Manager) evict(g *group, id string) {
	groups := []*group{m.base, m.vector}
	if g == m.background {
		groups = []*group{m.background}
	}
	for _, g := range groups {
		if g.remove(id) {
			m.mutated()
		}
	}
}

func fingerprints(specs []layer.Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = fingerprint(s)
	}
	return out
}
