package layermanager

import (
	"slices"
	"strconv"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// AddLayer adds or updates a single layer. Vector specs go to the vector
// group, where they stay until removed explicitly. A base layer without a
// z-index hint is placed on top of its group. It reports false when the
// spec cannot be rendered.
func (m *Manager) AddLayer(spec layer.Spec) (Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.addLayer(spec)
	m.restack()
	if l == nil {
		return Layer{}, false
	}
	return l.snapshot(), true
}

// AddLayers adds each spec as AddLayer does.
func (m *Manager) AddLayers(specs []layer.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range specs {
		m.addLayer(s)
	}
	m.restack()
}

func (m *Manager) addLayer(spec layer.Spec) *engineLayer {
	g := m.base
	if spec.Kind == layer.KindVector {
		g = m.vector
	}
	if l, ok := g.layers[spec.ID]; ok && l.spec.Kind == spec.Kind {
		if l.update(spec) {
			m.mutated()
		}
		if spec.ZIndexHint != nil {
			l.natural = max(0, *spec.ZIndexHint)
		}
		return l
	}
	m.evict(g, spec.ID)
	l := newEngineLayer(spec, g.name)
	if l == nil {
		m.logger.Debug("layer not renderable", "id", spec.ID, "kind", spec.Kind)
		return nil
	}
	l.zIndex = -1
	switch {
	case spec.ZIndexHint != nil:
		l.natural = max(0, *spec.ZIndexHint)
	case g == m.base:
		l.natural = 0
		g.each(func(o *engineLayer) { l.natural = max(l.natural, o.natural+1) })
	}
	g.put(spec.ID, l)
	m.mutated()
	m.logger.Debug("layer added", "group", g.name, "id", spec.ID)
	return l
}

// RemoveLayer removes a base or vector layer. Unknown ids are ignored.
func (m *Manager) RemoveLayer(id string) {
	m.RemoveLayers([]string{id})
}

// RemoveLayers removes base or vector layers. Unknown ids are ignored.
func (m *Manager) RemoveLayers(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if m.base.remove(id) || m.vector.remove(id) {
			m.mutated()
			m.logger.Debug("layer removed", "id", id)
		}
	}
	m.restack()
}

// SetLayerVisibility shows or hides a layer.
func (m *Manager) SetLayerVisibility(id string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := m.lookup(id); l != nil && l.visible != visible {
		l.visible = visible
		m.mutated()
	}
}

// SetLayerOpacity sets a layer's opacity from a 0-100 value.
func (m *Manager) SetLayerOpacity(id string, opacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lookup(id)
	if l == nil {
		return
	}
	a := layer.Spec{Opacity: opacity}.Alpha()
	if l.opacity != a {
		l.opacity = a
		m.mutated()
	}
}

// SetLayerOrder orders base layers bottom to top. Ids that are not base
// layers are skipped; unlisted layers keep their position.
func (m *Manager) SetLayerOrder(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := 0
	for _, id := range ids {
		if l, ok := m.base.layers[id]; ok {
			l.natural = i
			i++
		}
	}
	m.restack()
}

// RefreshLayer busts caches of an image or tiled base layer by setting a
// CACHE parameter to the current time in milliseconds. Successive calls
// always produce distinct values. Other layers are ignored.
func (m *Manager) RefreshLayer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.base.layers[id]
	if !ok {
		return
	}
	switch l.spec.Kind {
	case layer.KindImage:
		l.params["CACHE"] = m.cacheKey()
	case layer.KindTiled:
		key := m.cacheKey()
		for i, u := range l.tileURLs {
			l.tileURLs[i] = layer.SetParam(u, "CACHE", key)
		}
	default:
		return
	}
	m.mutated()
}

func (m *Manager) cacheKey() string {
	ts := m.clock().UnixMilli()
	if ts <= m.lastRefresh {
		ts = m.lastRefresh + 1
	}
	m.lastRefresh = ts
	return strconv.FormatInt(ts, 10)
}

// GetLegendURL returns the WMS GetLegendGraphic URL of an image layer, or
// "" for layers without a legend.
func (m *Manager) GetLegendURL(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.base.layers[id]
	if !ok || l.spec.Kind != layer.KindImage {
		return ""
	}
	return layer.LegendGraphicURL(l.spec.URL, l.spec.Layers, map[string]string{"SLD_VERSION": "1.1.0"})
}

// SetVectorFeatures replaces the features of a vector layer.
func (m *Manager) SetVectorFeatures(id string, features []mapstyle.Feature) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.vector.layers[id]
	if !ok {
		return false
	}
	l.features = slices.Clone(features)
	m.mutated()
	return true
}

// VectorFeatures returns the features of a vector layer.
func (m *Manager) VectorFeatures(id string) ([]mapstyle.Feature, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.vector.layers[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(l.features), true
}

// SetVectorStyle sets the style used to draw a vector layer.
func (m *Manager) SetVectorStyle(id string, style mapstyle.Source) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.vector.layers[id]
	if !ok {
		return false
	}
	l.style = style
	return true
}

// VectorStyle returns the style of a vector layer. The zero Source
// resolves to the default style.
func (m *Manager) VectorStyle(id string) mapstyle.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.vector.layers[id]; ok {
		return l.style
	}
	return mapstyle.Source{}
}
