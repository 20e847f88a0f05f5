// Package viewer connects the application state to the layer manager.
//
// A Session watches the application state and applies every committed
// snapshot: the layer tree gives the render order, the translator turns
// application layers into specs and the manager reconciles its render
// layers with them. Snapshots are applied one at a time, in commit order.
package viewer

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layermanager"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/logging"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
	"github.com/joeblew999/plat-viewer/internal/service"
)

// Session drives one layer manager from the application state.
type Session struct {
	state      *service.AppStateService
	features   *service.FeatureStore
	manager    *layermanager.Manager
	translator *layer.Translator
	logger     *log.Logger

	// applied is published to after each snapshot has been applied.
	applied *service.EventBus

	mu sync.Mutex
}

// New creates a session. features may be nil when drawing layers have no
// stored features.
func New(state *service.AppStateService, features *service.FeatureStore, manager *layermanager.Manager, translator *layer.Translator, logger *log.Logger) *Session {
	if translator == nil {
		translator = layer.NewTranslator(nil, 0, logger)
	}
	return &Session{
		state:      state,
		features:   features,
		manager:    manager,
		translator: translator,
		logger:     logging.OrDiscard(logger),
		applied:    service.NewEventBus(),
	}
}

// Manager returns the layer manager the session drives.
func (s *Session) Manager() *layermanager.Manager { return s.manager }

// Applied returns the bus a render event is published on after every
// applied snapshot.
func (s *Session) Applied() *service.EventBus { return s.applied }

// Run applies the current snapshot and then every committed snapshot, one
// at a time in commit order, until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	w := s.state.Watch()
	defer s.state.Unwatch(w)

	for {
		st, err := w.Next(ctx)
		if err != nil {
			return err
		}
		if err := s.Apply(ctx, st); err != nil {
			s.logger.Error("apply state", "err", err)
		}
	}
}

// Apply pushes one snapshot into the manager.
func (s *Session) Apply(ctx context.Context, st service.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	specs := s.translator.TranslateAll(ctx, sources(st, layertree.AppLayerIDs(st.LayerTree, "")))
	drawing := make([]layer.Spec, 0, len(st.DrawingLayers))
	for _, d := range st.DrawingLayers {
		drawing = append(drawing, d.Spec())
	}
	s.manager.SetLayers(append(slices.Clone(specs), drawing...))
	// Visibility is not part of the change fingerprint.
	for _, spec := range append(specs, drawing...) {
		s.manager.SetLayerVisibility(spec.ID, spec.Visible)
	}

	for _, d := range st.DrawingLayers {
		s.manager.SetVectorStyle(d.ID, mapstyle.Static(d.Style))
		if s.features == nil {
			continue
		}
		fc, err := s.features.Load(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("load features of %s: %w", d.ID, err)
		}
		s.manager.SetVectorFeatures(d.ID, service.StyleFeatures(fc))
	}

	bg := s.translator.TranslateAll(ctx, sources(st, backgroundLayerIDs(st)))
	for i := range bg {
		bg[i].Visible = true
	}
	s.manager.SetBackgroundLayers(bg)

	s.logger.Debug("state applied", "layers", len(specs), "drawing", len(drawing), "background", len(bg))
	s.applied.Publish(service.Event{Resource: service.ResourceRender, Action: "applied"})
	return nil
}

// backgroundLayerIDs returns the application layers under the selected
// background node, or under the first background when none is selected.
func backgroundLayerIDs(st service.AppState) []int {
	selected := st.SelectedBackground
	if selected == "" {
		root, ok := layertree.New(st.BackgroundTree).Root()
		if !ok || len(root.ChildrenIDs) == 0 {
			return nil
		}
		selected = root.ChildrenIDs[0]
	}
	return layertree.AppLayerIDs(st.BackgroundTree, selected)
}

// sources pairs the listed application layers with their services and
// filters. The tree lists the topmost layer last, so the result is
// reversed to put it first.
func sources(st service.AppState, ids []int) []layer.Source {
	out := make([]layer.Source, 0, len(ids))
	for _, id := range slices.Backward(ids) {
		i := slices.IndexFunc(st.Layers, func(l layer.AppLayer) bool { return l.ID == id })
		if i < 0 {
			continue
		}
		l := st.Layers[i]
		src := layer.Source{Layer: l, Filter: st.Filters[strconv.Itoa(id)]}
		if j := slices.IndexFunc(st.Services, func(svc layer.Service) bool { return svc.ID == l.ServiceID }); j >= 0 {
			svc := st.Services[j]
			src.Service = &svc
		}
		out = append(out, src)
	}
	return out
}
