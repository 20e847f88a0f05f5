// Package service holds the application state of the viewer and the
// stores behind it.
package service

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// AppState is the configuration and UI state the map is rendered from.
// Values returned by AppStateService are deep copies.
type AppState struct {
	Name           string            `json:"name,omitempty" yaml:"name,omitempty" doc:"Application name" example:"demo"`
	Services       []layer.Service   `json:"services" yaml:"services"`
	Layers         []layer.AppLayer  `json:"layers" yaml:"layers"`
	LayerTree      []layertree.Node  `json:"layerTree" yaml:"layerTree"`
	BackgroundTree []layertree.Node  `json:"backgroundTree" yaml:"backgroundTree"`
	// SelectedBackground is a node of BackgroundTree. Empty selects the
	// first child of the background root.
	SelectedBackground string            `json:"selectedBackground,omitempty" yaml:"selectedBackground,omitempty"`
	Filters            map[string]string `json:"filters,omitempty" yaml:"filters,omitempty" doc:"Filter predicate per application layer id"`
	DrawingLayers      []DrawingLayer    `json:"drawingLayers,omitempty" yaml:"drawingLayers,omitempty"`
}

// DrawingLayer is a vector layer whose features are drawn by the viewer.
type DrawingLayer struct {
	ID                   string              `json:"id,omitempty" yaml:"id,omitempty" doc:"Unique drawing layer identifier" example:"sketch"`
	Name                 string              `json:"name" yaml:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Sketch"`
	Visible              bool                `json:"visible" yaml:"visible" default:"true"`
	Opacity              int                 `json:"opacity" yaml:"opacity" minimum:"0" maximum:"100" default:"100"`
	Style                mapstyle.Descriptor `json:"style" yaml:"style" doc:"Style applied to every feature"`
	UpdateWhileAnimating bool                `json:"updateWhileAnimating,omitempty" yaml:"updateWhileAnimating,omitempty"`
}

type plainDrawingLayer DrawingLayer

// UnmarshalJSON decodes a drawing layer that is visible and opaque unless
// told otherwise.
func (d *DrawingLayer) UnmarshalJSON(data []byte) error {
	p := plainDrawingLayer{Visible: true, Opacity: layer.DefaultOpacity}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = DrawingLayer(p)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON.
func (d *DrawingLayer) UnmarshalYAML(node *yaml.Node) error {
	p := plainDrawingLayer{Visible: true, Opacity: layer.DefaultOpacity}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DrawingLayer(p)
	return nil
}

// Spec returns the vector layer spec of the drawing layer.
func (d DrawingLayer) Spec() layer.Spec {
	return layer.Spec{
		ID:                   d.ID,
		Name:                 d.Name,
		Kind:                 layer.KindVector,
		Visible:              d.Visible,
		Opacity:              d.Opacity,
		UpdateWhileAnimating: d.UpdateWhileAnimating,
	}
}

// TreeKind selects one of the two layer trees.
type TreeKind string

const (
	TreeLayers     TreeKind = "layers"
	TreeBackground TreeKind = "background"
)
