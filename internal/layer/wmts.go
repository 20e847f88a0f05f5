package layer

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// WMTSCapabilities is the subset of a WMTS GetCapabilities document needed
// to build tile URLs.
type WMTSCapabilities struct {
	Operations []wmtsOperation `xml:"OperationsMetadata>Operation"`
	Layers     []WMTSLayer     `xml:"Contents>Layer"`
}

type wmtsOperation struct {
	Name string    `xml:"name,attr"`
	Get  []wmtsGet `xml:"DCP>HTTP>Get"`
}

type wmtsGet struct {
	Href      string   `xml:"href,attr"`
	Encodings []string `xml:"Constraint>AllowedValues>Value"`
}

// WMTSLayer is one layer of the Contents section.
type WMTSLayer struct {
	Identifier     string            `xml:"Identifier"`
	Title          string            `xml:"Title"`
	Formats        []string          `xml:"Format"`
	Styles         []wmtsStyle       `xml:"Style"`
	TileMatrixSets []string          `xml:"TileMatrixSetLink>TileMatrixSet"`
	ResourceURLs   []wmtsResourceURL `xml:"ResourceURL"`
}

type wmtsStyle struct {
	Identifier string `xml:"Identifier"`
	IsDefault  bool   `xml:"isDefault,attr"`
}

type wmtsResourceURL struct {
	Format       string `xml:"format,attr"`
	ResourceType string `xml:"resourceType,attr"`
	Template     string `xml:"template,attr"`
}

// ParseWMTSCapabilities decodes a capabilities document.
func ParseWMTSCapabilities(doc string) (*WMTSCapabilities, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("empty capabilities document")
	}
	var caps WMTSCapabilities
	if err := xml.Unmarshal([]byte(doc), &caps); err != nil {
		return nil, fmt.Errorf("parse WMTS capabilities: %w", err)
	}
	return &caps, nil
}

// Layer finds a layer by identifier.
func (c *WMTSCapabilities) Layer(id string) (WMTSLayer, bool) {
	for _, l := range c.Layers {
		if l.Identifier == id {
			return l, true
		}
	}
	return WMTSLayer{}, false
}

// TileURLs returns tile URL templates for a layer, using {TileMatrix},
// {TileRow} and {TileCol} placeholders. RESTful ResourceURL templates are
// preferred over KVP GetTile endpoints.
func (c *WMTSCapabilities) TileURLs(id string) ([]string, error) {
	l, ok := c.Layer(id)
	if !ok {
		return nil, fmt.Errorf("layer %q not in capabilities", id)
	}
	style := l.defaultStyle()
	matrixSet := ""
	if len(l.TileMatrixSets) > 0 {
		matrixSet = l.TileMatrixSets[0]
	}

	var urls []string
	for _, r := range l.ResourceURLs {
		if r.ResourceType != "" && r.ResourceType != "tile" {
			continue
		}
		u := strings.NewReplacer("{Style}", style, "{style}", style, "{TileMatrixSet}", matrixSet).Replace(r.Template)
		urls = append(urls, u)
	}
	if len(urls) > 0 {
		return urls, nil
	}

	format := "image/png"
	if len(l.Formats) > 0 {
		format = l.Formats[0]
	}
	for _, op := range c.Operations {
		if op.Name != "GetTile" {
			continue
		}
		for _, g := range op.Get {
			if !g.allowsKVP() {
				continue
			}
			u := FilterOGCParams(g.Href)
			for _, kv := range [][2]string{
				{"SERVICE", "WMTS"},
				{"REQUEST", "GetTile"},
				{"VERSION", "1.0.0"},
				{"LAYER", l.Identifier},
				{"STYLE", style},
				{"TILEMATRIXSET", matrixSet},
				{"FORMAT", format},
			} {
				u = SetParam(u, kv[0], kv[1])
			}
			urls = append(urls, u+"&TILEMATRIX={TileMatrix}&TILEROW={TileRow}&TILECOL={TileCol}")
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no tile endpoint for layer %q", id)
	}
	return urls, nil
}

func (l WMTSLayer) defaultStyle() string {
	for _, s := range l.Styles {
		if s.IsDefault {
			return s.Identifier
		}
	}
	if len(l.Styles) > 0 {
		return l.Styles[0].Identifier
	}
	return "default"
}

func (g wmtsGet) allowsKVP() bool {
	if len(g.Encodings) == 0 {
		return true
	}
	for _, e := range g.Encodings {
		if strings.EqualFold(strings.TrimSpace(e), "KVP") {
			return true
		}
	}
	return false
}
