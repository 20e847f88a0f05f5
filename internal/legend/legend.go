// Package legend derives legend URLs for application layers and fetches
// the legend images.
package legend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/logging"
)

// URLSource derives a legend URL for a rendered layer id.
type URLSource interface {
	GetLegendURL(id string) string
}

// Info is the legend of one layer.
type Info struct {
	Layer   layer.AppLayer `json:"layer"`
	URL     string         `json:"url" doc:"Legend image URL, empty when the layer has none"`
	InScale bool           `json:"inScale" doc:"Whether the layer is visible at the current scale"`
}

// Image is a fetched legend re-encoded as PNG. Err is set when the legend
// could not be fetched or decoded.
type Image struct {
	Layer  layer.AppLayer `json:"layer"`
	PNG    []byte         `json:"png,omitempty"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Err    error          `json:"-"`
}

// Service builds legend information.
type Service struct {
	urls   URLSource
	client *http.Client
	logger *log.Logger
}

// NewService creates a legend service. A nil client uses
// http.DefaultClient and a nil logger discards.
func NewService(urls URLSource, client *http.Client, logger *log.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	logger = logging.OrDiscard(logger)
	return &Service{urls: urls, client: client, logger: logger}
}

// Info returns the legend of each layer. The layer's own legend image URL
// wins over the derived one. A positive scale adds a SCALE parameter and
// decides the in-scale flag.
func (s *Service) Info(layers []layer.AppLayer, scale float64) []Info {
	out := make([]Info, 0, len(layers))
	for _, l := range layers {
		u := l.LegendImageURL
		if u == "" && s.urls != nil {
			u = s.urls.GetLegendURL(strconv.Itoa(l.ID))
		}
		if u != "" && scale > 0 {
			u = layer.SetParam(u, "SCALE", strconv.FormatFloat(scale, 'f', -1, 64))
		}
		out = append(out, Info{Layer: l, URL: u, InScale: InScale(scale, l.MinScale, l.MaxScale)})
	}
	return out
}

// InScale reports whether scale lies within the optional min and max
// scale denominators. An unknown scale is always in scale.
func InScale(scale, minScale, maxScale float64) bool {
	if scale <= 0 {
		return true
	}
	if minScale > 0 && scale < minScale {
		return false
	}
	if maxScale > 0 && scale > maxScale {
		return false
	}
	return true
}

// Images fetches every non-empty legend in parallel. rewrite, when set,
// may change the URL before fetching, for example to add GeoServer legend
// options. Errors are recorded per image; the result keeps input order.
func (s *Service) Images(ctx context.Context, infos []Info, rewrite func(layer.AppLayer, string) string) []Image {
	var todo []Info
	for _, info := range infos {
		if info.URL != "" {
			todo = append(todo, info)
		}
	}
	out := make([]Image, len(todo))
	g, ctx := errgroup.WithContext(ctx)
	for i, info := range todo {
		u := info.URL
		if rewrite != nil {
			u = rewrite(info.Layer, u)
		}
		g.Go(func() error {
			img, err := s.fetch(ctx, u)
			if err != nil {
				s.logger.Warn("legend fetch failed", "layer", info.Layer.ID, "url", u, "err", err)
				out[i] = Image{Layer: info.Layer, Err: err}
				return nil
			}
			img.Layer = info.Layer
			out[i] = img
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) fetch(ctx context.Context, u string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Image{}, fmt.Errorf("legend request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("fetch legend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("fetch legend: %s", resp.Status)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("decode legend: %w", err)
	}
	return encode(img)
}

func encode(img image.Image) (Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Image{}, fmt.Errorf("encode legend: %w", err)
	}
	b := img.Bounds()
	return Image{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
