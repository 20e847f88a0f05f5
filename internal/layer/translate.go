package layer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/logging"
)

// Protocol is the OGC protocol of a service.
type Protocol string

const (
	ProtocolWMS   Protocol = "wms"
	ProtocolTiled Protocol = "tiled"
)

// AppLayer is a layer as configured in an application.
type AppLayer struct {
	ID             int     `json:"id" yaml:"id" doc:"Application layer id" example:"12"`
	LayerName      string  `json:"layerName" yaml:"layerName" doc:"Service layer name" example:"topp:states"`
	Title          string  `json:"title,omitempty" yaml:"title,omitempty" doc:"Display title"`
	Visible        bool    `json:"visible" yaml:"visible"`
	Opacity        int     `json:"opacity" yaml:"opacity" minimum:"0" maximum:"100" default:"100"`
	ServiceID      string  `json:"serviceId" yaml:"serviceId" doc:"Service the layer belongs to"`
	LegendImageURL string  `json:"legendImageUrl,omitempty" yaml:"legendImageUrl,omitempty"`
	MinScale       float64 `json:"minScale,omitempty" yaml:"minScale,omitempty"`
	MaxScale       float64 `json:"maxScale,omitempty" yaml:"maxScale,omitempty"`
}

// DefaultOpacity applies to layers configured without an opacity.
const DefaultOpacity = 100

type plainAppLayer AppLayer

// UnmarshalJSON decodes a layer, defaulting a missing opacity to opaque.
func (l *AppLayer) UnmarshalJSON(data []byte) error {
	p := plainAppLayer{Opacity: DefaultOpacity}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = AppLayer(p)
	return nil
}

// UnmarshalYAML decodes a layer, defaulting a missing opacity to opaque.
func (l *AppLayer) UnmarshalYAML(node *yaml.Node) error {
	p := plainAppLayer{Opacity: DefaultOpacity}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*l = AppLayer(p)
	return nil
}

// Service is an OGC map service.
type Service struct {
	ID           string     `json:"id" yaml:"id" doc:"Service id" example:"osm"`
	Protocol     Protocol   `json:"protocol" yaml:"protocol" enum:"wms,tiled"`
	URL          string     `json:"url" yaml:"url" doc:"Service base URL"`
	ServerType   ServerType `json:"serverType,omitempty" yaml:"serverType,omitempty" enum:"generic,geoserver,mapserver"`
	Capabilities string     `json:"capabilities,omitempty" yaml:"capabilities,omitempty" doc:"Pre-fetched capabilities document"`
}

// Source pairs an application layer with its service, which may be
// missing.
type Source struct {
	Layer   AppLayer
	Service *Service
	Filter  string
}

// Translate converts an application layer into a Spec. It reports false
// when the layer has no service or the protocol is not supported.
func Translate(l AppLayer, svc *Service) (Spec, bool) {
	if svc == nil {
		return Spec{}, false
	}
	spec := Spec{
		ID:         strconv.Itoa(l.ID),
		Name:       l.Title,
		Visible:    l.Visible,
		Opacity:    l.Opacity,
		URL:        svc.URL,
		ServerType: svc.ServerType,
		Layers:     l.LayerName,
	}
	if spec.Name == "" {
		spec.Name = l.LayerName
	}
	switch svc.Protocol {
	case ProtocolWMS:
		spec.Kind = KindImage
	case ProtocolTiled:
		spec.Kind = KindTiled
		spec.Capabilities = svc.Capabilities
	default:
		return Spec{}, false
	}
	return spec, true
}

// Translator translates layers, fetching WMTS capabilities that were not
// supplied with the service.
type Translator struct {
	client *http.Client
	cache  *ttlcache.Cache[string, string]
	logger *log.Logger
}

// NewTranslator creates a translator. Capabilities documents are cached for
// ttl. A nil client uses http.DefaultClient and a nil logger discards.
func NewTranslator(client *http.Client, ttl time.Duration, logger *log.Logger) *Translator {
	if client == nil {
		client = http.DefaultClient
	}
	logger = logging.OrDiscard(logger)
	return &Translator{
		client: client,
		cache:  ttlcache.New[string, string](ttlcache.WithTTL[string, string](ttl)),
		logger: logger,
	}
}

// TranslateAll translates every source, fetching missing capabilities in
// parallel. Untranslatable sources are dropped; the rest keep input order.
// A failed capabilities fetch leaves the document empty.
func (t *Translator) TranslateAll(ctx context.Context, sources []Source) []Spec {
	out := make([]*Spec, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		spec, ok := Translate(src.Layer, src.Service)
		if !ok {
			continue
		}
		spec.Filter = src.Filter
		out[i] = &spec
		if spec.Kind != KindTiled || spec.Capabilities != "" {
			continue
		}
		g.Go(func() error {
			caps, err := t.Capabilities(ctx, spec.URL)
			if err != nil {
				t.logger.Warn("capabilities fetch failed", "layer", spec.ID, "url", spec.URL, "err", err)
				return nil
			}
			out[i].Capabilities = caps
			return nil
		})
	}
	_ = g.Wait()

	specs := make([]Spec, 0, len(out))
	for _, s := range out {
		if s != nil {
			specs = append(specs, *s)
		}
	}
	return specs
}

// Capabilities returns the WMTS capabilities document of a service URL.
func (t *Translator) Capabilities(ctx context.Context, serviceURL string) (string, error) {
	u := SetParam(SetParam(FilterOGCParams(serviceURL), "REQUEST", "GetCapabilities"), "SERVICE", "WMTS")
	if item := t.cache.Get(u); item != nil {
		return item.Value(), nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("capabilities request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch capabilities: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch capabilities: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read capabilities: %w", err)
	}
	t.cache.Set(u, string(body), ttlcache.DefaultTTL)
	return string(body), nil
}
