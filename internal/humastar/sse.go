// Package humastar bridges Huma operations with Datastar server-sent events
// and adds RFC 8288 hypermedia links to Huma responses.
//
//	func (h *MyHandler) Events(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.RenderEach("toc-node", nodes, humastar.EmptyState{Title: "No layers"}), "#toc")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-viewer/internal/templates"
)

// Handler is embedded by Huma handlers that answer with Datastar events.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn in a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// EmptyState is rendered by the "empty-state" fragment when a list is empty.
type EmptyState struct {
	Title   string
	Message string
}

// RenderEach renders tmpl once per item, or the empty state.
func (h *Handler) RenderEach(tmpl string, items []any, empty EmptyState) string {
	return RenderEach(h.Renderer, tmpl, items, empty)
}

// RenderEach renders tmpl once per item, or the empty state. Render errors
// leave the failed item out.
func RenderEach(r *templates.Renderer, tmpl string, items []any, empty EmptyState) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		r.RenderToBuffer(&buf, "empty-state", empty)
		return buf.String()
	}
	for _, item := range items {
		r.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}

// SSE is a Datastar event generator bound to one request.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE unwraps the humago context and starts the event stream.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the inner HTML of the element matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Signals merges values into the client signals.
func (s SSE) Signals(values map[string]any) {
	s.MarshalAndPatchSignals(values)
}

// Error sets the "error" signal.
func (s SSE) Error(msg string) { s.Signals(map[string]any{"error": msg, "success": ""}) }

// Success sets the "success" signal.
func (s SSE) Success(msg string) { s.Signals(map[string]any{"success": msg, "error": ""}) }

// SignalsInput receives the signals Datastar posts as a JSON body.
type SignalsInput struct {
	RawBody []byte
}

// DecodeSignals unmarshals the posted signals into T. Malformed bodies are
// a 400.
func DecodeSignals[T any](in *SignalsInput) (T, error) {
	var v T
	if err := json.Unmarshal(in.RawBody, &v); err != nil {
		return v, huma.Error400BadRequest("invalid signals: " + err.Error())
	}
	return v, nil
}
