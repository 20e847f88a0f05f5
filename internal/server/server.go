package server

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-viewer/internal/api"
	apiviewer "github.com/joeblew999/plat-viewer/internal/api/viewer"
	"github.com/joeblew999/plat-viewer/internal/db"
	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layermanager"
	"github.com/joeblew999/plat-viewer/internal/legend"
	"github.com/joeblew999/plat-viewer/internal/logging"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/templates"
	"github.com/joeblew999/plat-viewer/internal/viewer"
)

//go:embed viewer.html
var viewerPage []byte

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // optional directory for static files and fragment overrides
	// AppConfig is an application YAML file loaded at startup. Empty keeps
	// the persisted state.
	AppConfig       string
	CapabilitiesTTL time.Duration
	Logger          *log.Logger
}

// Server is the viewer HTTP server.
type Server struct {
	config   Config
	logger   *log.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	links    humastar.LinkSet
	db       *sql.DB
	services *api.Services
	renderer *templates.Renderer
	cancel   context.CancelFunc
	done     chan error
}

// New creates the server and starts applying application state to the
// layer manager.
func New(cfg Config) (*Server, error) {
	logger := logging.OrDiscard(cfg.Logger)
	mux := http.NewServeMux()
	links := humastar.LinkSet{}

	humaConfig := huma.DefaultConfig("plat-viewer API", "1.0.0")
	humaConfig.Info.Description = "Map viewer API: application layers, layer trees, styles, legends and drawing layers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)
	humaAPI.UseMiddleware(requestLogger(logger.WithPrefix("http")))

	state := service.NewAppStateService(cfg.DataDir, nil)
	if cfg.AppConfig != "" {
		if err := state.LoadYAML(cfg.AppConfig); err != nil {
			return nil, fmt.Errorf("load application config: %w", err)
		}
		logger.Info("loaded application", "file", cfg.AppConfig)
	}

	s := &Server{
		config: cfg,
		logger: logger,
		mux:    mux,
		links:  links,
	}

	var features *service.FeatureStore
	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "viewer"})
	if err != nil {
		logger.Warn("duckdb unavailable, drawing features disabled", "err", err)
	} else {
		s.db = conn
		features, err = service.NewFeatureStore(context.Background(), conn)
		if err != nil {
			return nil, err
		}
	}

	manager := layermanager.New(layermanager.WithLogger(logger.WithPrefix("layers")))
	translator := layer.NewTranslator(nil, cfg.CapabilitiesTTL, logger.WithPrefix("translate"))
	session := viewer.New(state, features, manager, translator, logger.WithPrefix("session"))

	s.services = &api.Services{
		State:    state,
		Features: features,
		Session:  session,
		Legend:   legend.NewService(manager, nil, logger.WithPrefix("legend")),
		DataDir:  cfg.DataDir,
	}

	renderer, err := templates.Default()
	if err != nil {
		return nil, err
	}
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			renderer = r
			logger.Info("loaded fragment templates", "dir", fragmentsDir)
		}
	}
	s.renderer = renderer

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() { s.done <- session.Run(ctx) }()

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document of the API.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close stops the session and releases the layer manager and database.
func (s *Server) Close() error {
	s.cancel()
	if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("session stopped", "err", err)
	}
	s.services.Session.Manager().Destroy()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.services)

	apiviewer.NewHandler(s.services.State, s.services.Session, s.renderer).RegisterRoutes(s.humaAPI)

	// Links are computed after all operations are registered.
	s.links.Build(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

// requestLogger attaches logger to every request context and logs the
// outcome at debug level.
func requestLogger(logger *log.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(huma.WithContext(ctx, logging.WithLogger(ctx.Context(), logger)))
		logger.Debug("request",
			"method", ctx.Method(),
			"path", ctx.URL().Path,
			"status", ctx.Status(),
			"took", time.Since(start),
		)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-viewer",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if s.config.WebDir != "" {
		page := filepath.Join(s.config.WebDir, "templates", "viewer.html")
		if _, err := os.Stat(page); err == nil {
			http.ServeFile(w, r, page)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(viewerPage)
}
