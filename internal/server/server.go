// Package server pre-renders the story listings on the server. Every request
// gets its own store, drives it until it settles and embeds the resulting
// state in the page.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Makepad-fr/scaffold/internal/app"
	"github.com/Makepad-fr/scaffold/internal/config"
	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const categoryPattern = "{category:new|top|best}"

type Server struct {
	cfg      config.Config
	fetcher  hn.Fetcher
	log      zerolog.Logger
	page     *template.Template
	upgrader websocket.Upgrader
}

type pageData struct {
	Title      string
	Active     model.Category
	Categories []model.Category
	Loading    bool
	Error      string
	State      app.State
}

func New(cfg config.Config, f hn.Fetcher, log zerolog.Logger) (*Server, error) {
	page, err := template.New("page.html.tmpl").Funcs(template.FuncMap{
		"age": func(s model.Story) string {
			if s.Time == 0 {
				return ""
			}
			return humanize.Time(s.Posted())
		},
	}).ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{
		cfg:     cfg,
		fetcher: f,
		log:     log,
		page:    page,
	}, nil
}

// Handler returns the routed, request-logging handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.index)
	r.Methods(http.MethodGet).Path("/" + categoryPattern).HandlerFunc(s.stories)
	r.Methods(http.MethodGet).Path("/api/" + categoryPattern).HandlerFunc(s.storiesJSON)
	r.Methods(http.MethodGet).Path("/live/" + categoryPattern).HandlerFunc(s.live)
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Dur("duration", m.Duration).
			Int("status", m.Code).
			Int64("bytes", m.Written).
			Msg("handled")
	})
}

// startStore runs a fresh store. stop cancels it and waits for Run to return.
func (s *Server) startStore(ctx context.Context) (*app.Store, func()) {
	st := app.New(s.cfg, s.fetcher, s.log)
	ctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- st.Run(ctx) }()
	return st, func() {
		cancel()
		<-errc
	}
}

// prerender dispatches actions and waits for the store to settle or for the
// render timeout, whichever comes first.
func (s *Server) prerender(ctx context.Context, actions ...store.Action) (app.State, error) {
	st, stop := s.startStore(ctx)
	defer stop()

	for _, a := range actions {
		if err := st.Dispatch(a); err != nil {
			return app.State{}, fmt.Errorf("dispatch %s: %w", a.Type(), err)
		}
	}

	settleCtx := ctx
	if s.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		settleCtx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}
	if err := st.Settle(settleCtx); err != nil {
		if ctx.Err() != nil {
			return app.State{}, ctx.Err()
		}
		s.log.Warn().Err(err).Msg("rendering before the store settled")
	}
	return st.State(), nil
}

func category(r *http.Request) model.Category {
	// the route pattern only admits known categories
	c, _ := model.ParseCategory(mux.Vars(r)["category"])
	return c
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{Title: "Todo app", State: app.NewState(s.cfg)})
}

func (s *Server) stories(w http.ResponseWriter, r *http.Request) {
	c := category(r)
	state, err := s.prerender(r.Context(), hn.SelectCategory{Category: c})
	if err != nil {
		s.log.Error().Err(err).Str("category", string(c)).Msg("prerender failed")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	s.render(w, pageData{
		Title:   c.Label() + " stories",
		Active:  c,
		Loading: state.HN.Loading,
		Error:   state.HN.Err,
		State:   state,
	})
}

func (s *Server) storiesJSON(w http.ResponseWriter, r *http.Request) {
	c := category(r)
	state, err := s.prerender(r.Context(), hn.SelectCategory{Category: c})
	if err != nil {
		s.log.Error().Err(err).Str("category", string(c)).Msg("prerender failed")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		s.log.Warn().Err(err).Msg("write json")
	}
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	data.Categories = model.Categories
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("render page")
	}
}
