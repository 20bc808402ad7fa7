// Package server exposes mapping sections and resolution over read-only HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zjrosen/implreg/internal/flags"
	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/resolver"
)

// Server serves a resolver's mapping source and catalog.
type Server struct {
	resolver *resolver.Resolver
	flags    *flags.Registry
	mux      chi.Router
}

// New builds the router. /v1/resolve/{key} is only mounted when the http-resolve
// flag is on.
func New(r *resolver.Resolver, f *flags.Registry) *Server {
	s := &Server{resolver: r, flags: f, mux: chi.NewRouter()}

	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.RealIP)
	s.mux.Use(requestLogger)
	s.mux.Use(middleware.Recoverer)

	s.mux.Get("/healthz", s.health)
	s.mux.Route("/v1", func(v1 chi.Router) {
		v1.Get("/sections", s.listSections)
		v1.Get("/sections/{section}", s.getSection)
		v1.Get("/sections/{section}/keys/{key}", s.getEntry)
		v1.Get("/check", s.check)
		if f.Enabled(flags.FlagHTTPResolve) {
			v1.Get("/resolve/{key}", s.resolve)
		}
	})
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(log.CatHTTP, "listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestLogger logs each request through the category logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug(log.CatHTTP, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorErr(log.CatHTTP, "encode response", err)
	}
}

// param returns the unescaped path parameter. Keys often contain brackets, which
// clients escape.
func param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// sectionFor returns the resolver for the request's ?section=, or the default one.
func (s *Server) sectionFor(r *http.Request) *resolver.Resolver {
	if sec := r.URL.Query().Get("section"); sec != "" {
		return s.resolver.WithSection(sec)
	}
	return s.resolver
}

func sourceStatus(err error) int {
	switch {
	case errors.Is(err, mapping.ErrSectionMissing), errors.Is(err, mapping.ErrKeyNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "section": s.resolver.Section()})
}

func (s *Server) listSections(w http.ResponseWriter, r *http.Request) {
	names, err := s.resolver.Source().Sections(r.Context())
	if err != nil {
		writeJSON(w, sourceStatus(err), errorBody{Error: err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	section := param(r, "section")
	entries, err := s.resolver.Source().Entries(r.Context(), section)
	if err != nil {
		writeJSON(w, sourceStatus(err), errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, presentation.FromEntries(section, entries))
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	section, key := param(r, "section"), param(r, "key")
	ref, err := s.resolver.Source().Lookup(r.Context(), section, key)
	if err != nil {
		writeJSON(w, sourceStatus(err), errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, presentation.FromEntries(section, map[string]string{key: ref}).Entries[0])
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	results, err := s.sectionFor(r).Check(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if resolver.KindOf(err) == resolver.KindSectionMissing {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody{Error: err.Error(), Kind: resolver.KindOf(err).String()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	res := s.sectionFor(r)
	key := param(r, "key")
	dto := presentation.ResolveDTO{Section: res.Section(), Key: key, Strategy: string(resolver.StrategyDefault)}

	v, err := res.ResolveKey(r.Context(), key)
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch resolver.KindOf(err) {
		case resolver.KindSectionMissing, resolver.KindKeyNotFound:
			status = http.StatusNotFound
		case resolver.KindSource:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, presentation.FromResolveError(dto, err))
		return
	}

	dto.Type = fmt.Sprintf("%T", v)
	writeJSON(w, http.StatusOK, dto)
}
