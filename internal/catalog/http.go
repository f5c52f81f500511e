package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
)

const maxCreateBody = 1 << 20

type Server struct {
	Store Store
	Stats *StatsCache
	IDs   *IDGenerator
	Log   *zap.Logger

	// ReadyChecks run after Store.Ping on /readyz.
	ReadyChecks []func(context.Context) error

	// serialises load-append-save so concurrent creations cannot drop each other
	createMu sync.Mutex
}

func (s *Server) mount(r chi.Router, createLimit func(http.Handler) http.Handler) {
	if s.Stats == nil {
		s.Stats = NewStatsCache(nil)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.ready(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/items", s.list)
		api.Get("/items/{id}", s.get)
		if createLimit != nil {
			api.With(createLimit).Post("/items", s.create)
		} else {
			api.Post("/items", s.create)
		}
		api.Get("/stats", s.stats)
	})
}

func (s *Server) ready(ctx context.Context) error {
	if err := s.Store.Ping(ctx); err != nil {
		return err
	}
	for _, check := range s.ReadyChecks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.Load(r.Context())
	if err != nil {
		s.writeError(w, r, "list items failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, ApplyListQuery(items, ParseListQuery(r.URL.Query())))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	items, err := s.Store.Load(r.Context())
	if err != nil {
		s.writeError(w, r, "get item failed", err)
		return
	}

	it, err := FindItem(items, id)
	if err != nil {
		s.writeError(w, r, "get item failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	it, err := ValidateNewItem(body)
	if err != nil {
		s.writeError(w, r, "create item failed", err)
		return
	}

	created, err := s.createItem(r.Context(), it)
	if err != nil {
		s.writeError(w, r, "create item failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) createItem(ctx context.Context, it Item) (Item, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	it, err := AppendItem(ctx, s.Store, s.ids(), it)
	if err != nil {
		return Item{}, err
	}

	s.logger().Info("item created", zap.Int64("id", it.ID), zap.String("name", it.Name))
	return it, nil
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Stats.Get(r.Context(), s.Store.Load)
	if err != nil {
		s.writeError(w, r, "compute stats failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var (
		verr *ValidationError
		derr *DataFormatError
	)

	switch {
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusBadRequest, verr.Error(), nil)
	case errors.Is(err, errNotObject):
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
	case errors.Is(err, ErrItemNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "Item not found", nil)
	case errors.As(err, &derr):
		s.logger().Error(msg, zap.Error(err), zap.String("request_id", chimw.GetReqID(r.Context())))
		kit.WriteError(w, r, http.StatusInternalServerError, "Invalid data file format", nil)
	default:
		s.logger().Error(msg, zap.Error(err), zap.String("request_id", chimw.GetReqID(r.Context())))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) ids() *IDGenerator {
	if s.IDs == nil {
		s.IDs = NewIDGenerator()
	}
	return s.IDs
}
