package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"solcache/internal/index"
	"solcache/internal/storage"
)

// registerAdmin mounts the operator endpoints. All of them sit behind
// the admin secret; when none is configured they are disabled entirely.
func (s *Server) registerAdmin(mux *http.ServeMux) {
	if s.cfg.AdminSecret == "" {
		s.logger.Warn().Msg("no admin secret configured, admin endpoints disabled")
		return
	}
	mux.HandleFunc("/admin/cleanup", s.withAdminAuth(s.handleCleanup))
	mux.HandleFunc("/admin/metrics", s.withAdminAuth(s.handleMetrics))
	mux.HandleFunc("/admin/lookup", s.withAdminAuth(s.handleLookup))
	mux.HandleFunc("/admin/get", s.withAdminAuth(s.handleGet))
	mux.HandleFunc("/admin/list-data", s.withAdminAuth(s.handleListData))
}

func (s *Server) withAdminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.AdminSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleStatus reports liveness and headline cache numbers. Unauthenticated.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.aggregator.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"hits":          snap.Hits,
		"misses":        snap.Misses,
		"hitRate":       s.aggregator.HitRate(),
		"subscriptions": s.registry.Count(),
		"redis":         s.redis != nil,
	})
}

// handleCleanup sweeps expired entries from the primary store.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	removed, err := s.store.SweepExpired(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("cleanup failed")
		http.Error(w, "cleanup failed", http.StatusInternalServerError)
		return
	}
	s.logger.Info().Int("removed", removed).Msg("cache cleanup completed")
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// handleMetrics dumps the full durable metrics snapshot.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.aggregator.Snapshot())
}

// handleLookup resolves a secondary-index key to its primary cache key.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ns := index.Namespace(r.URL.Query().Get("ns"))
	key := r.URL.Query().Get("key")
	if ns == "" || key == "" {
		http.Error(w, "ns and key are required", http.StatusBadRequest)
		return
	}

	primaryKey, found := s.index.Get(r.Context(), ns, key)
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"primaryKey": primaryKey})
}

// handleGet returns the raw stored blob under a primary key.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	data, err := s.store.ReadRaw(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.logger.Error().Err(err).Str("key", key).Msg("admin get failed")
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleListData lists primary-store keys by prefix.
func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "rpc:"
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	keys, err := s.store.ListKeys(r.Context(), prefix, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin list failed")
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write response")
	}
}
