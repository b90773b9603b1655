package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListSearchKeys(r.Context())
	if err != nil {
		s.log.Error("list search keys", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not list search keys")
		return
	}
	writeData(w, http.StatusOK, keys)
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"search_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "search_key is required")
		return
	}

	k := &model.SearchKey{
		ID:        uuid.NewString(),
		Key:       req.Key,
		CreatedAt: time.Now(),
		CreatedBy: operatorID(r),
	}
	if err := s.store.CreateSearchKey(r.Context(), k); err != nil {
		s.log.Error("create search key", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create search key")
		return
	}
	writeData(w, http.StatusCreated, k)
}

func (s *Server) handleUpdateKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Key string `json:"search_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "search_key is required")
		return
	}

	if err := s.store.UpdateSearchKey(r.Context(), id, req.Key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "search key not found")
			return
		}
		s.log.Error("update search key", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update search key")
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.SoftDeleteSearchKey(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "search key not found")
			return
		}
		s.log.Error("delete search key", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not delete search key")
		return
	}
	writeData(w, http.StatusOK, nil)
}
