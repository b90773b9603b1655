package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"telecast/internal/auth"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.log.Error("list users", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not list users")
		return
	}
	writeData(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string     `json:"username"`
		Password string     `json:"password"`
		Fullname string     `json:"fullname"`
		TeleUser string     `json:"tele_user"`
		Role     model.Role `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	switch {
	case req.Username == "":
		writeError(w, http.StatusBadRequest, "username is required")
		return
	case len(req.Password) < 8:
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case !req.Role.Valid():
		writeError(w, http.StatusBadRequest, "role must be 1 (user), 2 (manager) or 3 (admin)")
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username is taken")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Error("user lookup", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Fullname:     strings.TrimSpace(req.Fullname),
		PasswordHash: hash,
		TeleUser:     strings.TrimPrefix(strings.TrimSpace(req.TeleUser), "@"),
		Role:         req.Role,
		CreatedAt:    time.Now(),
		CreatedBy:    operatorID(r),
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		s.log.Error("create user", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Fullname string     `json:"fullname"`
		TeleUser string     `json:"tele_user"`
		Role     model.Role `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be 1 (user), 2 (manager) or 3 (admin)")
		return
	}

	u, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.log.Error("load user", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update user")
		return
	}

	u.Fullname = strings.TrimSpace(req.Fullname)
	u.TeleUser = strings.TrimPrefix(strings.TrimSpace(req.TeleUser), "@")
	u.Role = req.Role
	if err := s.store.UpdateUser(r.Context(), u); err != nil {
		s.log.Error("update user", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update user")
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == operatorID(r) {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := s.store.SoftDeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.log.Error("delete user", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not delete user")
		return
	}
	writeData(w, http.StatusOK, nil)
}
