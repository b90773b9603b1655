package api

import (
	"errors"
	"net/http"
	"strings"

	"telecast/internal/auth"
	"telecast/internal/model"
	"telecast/pkg/logx"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	challenge, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var nr *auth.NotReachableError
		switch {
		case errors.Is(err, auth.ErrBadCredentials):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.As(err, &nr):
			writeError(w, http.StatusConflict, nr.Error())
		default:
			s.log.Error("login failed", logx.Err(err))
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	writeData(w, http.StatusOK, challenge)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "user_id and code are required")
		return
	}

	pair, user, err := s.auth.VerifyCode(r.Context(), req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, auth.ErrCodeInvalid) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.log.Error("code verification failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeData(w, http.StatusOK, struct {
		*auth.TokenPair
		User *model.User `json:"user"`
	}{pair, user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.log.Error("token refresh failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeData(w, http.StatusOK, pair)
}
