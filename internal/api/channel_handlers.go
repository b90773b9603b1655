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

type channelPayload struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	WorkStart string `json:"work_start"`
	WorkEnd   string `json:"work_end"`
}

// parseChannelPayload validates the common create/update fields and returns
// the parsed window. Windows must be well formed and start strictly before
// end; a channel that never closes uses 00:00 and 23:59.
func parseChannelPayload(p channelPayload) (start, end model.TimeOfDay, msg string) {
	if strings.TrimSpace(p.Address) == "" {
		return 0, 0, "address is required"
	}
	if strings.TrimSpace(p.Name) == "" {
		return 0, 0, "name is required"
	}
	start, err := model.ParseTimeOfDay(p.WorkStart)
	if err != nil {
		return 0, 0, "work_start must be HH:MM"
	}
	end, err = model.ParseTimeOfDay(p.WorkEnd)
	if err != nil {
		return 0, 0, "work_end must be HH:MM"
	}
	if start >= end {
		return 0, 0, "work_start must be before work_end"
	}
	return start, end, ""
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.log.Error("list channels", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not list channels")
		return
	}
	writeData(w, http.StatusOK, channels)
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req channelPayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, end, msg := parseChannelPayload(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := s.store.GetChannelByAddress(r.Context(), req.Address); err == nil {
		writeError(w, http.StatusConflict, "a channel with this address already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Error("channel lookup", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create channel")
		return
	}

	ch := &model.Channel{
		ID:        uuid.NewString(),
		Address:   strings.TrimSpace(req.Address),
		Name:      strings.TrimSpace(req.Name),
		WorkStart: start,
		WorkEnd:   end,
		CreatedAt: time.Now(),
		CreatedBy: operatorID(r),
	}
	if err := s.store.CreateChannel(r.Context(), ch); err != nil {
		s.log.Error("create channel", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not create channel")
		return
	}
	writeData(w, http.StatusCreated, ch)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req channelPayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, end, msg := parseChannelPayload(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ch, err := s.store.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.log.Error("load channel", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update channel")
		return
	}
	if !s.mayManage(r, ch.CreatedBy) {
		writeError(w, http.StatusForbidden, "only the creator or an admin may modify this channel")
		return
	}

	// The new address must not collide with a different channel.
	if other, err := s.store.GetChannelByAddress(r.Context(), req.Address); err == nil && other.ID != ch.ID {
		writeError(w, http.StatusConflict, "a channel with this address already exists")
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error("channel lookup", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update channel")
		return
	}

	ch.Address = strings.TrimSpace(req.Address)
	ch.Name = strings.TrimSpace(req.Name)
	ch.WorkStart = start
	ch.WorkEnd = end
	if err := s.store.UpdateChannel(r.Context(), ch); err != nil {
		s.log.Error("update channel", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not update channel")
		return
	}
	writeData(w, http.StatusOK, ch)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ch, err := s.store.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.log.Error("load channel", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not delete channel")
		return
	}
	if !s.mayManage(r, ch.CreatedBy) {
		writeError(w, http.StatusForbidden, "only the creator or an admin may delete this channel")
		return
	}
	if err := s.store.SoftDeleteChannel(r.Context(), id); err != nil {
		s.log.Error("delete channel", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not delete channel")
		return
	}
	writeData(w, http.StatusOK, nil)
}

// mayManage grants access to the resource creator and to admins.
func (s *Server) mayManage(r *http.Request, createdBy string) bool {
	return operatorRole(r) == model.RoleAdmin || operatorID(r) == createdBy
}
