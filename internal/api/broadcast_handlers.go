package api

import (
	"errors"
	"net/http"

	"telecast/internal/dispatch"
	"telecast/internal/model"
	"telecast/pkg/logx"
)

// handleBroadcast submits a broadcast and waits for the fan-out to finish.
// The response carries the task and the per-channel outcome; partial
// failures are a 200 with entries in data.outcome.failed.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID    string   `json:"task_id,omitempty"`
		SearchKey string   `json:"search_key,omitempty"`
		Content   string   `json:"content"`
		ImageURL  string   `json:"image_url,omitempty"`
		Channels  []string `json:"channels"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, outcome, err := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		TaskID:    req.TaskID,
		SearchKey: req.SearchKey,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		Channels:  req.Channels,
	}, operatorID(r))
	if err != nil {
		var vErr *dispatch.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Msg)
		case errors.Is(err, dispatch.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		default:
			s.log.Error("broadcast failed", logx.Err(err))
			writeError(w, http.StatusInternalServerError, "broadcast failed")
		}
		return
	}

	writeData(w, http.StatusOK, struct {
		Task    *model.Task       `json:"task"`
		Outcome *dispatch.Outcome `json:"outcome"`
	}{task, outcome})
}

func (s *Server) handleDirectorySync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusConflict, "directory sync is not configured")
		return
	}
	if err := s.syncer.Sync(r.Context()); err != nil {
		s.log.Error("manual directory sync", logx.Err(err))
		writeError(w, http.StatusBadGateway, "directory sync failed")
		return
	}
	entries, err := s.store.DirectorySize(r.Context())
	if err != nil {
		s.log.Warn("directory size lookup", logx.Err(err))
	}
	writeData(w, http.StatusOK, struct {
		Entries int `json:"entries"`
	}{entries})
}
