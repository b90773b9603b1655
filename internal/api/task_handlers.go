package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// handleListTasks returns broadcasts created within a date range. Dates are
// "2006-01-02"; to is inclusive of the whole day. Omitted bounds default to
// the last seven days ending today.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := now.AddDate(0, 0, -7).Truncate(24 * time.Hour)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), from, to)
	if err != nil {
		s.log.Error("list tasks", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not list tasks")
		return
	}
	s.attachChannels(r, tasks)
	writeData(w, http.StatusOK, tasks)
}

// attachChannels resolves each task's channel addresses against the current
// channel list so clients can show names and windows. Channels deleted since
// the broadcast simply do not appear.
func (s *Server) attachChannels(r *http.Request, tasks []model.Task) {
	if len(tasks) == 0 {
		return
	}
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.log.Warn("channel join skipped", logx.Err(err))
		return
	}
	byAddress := make(map[string]model.Channel, len(channels))
	for _, ch := range channels {
		byAddress[ch.Address] = ch
	}
	for i := range tasks {
		for _, addr := range tasks[i].Channels {
			if ch, ok := byAddress[addr]; ok {
				tasks[i].Groups = append(tasks[i].Groups, ch)
			}
		}
	}
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.SoftDeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.log.Error("delete task", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not delete task")
		return
	}
	writeData(w, http.StatusOK, nil)
}
