package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// Dispatch runs one broadcast to completion. It persists the task at three
// points: status Sending before fan-out, Failed when the attempt itself
// aborts, Completed after fan-out finished. Per-channel delivery failures
// are reported in the Outcome and never abort the attempt.
//
// The returned task reflects the final persisted state. An ErrTaskNotFound
// resubmission leaves no trace; a ValidationError likewise persists nothing.
func (s *Service) Dispatch(ctx context.Context, req Request, operatorID string) (task *model.Task, out *Outcome, err error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, nil, &ValidationError{Msg: "content is required"}
	}
	if len(req.Channels) == 0 {
		return nil, nil, &ValidationError{Msg: "at least one channel is required"}
	}

	cfg, limiter := s.snapshot()
	now := s.now()

	// Resolve or create the task before taking the lock so a resubmission
	// against an unknown id fails without touching anything.
	id := req.TaskID
	if id == "" {
		id = uuid.NewString()
	}
	release := s.locks.acquire(id)
	defer release()

	task = &model.Task{
		ID:        id,
		CreatedAt: now,
		CreatedBy: operatorID,
	}
	if req.TaskID != "" {
		loaded, lerr := s.tasks.GetTask(ctx, req.TaskID)
		if lerr != nil {
			if lerr == store.ErrNotFound {
				return nil, nil, ErrTaskNotFound
			}
			// The record exists but could not be read; leave it Failed,
			// rebuilt from the request. The upsert keeps the stored
			// creation provenance.
			applyRequest(task, req, now)
			s.markFailed(task)
			return nil, nil, &UnrecoverableError{Op: "load task", Err: lerr}
		}
		task = loaded
	}

	applyRequest(task, req, now)
	task.Status = model.TaskSending

	if err := s.tasks.SaveTask(ctx, task); err != nil {
		// A task that was never persisted leaves no record; an existing
		// one ends this attempt in Failed.
		if req.TaskID != "" {
			s.markFailed(task)
		}
		return nil, nil, &UnrecoverableError{Op: "save task", Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			s.markFailed(task)
			task, out = nil, nil
			err = &UnrecoverableError{Op: "fan-out", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	body := s.composeBody(ctx, req.Content, operatorID, now)
	out = s.fanOut(ctx, cfg, limiter, req, body, now)

	task.Status = model.TaskCompleted
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		s.markFailed(task)
		return nil, nil, &UnrecoverableError{Op: "complete task", Err: err}
	}

	s.log.Info("broadcast dispatched",
		logx.String("task_id", task.ID),
		logx.Int("succeeded", len(out.Succeeded)),
		logx.Int("failed", len(out.Failed)))
	return task, out, nil
}

// applyRequest overwrites the task's mutable fields from the request.
func applyRequest(task *model.Task, req Request, now time.Time) {
	task.SearchKey = req.SearchKey
	task.Content = req.Content
	task.ImageURL = req.ImageURL
	task.Channels = append([]string(nil), req.Channels...)
	task.SentAt = now
}

// composeBody normalizes the request content and prepends the broadcast
// header line. An operator whose account cannot be resolved is shown by a
// placeholder rather than failing the dispatch.
func (s *Service) composeBody(ctx context.Context, content, operatorID string, now time.Time) string {
	name := "unknown operator"
	if u, err := s.users.GetUser(ctx, operatorID); err == nil {
		name = u.Fullname
	} else {
		s.log.Warn("operator lookup failed",
			logx.String("operator_id", operatorID), logx.Err(err))
	}
	header := fmt.Sprintf("%s - %s", now.Format("02/01/2006 15h04"), name)
	return header + "\n\n" + PlainText(content)
}

// markFailed best-effort persists the Failed status. The dispatch error
// already carries the cause, so a second persistence failure is only logged.
func (s *Service) markFailed(task *model.Task) {
	task.Status = model.TaskFailed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		s.log.Error("mark task failed",
			logx.String("task_id", task.ID), logx.Err(err))
	}
}
