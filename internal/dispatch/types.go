package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"telecast/internal/model"
)

// Request is one validated broadcast request.
// TaskID is empty for a first submission; set, it resubmits an existing task
// with the request's content overwriting the stored fields.
type Request struct {
	TaskID    string
	SearchKey string
	Content   string
	ImageURL  string
	Channels  []string
}

// Failure describes one channel that did not receive the broadcast.
// ChannelName is "unknown" when the channel could not be resolved.
type Failure struct {
	Channel     string `json:"channel"`
	ChannelName string `json:"channel_name"`
	Reason      string `json:"reason"`
}

// Outcome partitions the requested channels: every requested channel address
// appears in exactly one of the two lists, exactly once, in request order.
type Outcome struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Collaborator contracts, narrow on purpose so tests can substitute fakes.

type TaskStore interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	SaveTask(ctx context.Context, t *model.Task) error
}

type ChannelStore interface {
	GetChannelByAddress(ctx context.Context, address string) (*model.Channel, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Delivery sends to a single channel address. Both calls are independent and
// may fail for transport-specific reasons; the engine never retries.
type Delivery interface {
	SendText(ctx context.Context, address, text string) error
	SendPhoto(ctx context.Context, address string, photo io.Reader, caption string) error
}

// Fetcher retrieves an image URL. A non-success retrieval is an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// ---- errors ----

// ErrTaskNotFound reports a resubmission referencing an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError reports a malformed request; nothing was persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UnrecoverableError aborts the whole dispatch (task persistence or another
// failure outside the per-channel scope). The task, if it exists, was moved
// to Failed.
type UnrecoverableError struct {
	Op  string
	Err error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("dispatch aborted at %s: %v", e.Op, e.Err)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

// Failure reasons for conditions detected before the transport is reached.
const (
	ReasonChannelNotFound = "channel not found"
	ReasonOutsideHours    = "outside operating hours"
)

const unknownChannelName = "unknown"
