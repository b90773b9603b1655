package dispatch

import (
	"bytes"
	"context"
	"io"
	neturl "net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"telecast/internal/config"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// channelResult carries one channel's outcome back with its request index,
// so the aggregate preserves request order regardless of worker scheduling.
type channelResult struct {
	index   int
	failure *Failure
}

// fanOut delivers the composed body to every requested channel using a
// bounded worker pool. Each channel terminates in exactly one result; the
// pool never aborts early, so a single slow or broken channel cannot hide
// the others' outcomes.
func (s *Service) fanOut(ctx context.Context, cfg config.DispatchConfig, limiter *rate.Limiter, req Request, body string, now time.Time) *Outcome {
	workers := cfg.WorkersOrDefault()
	if workers > len(req.Channels) {
		workers = len(req.Channels)
	}

	jobs := make(chan int)
	results := make([]channelResult, len(req.Channels))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = channelResult{
					index:   i,
					failure: s.sendOne(ctx, cfg, limiter, req.Channels[i], req.ImageURL, body, now),
				}
			}
		}()
	}
	for i := range req.Channels {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := &Outcome{Succeeded: []string{}, Failed: []Failure{}}
	for i, r := range results {
		if r.failure != nil {
			out.Failed = append(out.Failed, *r.failure)
			continue
		}
		out.Succeeded = append(out.Succeeded, req.Channels[i])
	}
	return out
}

// sendOne handles a single channel end to end and returns nil on success.
// Every failure mode is a value here; errors never escape to the caller.
func (s *Service) sendOne(ctx context.Context, cfg config.DispatchConfig, limiter *rate.Limiter, address, imageURL, body string, now time.Time) *Failure {
	ch, err := s.channels.GetChannelByAddress(ctx, address)
	if err != nil {
		if err == store.ErrNotFound {
			return &Failure{Channel: address, ChannelName: unknownChannelName, Reason: ReasonChannelNotFound}
		}
		return &Failure{Channel: address, ChannelName: unknownChannelName, Reason: err.Error()}
	}

	if !admitted(model.TimeOfDayAt(now), ch.WorkStart, ch.WorkEnd) {
		return &Failure{Channel: address, ChannelName: ch.Name, Reason: ReasonOutsideHours}
	}

	if err := limiter.Wait(ctx); err != nil {
		return &Failure{Channel: address, ChannelName: ch.Name, Reason: err.Error()}
	}

	if absoluteURL(imageURL) && s.fetch != nil {
		if photo, ok := s.fetchImage(ctx, cfg, imageURL); ok {
			sendCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeoutOrDefault())
			defer cancel()
			if err := s.delivery.SendPhoto(sendCtx, ch.Address, photo, body); err != nil {
				return &Failure{Channel: address, ChannelName: ch.Name, Reason: err.Error()}
			}
			return nil
		}
		// Image unavailable; deliver the text alone rather than nothing.
	}

	sendCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeoutOrDefault())
	defer cancel()
	if err := s.delivery.SendText(sendCtx, ch.Address, body); err != nil {
		return &Failure{Channel: address, ChannelName: ch.Name, Reason: err.Error()}
	}
	return nil
}

// fetchImage buffers the whole image within the fetch timeout, so the send
// afterwards cannot be cut short by a closed response body.
func (s *Service) fetchImage(ctx context.Context, cfg config.DispatchConfig, url string) (io.Reader, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeoutOrDefault())
	defer cancel()
	rc, err := s.fetch.Fetch(fetchCtx, url)
	if err != nil {
		s.log.Warn("image fetch failed, sending text only",
			logx.String("url", url), logx.Err(err))
		return nil, false
	}
	defer rc.Close()
	buf, err := io.ReadAll(rc)
	if err != nil {
		s.log.Warn("image read failed, sending text only",
			logx.String("url", url), logx.Err(err))
		return nil, false
	}
	return bytes.NewReader(buf), true
}

// absoluteURL reports whether raw is worth an image fetch at all. Relative
// or malformed values degrade to a text-only send without a network call.
func absoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := neturl.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
