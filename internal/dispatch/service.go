package dispatch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"telecast/internal/config"
	"telecast/pkg/logx"
)

// Service runs broadcast dispatches against a set of collaborators. It is
// safe for concurrent use; dispatches targeting the same task are
// serialized, everything else runs in parallel subject to the send rate
// limit.
type Service struct {
	tasks    TaskStore
	channels ChannelStore
	users    UserStore
	delivery Delivery
	fetch    Fetcher
	log      logx.Logger
	locks    *taskLocks

	mu      sync.RWMutex
	cfg     config.DispatchConfig
	limiter *rate.Limiter

	// now is swappable in tests.
	now func() time.Time
}

// New builds a dispatch service. All collaborators are required except
// fetch, which may be nil when image broadcasts are not used.
func New(cfg config.DispatchConfig, tasks TaskStore, channels ChannelStore, users UserStore, delivery Delivery, fetch Fetcher, log logx.Logger) *Service {
	return &Service{
		tasks:    tasks,
		channels: channels,
		users:    users,
		delivery: delivery,
		fetch:    fetch,
		log:      log,
		locks:    newTaskLocks(),
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecOrDefault()), cfg.RatePerSecOrDefault()),
		now:      time.Now,
	}
}

// Apply swaps in a new dispatch configuration. In-flight dispatches keep
// the settings they started with; only new ones see the change.
func (s *Service) Apply(cfg config.DispatchConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerSecOrDefault() != s.cfg.RatePerSecOrDefault() {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecOrDefault()), cfg.RatePerSecOrDefault())
	}
	s.cfg = cfg
}

func (s *Service) snapshot() (config.DispatchConfig, *rate.Limiter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.limiter
}
