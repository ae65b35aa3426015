// Package sweeper runs the background cleanup loop: evict expired rooms,
// kick silent users, trim settled sync records, purge orphaned sessions.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/shoutwars/server/internal/v1/metrics"
	"github.com/shoutwars/server/internal/v1/room"
	"github.com/shoutwars/server/internal/v1/session"
	"go.uber.org/zap"
)

// Sweeper is the single long-lived cleanup worker.
type Sweeper struct {
	rooms       *room.Registry
	sessions    *session.Registry
	interval    time.Duration
	userTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sweeper over the given registries.
func New(rooms *room.Registry, sessions *session.Registry, interval, userTimeout time.Duration) *Sweeper {
	return &Sweeper{
		rooms:       rooms,
		sessions:    sessions,
		interval:    interval,
		userTimeout: userTimeout,
	}
}

// Start launches the worker. It reports whether a worker was started;
// calling Start on a running sweeper is a no-op returning false.
func (s *Sweeper) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
	return true
}

// Stop signals the worker and joins it.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweep runs one cleanup cycle. Faults are recovered and logged; a broken
// cycle must not take the worker down.
func (s *Sweeper) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(ctx, "Sweeper cycle panicked", zap.Any("panic", r))
		}
	}()

	stats := s.rooms.Clean(s.userTimeout)
	purged := s.sessions.Clean(func(sess session.Session) bool {
		r, err := s.rooms.Get(sess.RoomID)
		return err != nil || !r.HasUser(sess.UserID)
	})

	metrics.SweeperCycles.Inc()
	metrics.SweeperRoomsEvicted.Add(float64(stats.RoomsRemoved))
	metrics.SweeperUsersKicked.Add(float64(stats.UsersKicked))
	metrics.SweeperRecordsTrimmed.Add(float64(stats.RecordsTrimmed))
	metrics.SweeperSessionsPurged.Add(float64(purged))

	if stats.RoomsRemoved > 0 || stats.UsersKicked > 0 || stats.RecordsTrimmed > 0 || purged > 0 {
		logging.Info(ctx, "Sweeper cycle",
			zap.Int("rooms_removed", stats.RoomsRemoved),
			zap.Int("users_kicked", stats.UsersKicked),
			zap.Int("records_trimmed", stats.RecordsTrimmed),
			zap.Int("sessions_purged", purged))
	}
}
