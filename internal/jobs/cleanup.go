package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/metrics"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
)

const cleanupTimeout = 30 * time.Second

// CleanupJob periodically clears refresh token hashes whose expiry has
// passed and drops connection requests left pending longer than pendingTTL.
type CleanupJob struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	interval    time.Duration
	pendingTTL  time.Duration
	now         func() time.Time
	done        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewCleanupJob(
	users repository.UserRepository,
	connections repository.ConnectionRepository,
	interval time.Duration,
	pendingTTL time.Duration,
) *CleanupJob {
	return &CleanupJob{
		users:       users,
		connections: connections,
		interval:    interval,
		pendingTTL:  pendingTTL,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

// Stop signals the loop and waits for an in-flight pass to finish.
func (j *CleanupJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("cleanup job stopped")
	})
}

func (j *CleanupJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	j.runCleanup(ctx, "refresh_tokens", func(ctx context.Context) (int64, error) {
		return j.users.ClearExpiredRefreshTokens(ctx, j.now())
	})
	j.runCleanup(ctx, "stale_connection_requests", func(ctx context.Context) (int64, error) {
		return j.connections.DeletePendingBefore(ctx, j.now().Add(-j.pendingTTL))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("cleanup failed")
		return
	}
	if count > 0 {
		metrics.CleanupRowsTotal.WithLabelValues(name).Add(float64(count))
		log.Info().Int64("count", count).Str("job", name).Msg("cleanup done")
	}
}
