package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const refreshTimeout = 2 * time.Minute

// TrendingRefresher re-reads the catalog's trending list into the store.
type TrendingRefresher interface {
	RefreshTrending(ctx context.Context, n int) (updated, inserted int, err error)
}

// Manager runs the periodic cache maintenance jobs.
type Manager struct {
	cron    *cron.Cron
	store   TrendingRefresher
	spec    string
	size    int
	entryID cron.EntryID
}

// NewManager builds a scheduler refreshing size trending entries on spec,
// plus once at start. An empty spec disables the job.
func NewManager(store TrendingRefresher, spec string, size int) *Manager {
	return &Manager{
		cron:  cron.New(),
		store: store,
		spec:  spec,
		size:  size,
	}
}

func (m *Manager) Start() error {
	if m.spec == "" {
		log.Info().Msg("scheduler disabled")
		return nil
	}
	id, err := m.cron.AddFunc(m.spec, m.RefreshTrending)
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", m.spec)
	}
	m.entryID = id
	m.cron.Start()
	log.Info().Str("spec", m.spec).Int("size", m.size).Msg("scheduler started")

	go m.RefreshTrending()
	return nil
}

// Stop waits for a running job to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (m *Manager) RefreshTrending() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	updated, inserted, err := m.store.RefreshTrending(ctx, m.size)
	if err != nil {
		log.Error().Err(err).Msg("trending refresh failed")
		return
	}
	log.Info().Int("updated", updated).Int("inserted", inserted).Dur("elapsed", time.Since(start)).Msg("trending refreshed")
}

// NextRun reports when the refresh job fires next, or the zero time.
func (m *Manager) NextRun() time.Time {
	if m.entryID == 0 {
		return time.Time{}
	}
	return m.cron.Entry(m.entryID).Next
}
