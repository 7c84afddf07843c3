package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/infrapulse/fabricmon/internal/models"
)

// Poller runs scheduled collection passes. Each tick scans all jobs and
// re-polls those whose interval has elapsed; jobs currently validating are
// skipped so an in-flight pass is never doubled up by the scheduler.
type Poller struct {
	db     *gorm.DB
	runner *Runner
	tick   time.Duration
	log    zerolog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPoller builds a poller; tick is the scan cadence, independent of the
// per-job poll intervals.
func NewPoller(db *gorm.DB, runner *Runner, tick time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{db: db, runner: runner, tick: tick, log: logger}
}

// Start launches the background loop. Calling Start on a running poller is
// a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.stop, p.done)
	p.log.Info().Dur("tick", p.tick).Msg("poller started")
}

// Stop halts the loop and waits for an in-progress tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	p.log.Info().Msg("poller stopped")
}

func (p *Poller) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.runDue(context.Background())
		}
	}
}

// runDue executes one scheduler tick: poll every eligible job sequentially.
func (p *Poller) runDue(ctx context.Context) {
	var jobs []models.FabricJob
	if err := p.db.Find(&jobs).Error; err != nil {
		p.log.Error().Err(err).Msg("poller: loading jobs")
		return
	}

	now := time.Now().UTC()
	for i := range jobs {
		job := &jobs[i]
		if !shouldPoll(job, now) {
			continue
		}
		p.pollOne(ctx, job)
	}
}

// shouldPoll reports whether the job is due. A job with no recorded poll is
// always due; a non-positive interval disables scheduling for the job.
func shouldPoll(job *models.FabricJob, now time.Time) bool {
	if job.PollIntervalSeconds <= 0 {
		return false
	}
	if job.Status == models.StatusValidating {
		return false
	}
	if job.LastPolledAt == nil {
		return true
	}
	elapsed := now.Sub(job.LastPolledAt.UTC())
	return elapsed >= time.Duration(job.PollIntervalSeconds)*time.Second
}

func (p *Poller) pollOne(ctx context.Context, job *models.FabricJob) {
	job.StartValidation()
	if err := p.db.Save(job).Error; err != nil {
		p.log.Error().Str("job", job.UUID).Err(err).Msg("poller: marking job validating")
		return
	}

	result := p.runner.Run(ctx, job, "")
	if result.Success {
		job.MarkSuccess()
		job.LastSnapshot = result.Snapshot
		job.LastPolledAt = &result.Timestamp
	} else {
		job.MarkFailure(result.Message)
		job.LastSnapshot = nil
	}
	if err := p.db.Save(job).Error; err != nil {
		p.log.Error().Str("job", job.UUID).Err(err).Msg("poller: saving job result")
		return
	}

	p.log.Info().
		Str("job", job.UUID).
		Bool("success", result.Success).
		Msg("scheduled poll finished")
}
