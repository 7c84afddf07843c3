package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/infrapulse/fabricmon/internal/apic"
	"github.com/infrapulse/fabricmon/internal/models"
	"github.com/infrapulse/fabricmon/internal/nautobot"
	"github.com/infrapulse/fabricmon/internal/secrets"
)

// PassResult is the outcome of one collection pass. Failures carry a
// human-readable message instead of an error value: nothing escapes the
// pass boundary.
type PassResult struct {
	Success   bool
	Timestamp time.Time
	Snapshot  *models.SnapshotSummary
	Message   string
}

// Runner executes collection passes. It owns the secret box and the
// optional location directory client; the database handle is passed per
// call so the poller and the API share one runner.
type Runner struct {
	db        *gorm.DB
	box       *secrets.Box
	locations *nautobot.Client
	log       zerolog.Logger
}

// NewRunner builds a pass runner. locations may be nil, in which case
// enrichment is skipped silently.
func NewRunner(db *gorm.DB, box *secrets.Box, locations *nautobot.Client, logger zerolog.Logger) *Runner {
	return &Runner{db: db, box: box, locations: locations, log: logger}
}

// Run executes one collection pass for the job: authenticate, fetch,
// correlate, reconcile, enrich. Every failure is converted into a
// PassResult with a message; callers only inspect the result.
//
// Run does not serialize concurrent passes for the same job: an on-demand
// trigger can race a scheduled one. The poller's own "skip while
// validating" check is the only guard.
func (r *Runner) Run(ctx context.Context, job *models.FabricJob, passwordOverride string) PassResult {
	timestamp := time.Now().UTC()

	password := passwordOverride
	if password == "" {
		if !job.HasCredentials() {
			return PassResult{Timestamp: timestamp, Message: ErrMissingCredentials.Error()}
		}
		plain, err := r.box.Open(job.PasswordSecret)
		if err != nil {
			return PassResult{Timestamp: timestamp, Message: fmt.Sprintf("Stored credentials could not be decrypted: %v", err)}
		}
		password = plain
	}

	started := time.Now()
	var (
		snapshot *models.SnapshotSummary
		err      error
	)
	switch job.FabricKind {
	case models.FabricKindACI:
		snapshot, err = r.collectACI(ctx, job, password)
	case models.FabricKindNXOS:
		snapshot, err = r.collectNXOS(ctx, job, password)
	default:
		err = fmt.Errorf("%w: unknown fabric kind %q", ErrUnsupportedConfig, job.FabricKind)
	}
	observePass(job.FabricKind, err == nil, time.Since(started))

	if err != nil {
		r.log.Warn().Str("job", job.UUID).Err(err).Msg("collection pass failed")
		return PassResult{Timestamp: timestamp, Message: err.Error()}
	}
	return PassResult{Success: true, Timestamp: timestamp, Snapshot: snapshot}
}

// collectACI runs the full correlate-and-reconcile pass against an
// APIC-style controller.
func (r *Runner) collectACI(ctx context.Context, job *models.FabricJob, password string) (*models.SnapshotSummary, error) {
	if job.Username == "" {
		return nil, fmt.Errorf("%w: username is required for controller fabrics", ErrUnsupportedConfig)
	}

	scheme := job.ConnectionParams["protocol"]
	if scheme == "" {
		scheme = "https"
	}
	client := apic.NewClient(baseURL(scheme, job.TargetHost, job.Port), job.VerifyTLS, r.log)
	if err := client.Login(ctx, job.Username, password); err != nil {
		return nil, err
	}

	datasets, err := client.FetchDatasets(ctx)
	if err != nil {
		return nil, err
	}

	// Node inventory commits first; correlation reads the known-node set
	// it produced. Nothing below touches previously stored rows until
	// this step has succeeded.
	known, err := upsertNodes(r.db, job, datasets.Records(apic.ClassNodeInventory))
	if err != nil {
		return nil, err
	}

	knownPaths := make(map[string]struct{}, len(known))
	for path := range known {
		knownPaths[path] = struct{}{}
	}
	snapshots := Correlate(datasets, knownPaths)

	detailCount, interfaceCount, err := applySnapshots(r.db, known, snapshots)
	if err != nil {
		return nil, err
	}

	summary := &models.SnapshotSummary{
		FabricNodeCount: len(known),
		DetailCount:     detailCount,
		InterfaceCount:  interfaceCount,
	}

	// Enrichment is best-effort: a directory failure never fails the pass.
	if r.locations != nil {
		updated, err := r.enrichLocations(ctx, known)
		if err != nil {
			r.log.Warn().Str("job", job.UUID).Err(err).Msg("location enrichment failed")
		} else {
			summary.LocationsUpdated = updated
		}
	}

	return summary, nil
}

// baseURL builds the controller base URL, omitting default ports.
func baseURL(scheme, host string, port int) string {
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) || port == 0 {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}
