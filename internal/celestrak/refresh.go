package celestrak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"satcore/internal/logging"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// RefreshJobName identifies the TLE refresh job in logs and metrics.
const RefreshJobName = "celestrak-refresh"

// RefreshState records the outcome of the last refresh.
type RefreshState struct {
	LastRun time.Time
	Updated int
}

// RefreshJob updates the orbital elements of every satellite that carries a
// catalog number.
type RefreshJob struct {
	satellites domain.Repository[*entitymodel.Satellite]
	source     Source
	now        func() time.Time
	logger     *slog.Logger
}

// NewRefreshJob returns a RefreshJob. A nil logger discards output.
func NewRefreshJob(satellites domain.Repository[*entitymodel.Satellite], source Source, logger *slog.Logger) (*RefreshJob, error) {
	if satellites == nil || source == nil {
		return nil, errors.New("celestrak refresh: satellites repository and source required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &RefreshJob{
		satellites: satellites,
		source:     source,
		now:        time.Now,
		logger:     logger.With("component", RefreshJobName),
	}, nil
}

// Name implements scheduler.Job.
func (j *RefreshJob) Name() string { return RefreshJobName }

// Run implements scheduler.Job. Failures for one satellite are logged and
// do not stop the others; they are joined into the returned error.
func (j *RefreshJob) Run(ctx context.Context, st *RefreshState) error {
	sats, err := j.satellites.List(ctx)
	if err != nil {
		return fmt.Errorf("list satellites: %w", err)
	}
	var errs []error
	updated := 0
	for _, sat := range sats {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		catnr := sat.CatalogNumber()
		if !catnr.Valid {
			continue
		}
		changed, err := j.refresh(ctx, sat, catnr.V)
		if err != nil {
			id, _ := sat.ID()
			j.logger.Error("tle refresh failed", "satellite_id", id, "name", sat.Name(), "catalog_number", catnr.V, logging.ErrorChain(err))
			errs = append(errs, fmt.Errorf("satellite %s: %w", sat.Name(), err))
			continue
		}
		if changed {
			updated++
		}
	}
	st.LastRun = j.now().UTC()
	st.Updated = updated
	j.logger.Info("tle refresh finished", "satellites", len(sats), "updated", updated, "failed", len(errs))
	return logging.Reported(errors.Join(errs...))
}

func (j *RefreshJob) refresh(ctx context.Context, sat *entitymodel.Satellite, catnr int64) (bool, error) {
	tle, err := Lookup(ctx, j.source, catnr)
	if err != nil {
		return false, err
	}
	if tle.Line1 == sat.TLELine1() && tle.Line2 == sat.TLELine2() {
		return false, nil
	}
	sat.SetTLELine1(tle.Line1)
	sat.SetTLELine2(tle.Line2)
	ok, err := j.satellites.Update(ctx, sat)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("update: %w", domain.ErrNotFound)
	}
	return true, nil
}

// Lookup returns the element set for catalog number catnr.
func Lookup(ctx context.Context, source Source, catnr int64) (TLE, error) {
	tles, err := source.Query(ctx, ByCatalogNumber(catnr))
	if err != nil {
		return TLE{}, err
	}
	for _, tle := range tles {
		if n, err := tle.CatalogNumber(); err == nil && n == catnr {
			return tle, nil
		}
	}
	return TLE{}, fmt.Errorf("catalog number %d: %w", catnr, domain.ErrNotFound)
}
