package oceancolor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"satcore/internal/blob"
	"satcore/internal/geophys"
	"satcore/internal/logging"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// JobName identifies the ingestion job in logs and metrics.
const JobName = "oceancolor-ingest"

// State is the ingestion job's private state. A zero Watermark means no
// window has been attempted yet.
type State struct {
	Watermark time.Time
}

// JobConfig wires the ingestion job's collaborators.
type JobConfig struct {
	Provider Provider
	Decoder  geophys.Decoder
	Mappings domain.Repository[*entitymodel.OceanColorMapping]
	Data     domain.Repository[*entitymodel.InstrumentData]
	Blobs    blob.Store
	// Lookback bounds the first window when State has no watermark.
	Lookback time.Duration
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Job searches every OceanColorMapping for new products, renders them to PNG
// and records an InstrumentData row per stored image.
type Job struct {
	cfg    JobConfig
	logger *slog.Logger
}

// NewJob validates cfg and returns the job.
func NewJob(cfg JobConfig) (*Job, error) {
	var errs []error
	if cfg.Provider == nil {
		errs = append(errs, errors.New("provider required"))
	}
	if cfg.Decoder == nil {
		errs = append(errs, errors.New("decoder required"))
	}
	if cfg.Mappings == nil || cfg.Data == nil {
		errs = append(errs, errors.New("mapping and instrument data repositories required"))
	}
	if cfg.Blobs == nil {
		errs = append(errs, errors.New("blob store required"))
	}
	if cfg.Lookback <= 0 {
		errs = append(errs, errors.New("lookback must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("oceancolor job: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Job{cfg: cfg, logger: logger.With("component", JobName)}, nil
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return JobName }

// Run executes one tick. The watermark moves to now before any work, so a
// failed window is not retried by later ticks.
func (j *Job) Run(ctx context.Context, st *State) error {
	now := j.cfg.Now().UTC()
	start := st.Watermark
	if start.IsZero() {
		start = now.Add(-j.cfg.Lookback)
	}
	st.Watermark = now

	mappings, err := j.cfg.Mappings.List(ctx)
	if err != nil {
		return fmt.Errorf("list mappings: %w", err)
	}

	t := &tick{job: j, now: now}
	var failed []error
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(failed, err)...)
		}
		if err := t.ingestMapping(ctx, m, start); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return errors.Join(append(failed, err)...)
			}
			failed = append(failed, err)
		}
	}
	j.logger.Info("ingestion tick finished",
		"window_start", start, "window_end", now,
		"mappings", len(mappings), "stored", t.stored, "failed_mappings", len(failed))
	return logging.Reported(errors.Join(failed...))
}

// tick carries per-invocation bookkeeping: the frozen clock and the running
// image index used in blob keys.
type tick struct {
	job    *Job
	now    time.Time
	index  int
	stored int
}

func (t *tick) ingestMapping(ctx context.Context, m *entitymodel.OceanColorMapping, start time.Time) error {
	id, _ := m.ID()
	logger := t.job.logger.With("mapping_id", id, "sensor_id", m.SensorID(), "data_id", m.DataID())

	items, err := t.job.cfg.Provider.Search(ctx, Query{Start: start, End: t.now, SensorID: m.SensorID(), DataID: m.DataID()})
	if err != nil {
		logger.Error("search failed", logging.ErrorChain(err))
		return fmt.Errorf("mapping %s: %w", id, err)
	}
	logger.Info("search finished", "items", len(items), "window_start", start, "window_end", t.now)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := t.nextKey()
		if err := t.ingestItem(ctx, m, item, key); err != nil {
			logger.Error("item ingestion failed", "item", item, logging.ErrorChain(err))
			return fmt.Errorf("mapping %s item %s: %w", id, item, err)
		}
		t.stored++
		attrs := []any{"item", item, "key", key}
		if acquired, err := ItemTime(item); err == nil {
			attrs = append(attrs, "acquired", acquired)
		}
		logger.Debug("item stored", attrs...)
	}
	return nil
}

func (t *tick) nextKey() string {
	key := fmt.Sprintf("images/%s/%s_%d.png", t.now.Format("20060102"), t.now.Format("150405"), t.index)
	t.index++
	return key
}

func (t *tick) ingestItem(ctx context.Context, m *entitymodel.OceanColorMapping, item, key string) error {
	file, err := t.job.cfg.Provider.Download(ctx, item)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() { _ = RemoveDownload(file) }()

	grid, err := t.job.cfg.Decoder.Decode(ctx, file)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	var buf bytes.Buffer
	if err := geophys.EncodePNG(&buf, geophys.Render(grid)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	mappingID, _ := m.ID()
	if _, err := t.job.cfg.Blobs.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"item": item, "mapping": mappingID.String()},
	}); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	if _, err := t.job.cfg.Data.Add(ctx, entitymodel.NewInstrumentData(m.SatelliteInstrument(), key)); err != nil {
		err = fmt.Errorf("record instrument data: %w", err)
		// No row points at the image any more; drop it even if ctx is done.
		if _, delErr := t.job.cfg.Blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			return errors.Join(err, fmt.Errorf("remove unrecorded image %s: %w", key, delErr))
		}
		return err
	}
	return nil
}
