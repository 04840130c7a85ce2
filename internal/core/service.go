package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"satcore/internal/blob"
	"satcore/internal/logging"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// Service exposes the read operations a query surface consumes, plus the
// single write used to record stored products.
type Service struct {
	repos  *Repositories
	blobs  blob.Store
	logger *slog.Logger
}

// NewService constructs a service over repos and blobs.
func NewService(repos *Repositories, blobs blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repos: repos, blobs: blobs, logger: logger.With("component", "core")}
}

// Repositories returns the underlying repositories.
func (s *Service) Repositories() *Repositories { return s.repos }

// ListSatellites returns every satellite ordered by id.
func (s *Service) ListSatellites(ctx context.Context) ([]*entitymodel.Satellite, error) {
	sats, err := s.repos.Satellites.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list satellites: %w", err)
	}
	sortByID(sats)
	return sats, nil
}

// ListInstrumentData returns the data products of every instrument flying on
// the satellite, ordered by id. An unknown satellite is ErrNotFound.
func (s *Service) ListInstrumentData(ctx context.Context, satelliteID domain.ID) ([]*entitymodel.InstrumentData, error) {
	if _, ok, err := s.repos.Satellites.Get(ctx, satelliteID); err != nil {
		return nil, fmt.Errorf("get satellite %s: %w", satelliteID, err)
	} else if !ok {
		return nil, fmt.Errorf("satellite %s: %w", satelliteID, domain.ErrNotFound)
	}

	pairs, err := s.repos.SatelliteInstruments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list satellite instruments: %w", err)
	}
	flying := make(map[domain.ID]struct{})
	for _, p := range pairs {
		if p.Satellite().ID != satelliteID {
			continue
		}
		if id, ok := p.ID(); ok {
			flying[id] = struct{}{}
		}
	}

	rows, err := s.repos.InstrumentData.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instrument data: %w", err)
	}
	out := rows[:0]
	for _, row := range rows {
		if _, ok := flying[row.SatelliteInstrument().ID]; ok {
			out = append(out, row)
		}
	}
	sortByID(out)
	return out, nil
}

// GetInstrumentData returns one product row or ErrNotFound.
func (s *Service) GetInstrumentData(ctx context.Context, id domain.ID) (*entitymodel.InstrumentData, error) {
	row, ok, err := s.repos.InstrumentData.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get instrument data %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("instrument data %s: %w", id, domain.ErrNotFound)
	}
	return row, nil
}

// AddInstrumentData records a stored product for a satellite/instrument pair.
// The pair is not checked for existence.
func (s *Service) AddInstrumentData(ctx context.Context, pair domain.Ref[entitymodel.SatelliteInstrument], path string) (domain.ID, error) {
	if path == "" {
		return 0, fmt.Errorf("add instrument data: %w", blob.ErrInvalidKey)
	}
	id, err := s.repos.InstrumentData.Add(ctx, entitymodel.NewInstrumentData(pair, path))
	if err != nil {
		return 0, fmt.Errorf("add instrument data: %w", err)
	}
	return id, nil
}

// OpenAsset streams the blob behind an InstrumentData row. The caller closes
// the reader. A missing row or blob is ErrNotFound.
func (s *Service) OpenAsset(ctx context.Context, id domain.ID) (blob.Info, io.ReadCloser, error) {
	row, err := s.GetInstrumentData(ctx, id)
	if err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := s.blobs.Get(ctx, row.Path())
	if err != nil {
		s.logger.Warn("asset unavailable", "instrument_data_id", id, "key", row.Path(), logging.ErrorChain(err))
		return blob.Info{}, nil, fmt.Errorf("asset %s: %w", id, err)
	}
	return info, rc, nil
}

// AssetURL returns a time-limited URL for the asset when the blob driver can
// sign one, or blob.ErrUnsupported. A missing blob is ErrNotFound.
func (s *Service) AssetURL(ctx context.Context, id domain.ID, expiry time.Duration) (string, error) {
	row, err := s.GetInstrumentData(ctx, id)
	if err != nil {
		return "", err
	}
	// Signing never checks existence, so a dangling path would yield a dead URL.
	if _, err := s.blobs.Head(ctx, row.Path()); err != nil {
		return "", fmt.Errorf("asset %s: %w", id, err)
	}
	url, err := s.blobs.PresignURL(ctx, row.Path(), blob.SignedURLOptions{Expiry: expiry})
	if err != nil {
		return "", fmt.Errorf("asset %s url: %w", id, err)
	}
	return url, nil
}

func sortByID[P domain.Identifiable](rows []P) {
	slices.SortFunc(rows, func(a, b P) int {
		ai, _ := a.ID()
		bi, _ := b.ID()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	})
}
