package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"satcore/internal/blob"
	"satcore/internal/config"
	"satcore/internal/infra/persistence/memory"
	"satcore/internal/infra/persistence/postgres"
	"satcore/internal/infra/persistence/sqlite"
	"satcore/internal/infra/persistence/sqlrepo"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// Repositories bundles one repository per entity table over a shared backend.
type Repositories struct {
	Driver               StorageDriver
	Satellites           domain.Repository[*entitymodel.Satellite]
	Instruments          domain.Repository[*entitymodel.Instrument]
	SatelliteInstruments domain.Repository[*entitymodel.SatelliteInstrument]
	InstrumentData       domain.Repository[*entitymodel.InstrumentData]
	OceanColorMappings   domain.Repository[*entitymodel.OceanColorMapping]

	closer func() error
}

// Close releases the backend handle, if any.
func (r *Repositories) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

// NewMemoryRepositories returns empty in-memory repositories.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Driver:               StorageMemory,
		Satellites:           memory.New[entitymodel.Satellite](),
		Instruments:          memory.New[entitymodel.Instrument](),
		SatelliteInstruments: memory.New[entitymodel.SatelliteInstrument](),
		InstrumentData:       memory.New[entitymodel.InstrumentData](),
		OceanColorMappings:   memory.New[entitymodel.OceanColorMapping](),
	}
}

// NewSQLRepositories builds repositories sharing db. The schema must already
// be applied; the sqlite and postgres stores do that when opened.
func NewSQLRepositories(driver StorageDriver, db *sql.DB, dialect sqlrepo.Dialect) *Repositories {
	return &Repositories{
		Driver:               driver,
		Satellites:           sqlrepo.New[entitymodel.Satellite](db, dialect, entitymodel.SatelliteMapping),
		Instruments:          sqlrepo.New[entitymodel.Instrument](db, dialect, entitymodel.InstrumentMapping),
		SatelliteInstruments: sqlrepo.New[entitymodel.SatelliteInstrument](db, dialect, entitymodel.SatelliteInstrumentMapping),
		InstrumentData:       sqlrepo.New[entitymodel.InstrumentData](db, dialect, entitymodel.InstrumentDataMapping),
		OceanColorMappings:   sqlrepo.New[entitymodel.OceanColorMapping](db, dialect, entitymodel.OceanColorMappingMapping),
	}
}

// OpenRepositories selects a backend from cfg. SQL backends apply the
// embedded DDL before returning.
func OpenRepositories(ctx context.Context, cfg config.Storage) (*Repositories, error) {
	switch normalizeDriver(cfg.Driver) {
	case StorageMemory:
		return NewMemoryRepositories(), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repos := NewSQLRepositories(StorageSQLite, store.DB(), sqlite.Dialect)
		repos.closer = store.Close
		return repos, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repos := NewSQLRepositories(StoragePostgres, store.DB(), postgres.Dialect)
		repos.closer = store.Close
		return repos, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

func normalizeDriver(driver string) StorageDriver {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "":
		return StorageMemory
	case "postgresql":
		return StoragePostgres
	default:
		return StorageDriver(d)
	}
}

// OpenBlobStore translates the blob section of the process configuration.
func OpenBlobStore(ctx context.Context, cfg config.Blob) (blob.Store, error) {
	store, err := blob.Open(ctx, blob.Config{
		Driver: cfg.Driver,
		FSRoot: cfg.FSRoot,
		S3: blob.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, nil
}
