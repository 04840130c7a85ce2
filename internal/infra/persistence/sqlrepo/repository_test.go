package sqlrepo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"satcore/internal/infra/persistence/sqlite"
	"satcore/internal/infra/persistence/sqlrepo"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store.DB()
}

func satellites(db *sql.DB) *sqlrepo.Repository[entitymodel.Satellite, *entitymodel.Satellite] {
	return sqlrepo.New[entitymodel.Satellite](db, sqlite.Dialect, entitymodel.SatelliteMapping)
}

func TestSQLRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := satellites(openSQLite(t))

	sat := entitymodel.NewSatellite("Aqua", sql.Null[int64]{V: 27424, Valid: true}, "1 27424U", "2 27424")
	id, err := repo.Add(ctx, sat)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, ok := sat.ID(); !ok || got != id {
		t.Fatalf("expected id %d populated on entity, got %d ok=%v", id, got, ok)
	}

	stored, ok, err := repo.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if stored.Name() != "Aqua" || stored.CatalogNumber() != sat.CatalogNumber() || stored.TLELine1() != "1 27424U" {
		t.Fatalf("unexpected stored row %+v", stored)
	}

	stored.SetTLELine1("1 27424U 02022A")
	if ok, err := repo.Update(ctx, stored); err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	again, _, _ := repo.Get(ctx, id)
	if again.TLELine1() != "1 27424U 02022A" {
		t.Fatalf("update not persisted: %q", again.TLELine1())
	}

	all, err := repo.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %d rows err=%v", len(all), err)
	}

	if ok, err := repo.Delete(ctx, id); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Delete(ctx, id); err != nil || ok {
		t.Fatalf("second delete should report false: ok=%v err=%v", ok, err)
	}
	if _, ok, err := repo.Get(ctx, id); err != nil || ok {
		t.Fatalf("expected absence after delete: ok=%v err=%v", ok, err)
	}
}

func TestSQLRepositoryPresetIDAndConflict(t *testing.T) {
	ctx := context.Background()
	repo := sqlrepo.New[entitymodel.Instrument](openSQLite(t), sqlite.Dialect, entitymodel.InstrumentMapping)

	modis := entitymodel.NewInstrument("MODIS")
	modis.SetID(7)
	id, err := repo.Add(ctx, modis)
	if err != nil || id != 7 {
		t.Fatalf("expected preset id 7, got %d err=%v", id, err)
	}

	dup := entitymodel.NewInstrument("OLCI")
	dup.SetID(7)
	if _, err := repo.Add(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	next, err := repo.Add(ctx, entitymodel.NewInstrument("OLCI"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if next == 7 {
		t.Fatalf("expected a fresh id, got occupied %d", next)
	}
}

func TestSQLRepositoryUpdateWithoutIDFails(t *testing.T) {
	ctx := context.Background()
	repo := sqlrepo.New[entitymodel.Instrument](openSQLite(t), sqlite.Dialect, entitymodel.InstrumentMapping)
	if _, err := repo.Add(ctx, entitymodel.NewInstrument("MODIS")); err != nil {
		t.Fatalf("add: %v", err)
	}

	ok, err := repo.Update(ctx, entitymodel.NewInstrument("changed"))
	if !errors.Is(err, domain.ErrMissingID) || ok {
		t.Fatalf("expected ErrMissingID, got ok=%v err=%v", ok, err)
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 || all[0].Name() != "MODIS" {
		t.Fatalf("state mutated by failed update: %+v", all)
	}

	ghost := entitymodel.NewInstrument("ghost")
	ghost.SetID(99)
	if ok, err := repo.Update(ctx, ghost); err != nil || ok {
		t.Fatalf("expected false for absent row, ok=%v err=%v", ok, err)
	}
}

// Every generated entity survives flatten -> INSERT -> SELECT -> hydrate with
// all non-identity values intact, including NULL for optional columns.
func TestHydrateFlattenRoundTripForEveryEntity(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	sats := satellites(db)
	for _, sat := range []*entitymodel.Satellite{
		entitymodel.NewSatellite("Terra", sql.Null[int64]{V: 25994, Valid: true}, "l1", "l2"),
		entitymodel.NewSatellite("Uncatalogued", sql.Null[int64]{}, "", ""),
	} {
		assertRoundTrip(ctx, t, sqlrepo.New[entitymodel.Satellite](db, sqlite.Dialect, entitymodel.SatelliteMapping), sat)
	}
	assertRoundTrip(ctx, t, sqlrepo.New[entitymodel.Instrument](db, sqlite.Dialect, entitymodel.InstrumentMapping),
		entitymodel.NewInstrument("OLCI"))
	assertRoundTrip(ctx, t, sqlrepo.New[entitymodel.SatelliteInstrument](db, sqlite.Dialect, entitymodel.SatelliteInstrumentMapping),
		entitymodel.NewSatelliteInstrument(domain.RefTo[entitymodel.Satellite](1), domain.RefTo[entitymodel.Instrument](2)))
	assertRoundTrip(ctx, t, sqlrepo.New[entitymodel.InstrumentData](db, sqlite.Dialect, entitymodel.InstrumentDataMapping),
		entitymodel.NewInstrumentData(domain.RefTo[entitymodel.SatelliteInstrument](3), "images/20240301/120000_0.png"))
	assertRoundTrip(ctx, t, sqlrepo.New[entitymodel.OceanColorMapping](db, sqlite.Dialect, entitymodel.OceanColorMappingMapping),
		entitymodel.NewOceanColorMapping(domain.RefTo[entitymodel.SatelliteInstrument](3), 29, 1267))

	if all, err := sats.List(ctx); err != nil || len(all) != 2 {
		t.Fatalf("expected 2 satellites, got %d err=%v", len(all), err)
	}
}

// pass exercises the REAL, boolean and timestamp column kinds the generated
// entities do not use.
type pass struct {
	id        domain.ID
	hasID     bool
	elevation float64
	daylight  bool
	acquired  time.Time
}

func (p *pass) ID() (domain.ID, bool) { return p.id, p.hasID }
func (p *pass) SetID(id domain.ID)    { p.id, p.hasID = id, true }
func (p *pass) Clone() *pass          { c := *p; return &c }
func (p *pass) TableName() string     { return "pass" }

func (p *pass) Columns() []domain.Column {
	return []domain.Column{
		{Name: "elevation", Value: p.elevation},
		{Name: "daylight", Value: p.daylight},
		{Name: "acquired", Value: p.acquired},
	}
}

var passMapping = domain.Mapping[*pass]{
	Table: "pass",
	Hydrate: func(row domain.Row) (*pass, error) {
		id, err := domain.RowID(row)
		if err != nil {
			return nil, err
		}
		p := &pass{id: id, hasID: true}
		if p.elevation, err = domain.RowFloat64(row, "elevation"); err != nil {
			return nil, err
		}
		if p.daylight, err = domain.RowBool(row, "daylight"); err != nil {
			return nil, err
		}
		if p.acquired, err = domain.RowTime(row, "acquired"); err != nil {
			return nil, err
		}
		return p, nil
	},
}

func TestHydrateFlattenRoundTripForScalarKinds(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	if _, err := db.ExecContext(ctx, `CREATE TABLE pass (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		elevation REAL NOT NULL,
		daylight INTEGER NOT NULL,
		acquired TIMESTAMP NOT NULL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	repo := sqlrepo.New[pass](db, sqlite.Dialect, passMapping)

	cet := time.FixedZone("CET", 3600)
	for _, want := range []*pass{
		{elevation: 42.125, daylight: true, acquired: time.Date(2024, 3, 1, 13, 30, 15, 123456789, cet)},
		{elevation: -0.5, daylight: false, acquired: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)},
	} {
		id, err := repo.Add(ctx, want)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		got, ok, err := repo.Get(ctx, id)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if got.elevation != want.elevation {
			t.Fatalf("elevation: got %v want %v", got.elevation, want.elevation)
		}
		if got.daylight != want.daylight {
			t.Fatalf("daylight: got %v want %v", got.daylight, want.daylight)
		}
		if !got.acquired.Equal(want.acquired) {
			t.Fatalf("acquired: got %v want %v", got.acquired, want.acquired)
		}
		if got.acquired.Location() != time.UTC {
			t.Fatalf("acquired should be normalised to UTC, got %v", got.acquired.Location())
		}
	}
}

// Dangling references are stored as-is; nothing checks the target exists.
func TestDanglingReferencesAreAccepted(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	data := sqlrepo.New[entitymodel.InstrumentData](db, sqlite.Dialect, entitymodel.InstrumentDataMapping)
	links := sqlrepo.New[entitymodel.SatelliteInstrument](db, sqlite.Dialect, entitymodel.SatelliteInstrumentMapping)

	row := entitymodel.NewInstrumentData(domain.RefTo[entitymodel.SatelliteInstrument](12345), "images/x.png")
	if _, err := data.Add(ctx, row); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok, err := row.SatelliteInstrument().Resolve(ctx, links); ok || err != nil {
		t.Fatalf("expected dangling reference to resolve to absence, ok=%v err=%v", ok, err)
	}
}

func TestApplyDDLRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	err := sqlrepo.ApplyDDL(ctx, db, []string{
		"CREATE TABLE IF NOT EXISTS ground_station (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"CREATE TABLE broken (",
	})
	if err == nil {
		t.Fatalf("expected ddl error")
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ground_station'").Scan(&n); err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected earlier statement rolled back, table exists")
	}

	if err := sqlrepo.ApplyDDL(ctx, db, []string{
		"CREATE TABLE IF NOT EXISTS ground_station (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"  ",
	}); err != nil {
		t.Fatalf("apply ddl: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ground_station'").Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected committed table, n=%d err=%v", n, err)
	}
}

func TestMigrateSelectsBundleByDialect(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	if err := sqlrepo.Migrate(ctx, db, sqlite.Dialect); err != nil {
		t.Fatalf("re-applying sqlite bundle should be idempotent: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ocean_color_mapping'").Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected ocean_color_mapping table, n=%d err=%v", n, err)
	}

	unknown := sqlite.Dialect
	unknown.Name = "oracle"
	if err := sqlrepo.Migrate(ctx, db, unknown); err == nil {
		t.Fatalf("expected error for dialect without a bundle")
	}
}

func TestBackendFailuresAreTyped(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	repo := satellites(db)
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, _, err := repo.Get(ctx, 1)
	var backendErr *domain.BackendError
	if !errors.As(err, &backendErr) || backendErr.Table != "satellite" {
		t.Fatalf("expected BackendError for satellite, got %v", err)
	}
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend match")
	}
}

func assertRoundTrip[T any, P domain.Record[T]](ctx context.Context, t *testing.T, repo *sqlrepo.Repository[T, P], entity P) {
	t.Helper()
	want := entity.Columns()
	id, err := repo.Add(ctx, entity)
	if err != nil {
		t.Fatalf("%s add: %v", entity.TableName(), err)
	}
	got, ok, err := repo.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("%s get: ok=%v err=%v", entity.TableName(), ok, err)
	}
	cols := got.Columns()
	if len(cols) != len(want) {
		t.Fatalf("%s: column count %d != %d", entity.TableName(), len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("%s column %s: got %#v want %#v", entity.TableName(), want[i].Name, cols[i].Value, want[i].Value)
		}
	}
}
