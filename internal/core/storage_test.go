package core

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"satcore/internal/blob"
	"satcore/internal/config"
	"satcore/internal/infra/persistence/postgres"
	"satcore/internal/infra/persistence/postgres/testutil"
)

func TestOpenRepositoriesMemory(t *testing.T) {
	for _, driver := range []string{"", "memory", " MEMORY "} {
		repos, err := OpenRepositories(context.Background(), config.Storage{Driver: driver})
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if repos.Driver != StorageMemory {
			t.Fatalf("driver %q: expected memory, got %s", driver, repos.Driver)
		}
		if err := repos.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestOpenRepositoriesSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "satcore.db")
	cfg := config.Storage{Driver: "sqlite", SQLitePath: path}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := Provision(ctx, repos, ProvisionOptions{}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := repos.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenRepositories(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	sats, err := reopened.Satellites.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sats) != len(DefaultSeed) {
		t.Fatalf("expected %d satellites after reopen, got %d", len(DefaultSeed), len(sats))
	}
}

func TestOpenRepositoriesPostgres(t *testing.T) {
	ctx := context.Background()
	db, conn := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	repos, err := OpenRepositories(ctx, config.Storage{Driver: "postgresql", PostgresDSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if repos.Driver != StoragePostgres {
		t.Fatalf("expected postgres driver, got %s", repos.Driver)
	}
	report, err := Provision(ctx, repos, ProvisionOptions{})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if report.Mappings != 3 || len(conn.Tables["ocean_color_mapping"]) != 3 {
		t.Fatalf("unexpected mapping rows: report=%+v rows=%d", report, len(conn.Tables["ocean_color_mapping"]))
	}
}

func TestOpenRepositoriesUnknownDriver(t *testing.T) {
	_, err := OpenRepositories(context.Background(), config.Storage{Driver: "cassandra"})
	if err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestOpenBlobStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBlobStore(ctx, config.Blob{Driver: "memory"})
	if err != nil || store.Driver() != blob.DriverMemory {
		t.Fatalf("memory: %v %v", store, err)
	}
	store, err = OpenBlobStore(ctx, config.Blob{Driver: "fs", FSRoot: t.TempDir()})
	if err != nil || store.Driver() != blob.DriverFilesystem {
		t.Fatalf("fs: %v %v", store, err)
	}
	if _, err := OpenBlobStore(ctx, config.Blob{Driver: "s3"}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := OpenBlobStore(ctx, config.Blob{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown blob driver to fail")
	}
}
