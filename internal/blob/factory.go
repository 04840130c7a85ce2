package blob

import (
	"context"
	"fmt"
	"strings"

	s3store "satcore/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = s3store.Config

// Config selects and configures a blob driver.
type Config struct {
	Driver string // fs (default), s3 or memory
	FSRoot string
	S3     S3Config
}

// Open constructs the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(cfg.Driver))) {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
