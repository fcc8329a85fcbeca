// Package archive stores the final record and full timeline of animals that
// leave the herd. It wraps the infra-backed object stores behind one interface.
package archive

import (
	"context"
	"fmt"

	"herdcore/internal/archive/core"
	fsstore "herdcore/internal/infra/archive/fs"
	memorystore "herdcore/internal/infra/archive/memory"
	s3store "herdcore/internal/infra/archive/s3"
)

type (
	// Driver identifies an archive backend.
	Driver = core.Driver
	// PutOptions configures an object write.
	PutOptions = core.PutOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for archive backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = s3store.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound is returned when an archived object does not exist.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when an object key is already taken.
	ErrExists = core.ErrExists
)

// Config selects and configures an archive backend.
type Config struct {
	Driver string   `yaml:"driver"`
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewS3 returns an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// NewMockS3ForTests exposes the fake S3 transport for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }

// Open builds the Store selected by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", cfg.Driver)
	}
}
