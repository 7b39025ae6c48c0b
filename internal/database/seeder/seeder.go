// Package seeder loads reference rows into a fresh store.
package seeder

import (
	"context"

	"hospital-jobs/internal/database"
)

type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) (int, error)
}
