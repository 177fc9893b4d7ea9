package storage

import (
	"context"

	"monocrack/internal/model"
)

// Store defines persistence operations for solve runs and their progress
// history.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	// ListRuns returns runs newest first. limit <= 0 returns all runs.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	DeleteRun(ctx context.Context, id string) error
	SaveProgress(ctx context.Context, runID string, points []model.ProgressPoint) error
	GetProgress(ctx context.Context, runID string) ([]model.ProgressPoint, bool, error)
}
