package recorder

import (
	"context"
	"time"

	"MarketLens/internal/model"
)

// RunRecord is one row of the pipeline_runs table.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Recorder persists run history and accumulated observations for analysis.
type Recorder interface {
	RecordRun(ctx context.Context, res *model.PipelineResult) error
	Close() error
}
