package recorder

import (
	"context"

	"ValuationSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.Run) (int64, error) { return 0, nil }
func (n *NoopRecorder) History(_ context.Context, _ string, _ int) ([]HistoryRow, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
