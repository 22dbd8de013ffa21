package recorder

import (
	"context"
	"time"

	"ValuationSentinel/internal/model"
)

// HistoryRow is one recorded classification of a ticker.
type HistoryRow struct {
	RunID     int64     `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Signal    string    `json:"signal"`
	Price     float64   `json:"price"`
	RSI       float64   `json:"rsi"`
	Trend     string    `json:"trend"`
	Reasons   string    `json:"reasons"`
}

// Recorder persists evaluation runs for later analysis.
type Recorder interface {
	RecordRun(run *model.Run) (int64, error)
	History(ctx context.Context, ticker string, limit int) ([]HistoryRow, error)
	Close() error
}
