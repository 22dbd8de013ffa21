// Package evaluator runs the collect-and-classify pipeline over a watch-list
// with bounded concurrency. A batch never fails: every per-ticker problem is
// captured in that ticker's Result.
package evaluator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/model"
	"ValuationSentinel/internal/strategy"
)

// DefaultWorkers is used when Workers is not positive.
const DefaultWorkers = 4

// Source produces the indicator bundle for one ticker.
type Source interface {
	Collect(ctx context.Context, ticker string) (*model.IndicatorBundle, error)
}

// Evaluator fans tickers out to a fixed number of workers.
type Evaluator struct {
	Source    Source
	Policy    strategy.Policy
	Workers   int
	RSIMethod string
	Metrics   *metrics.Metrics
}

// New creates an Evaluator.
func New(src Source, policy strategy.Policy, workers int) *Evaluator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Evaluator{Source: src, Policy: policy, Workers: workers}
}

// Evaluate returns exactly one Result per ticker, in input order.
func (e *Evaluator) Evaluate(ctx context.Context, tickers []string) []model.Result {
	results := make([]model.Result, len(tickers))

	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)

	for i, ticker := range tickers {
		g.Go(func() error {
			results[i] = e.evaluateOne(ctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			e.Metrics.Skipped()
			log.Printf("[WARN] %s skipped: %v", r.Ticker, r.Err)
			continue
		}
		e.Metrics.Evaluated(string(r.Classification.Signal))
	}
	return results
}

// Run evaluates tickers and wraps the results with run metadata.
func (e *Evaluator) Run(ctx context.Context, tickers []string) *model.Run {
	start := time.Now()
	results := e.Evaluate(ctx, tickers)
	end := time.Now()
	e.Metrics.RunFinished(start, end)

	run := &model.Run{
		ID:         uuid.NewString(),
		StartedAt:  start,
		FinishedAt: end,
		Policy:     e.Policy.Name(),
		RSIMethod:  e.RSIMethod,
		Results:    results,
	}
	log.Printf("[INFO] run %s evaluated %d tickers in %s (%d skipped)",
		run.ID, len(tickers), end.Sub(start).Round(time.Millisecond), len(run.Skipped()))
	return run
}

func (e *Evaluator) evaluateOne(ctx context.Context, ticker string) (res model.Result) {
	res.Ticker = ticker
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] panic evaluating %s: %v\n%s", ticker, r, debug.Stack())
			res = model.Result{Ticker: ticker, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("evaluation cancelled: %w", err)
		return res
	}
	bundle, err := e.Source.Collect(ctx, ticker)
	if err != nil {
		res.Err = err
		return res
	}
	c := e.Policy.Classify(bundle)
	res.Bundle = bundle
	res.Classification = &c
	return res
}
