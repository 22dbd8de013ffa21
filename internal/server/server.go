// Package server exposes the latest evaluation over HTTP for dashboards.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/model"
	"ValuationSentinel/internal/notifier"
	"ValuationSentinel/internal/recorder"
	"ValuationSentinel/internal/scheduler"
)

// Refresher gives access to the latest run and triggers new ones.
type Refresher interface {
	Latest() *model.Run
	ForceRefresh(ctx context.Context) (*model.Run, error)
}

// Handler serves the JSON API.
type Handler struct {
	Refresher Refresher
	Recorder  recorder.Recorder
}

// resultDTO is the wire form of a model.Result; errors become strings.
type resultDTO struct {
	Ticker     string                 `json:"ticker"`
	Display    string                 `json:"display"`
	Signal     model.Signal           `json:"signal,omitempty"`
	Reasons    []string               `json:"reasons,omitempty"`
	Highlights *model.Highlights      `json:"highlights,omitempty"`
	Indicators *model.IndicatorBundle `json:"indicators,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

type runDTO struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Policy     string               `json:"policy"`
	RSIMethod  string               `json:"rsi_method"`
	Counts     map[model.Signal]int `json:"counts"`
	Skipped    int                  `json:"skipped"`
	Results    []resultDTO          `json:"results"`
}

func toResultDTO(r model.Result) resultDTO {
	d := resultDTO{Ticker: r.Ticker, Display: notifier.DisplayTicker(r.Ticker), Indicators: r.Bundle}
	if r.Err != nil {
		d.Error = r.Err.Error()
	}
	if c := r.Classification; c != nil {
		d.Signal = c.Signal
		d.Reasons = c.Reasons
		h := c.Highlights
		d.Highlights = &h
	}
	return d
}

func toRunDTO(run *model.Run, signal model.Signal) runDTO {
	d := runDTO{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Policy:     run.Policy,
		RSIMethod:  run.RSIMethod,
		Counts:     run.CountBySignal(),
		Skipped:    len(run.Skipped()),
		Results:    []resultDTO{},
	}
	for _, r := range run.Results {
		if signal != "" && (r.Classification == nil || r.Classification.Signal != signal) {
			continue
		}
		d.Results = append(d.Results, toResultDTO(r))
	}
	return d
}

// Health handles /healthz.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Results returns the latest run, optionally filtered with ?signal=BUY.
func (h *Handler) Results(c *gin.Context) {
	run := h.Refresher.Latest()
	if run == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no evaluation has completed yet"})
		return
	}
	signal := model.Signal(strings.ToUpper(c.Query("signal")))
	c.JSON(http.StatusOK, toRunDTO(run, signal))
}

// Ticker returns one ticker from the latest run. Both "PETR4" and "PETR4.SA" match.
func (h *Handler) Ticker(c *gin.Context) {
	run := h.Refresher.Latest()
	if run == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no evaluation has completed yet"})
		return
	}
	want := strings.ToUpper(c.Param("ticker"))
	for _, r := range run.Results {
		if r.Ticker == want || notifier.DisplayTicker(r.Ticker) == want {
			c.JSON(http.StatusOK, toResultDTO(r))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "ticker not in watch-list"})
}

// Refresh drops cached market data, runs an evaluation synchronously and returns it.
func (h *Handler) Refresh(c *gin.Context) {
	run, err := h.Refresher.ForceRefresh(c.Request.Context())
	if errors.Is(err, scheduler.ErrRefreshInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh cancelled"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunDTO(run, ""))
}

// History returns recorded classifications for a ticker, newest first.
func (h *Handler) History(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}
	ticker := strings.ToUpper(c.Param("ticker"))
	if !strings.Contains(ticker, ".") {
		ticker += ".SA"
	}
	rows, err := h.Recorder.History(c.Request.Context(), ticker, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []recorder.HistoryRow{}
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "history": rows})
}

// NewRouter wires every route. A nil gatherer disables /metrics.
func NewRouter(h *Handler, g prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/healthz", Health)
	r.HEAD("/healthz", Health)

	api := r.Group("/api")
	{
		api.GET("/results", h.Results)
		api.GET("/results/:ticker", h.Ticker)
		api.POST("/refresh", h.Refresh)
		api.GET("/history/:ticker", h.History)
	}

	if g != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(g)))
	}
	return r
}
