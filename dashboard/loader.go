// Package dashboard renders interaction metrics from the record store as a
// terminal UI with tabbed performance, cost, latency and daily views.
package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/civicsense/civicsense/store"
)

// DataSource is the subset of the record store the dashboard reads.
type DataSource interface {
	FeedbackSummary(ctx context.Context) ([]store.FeedbackSummaryRow, error)
	HourlyCost(ctx context.Context, since time.Time) ([]store.HourlyCostRow, error)
	HourlyLatency(ctx context.Context, since time.Time) ([]store.HourlyLatencyRow, error)
	DailyStats(ctx context.Context, days int) ([]store.DailyStatsRow, error)
}

// Snapshot is one consistent load of every view's data.
type Snapshot struct {
	Feedback []store.FeedbackSummaryRow
	Cost     []store.HourlyCostRow
	Latency  []store.HourlyLatencyRow
	Daily    []store.DailyStatsRow
	LoadedAt time.Time
	Err      error
}

// Window sizes for the rollup views.
const (
	costWindow    = 24 * time.Hour
	latencyWindow = 24 * time.Hour
	dailyDays     = 30
)

// Load reads all views from the data source. Partial failures surface as
// the snapshot error with whatever loaded intact.
func Load(ctx context.Context, ds DataSource) Snapshot {
	snap := Snapshot{LoadedAt: time.Now()}
	var err error
	if snap.Feedback, err = ds.FeedbackSummary(ctx); err != nil {
		snap.Err = err
	}
	if snap.Cost, err = ds.HourlyCost(ctx, time.Now().Add(-costWindow)); err != nil {
		snap.Err = err
	}
	if snap.Latency, err = ds.HourlyLatency(ctx, time.Now().Add(-latencyWindow)); err != nil {
		snap.Err = err
	}
	if snap.Daily, err = ds.DailyStats(ctx, dailyDays); err != nil {
		snap.Err = err
	}
	return snap
}

// TotalCost sums spend across the cost window.
func (s Snapshot) TotalCost() float64 {
	var total float64
	for _, row := range s.Cost {
		total += row.CostUSD
	}
	return total
}

// TotalQueries sums request counts across the daily window.
func (s Snapshot) TotalQueries() int64 {
	var total int64
	for _, row := range s.Daily {
		total += row.Queries
	}
	return total
}

// ExportCSV writes the named view to a timestamped CSV file in the current
// directory and returns the filename.
func (s Snapshot) ExportCSV(view string) (string, error) {
	header, rows := s.csvData(view)
	if header == nil {
		return "", fmt.Errorf("unknown view: %s", view)
	}
	name := fmt.Sprintf("%s_metrics_%s.csv", view, time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	w.Flush()
	return name, w.Error()
}

func (s Snapshot) csvData(view string) ([]string, [][]string) {
	switch view {
	case "performance":
		rows := make([][]string, 0, len(s.Feedback))
		for _, r := range s.Feedback {
			rows = append(rows, []string{
				r.Name, r.AppVersion,
				formatFloat(r.MinScore), formatFloat(r.AvgScore), formatFloat(r.MaxScore),
				strconv.FormatInt(r.Count, 10),
			})
		}
		return []string{"name", "app_version", "min", "avg", "max", "count"}, rows
	case "cost":
		rows := make([][]string, 0, len(s.Cost))
		for _, r := range s.Cost {
			rows = append(rows, []string{
				r.Hour.Format(time.RFC3339),
				strconv.FormatInt(r.PromptTokens, 10),
				strconv.FormatInt(r.CompletionTokens, 10),
				strconv.FormatInt(r.TotalTokens, 10),
				formatFloat(r.CostUSD),
				strconv.FormatInt(r.Requests, 10),
			})
		}
		return []string{"hour", "prompt_tokens", "completion_tokens", "total_tokens", "cost_usd", "requests"}, rows
	case "latency":
		rows := make([][]string, 0, len(s.Latency))
		for _, r := range s.Latency {
			rows = append(rows, []string{
				r.Hour.Format(time.RFC3339),
				strconv.FormatInt(r.MinMs, 10),
				formatFloat(r.AvgMs),
				strconv.FormatInt(r.MaxMs, 10),
				strconv.FormatInt(r.Requests, 10),
			})
		}
		return []string{"hour", "min_ms", "avg_ms", "max_ms", "requests"}, rows
	case "daily":
		rows := make([][]string, 0, len(s.Daily))
		for _, r := range s.Daily {
			rows = append(rows, []string{
				r.Day.Format("2006-01-02"),
				strconv.FormatInt(r.Queries, 10),
				formatFloat(r.AvgLatencyMs),
				formatFloat(r.AvgCostUSD),
				formatFloat(r.TotalCostUSD),
			})
		}
		return []string{"day", "queries", "avg_latency_ms", "avg_cost_usd", "total_cost_usd"}, rows
	}
	return nil, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
