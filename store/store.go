// Package store persists interaction records and feedback scores in
// Postgres and serves the aggregations behind the dashboard views.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/civicsense/civicsense/common/logger"
)

// Store wraps the metrics database. All writes are scoped to the app
// version the store was opened for.
type Store struct {
	db  *gorm.DB
	app App
}

// Open connects to Postgres, migrates the schema and registers the app row.
func Open(dsn, appName, appVersion string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: empty dsn")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return New(db, appName, appVersion)
}

// New builds a store on an existing gorm handle.
func New(db *gorm.DB, appName, appVersion string) (*Store, error) {
	if err := db.AutoMigrate(&App{}, &InteractionRecord{}, &FeedbackResult{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	app := App{Name: appName, Version: appVersion}
	if err := db.Where(&App{Name: appName, Version: appVersion}).FirstOrCreate(&app).Error; err != nil {
		return nil, fmt.Errorf("store: register app: %w", err)
	}
	logger.Infof("store: using app %s/%s (id=%d)", appName, appVersion, app.ID)
	return &Store{db: db, app: app}, nil
}

// App returns the registered app row.
func (s *Store) App() App {
	return s.app
}

// SaveRecord persists one interaction record. A missing ID is generated.
func (s *Store) SaveRecord(ctx context.Context, rec *InteractionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.AppID = s.app.ID
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("store: save record: %w", err)
	}
	return nil
}

// SaveFeedback persists feedback scores for a record.
func (s *Store) SaveFeedback(ctx context.Context, results []FeedbackResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&results).Error; err != nil {
		return fmt.Errorf("store: save feedback: %w", err)
	}
	return nil
}

// FeedbackSummaryRow aggregates one feedback function for one app version.
type FeedbackSummaryRow struct {
	Name       string  `json:"name"`
	AppVersion string  `json:"app_version"`
	MinScore   float64 `json:"min_score"`
	AvgScore   float64 `json:"avg_score"`
	MaxScore   float64 `json:"max_score"`
	Count      int64   `json:"count"`
}

// FeedbackSummary aggregates scores per feedback name and app version.
func (s *Store) FeedbackSummary(ctx context.Context) ([]FeedbackSummaryRow, error) {
	var rows []FeedbackSummaryRow
	err := s.db.WithContext(ctx).
		Table("feedback_results AS f").
		Select("f.name AS name, a.version AS app_version, MIN(f.score) AS min_score, AVG(f.score) AS avg_score, MAX(f.score) AS max_score, COUNT(*) AS count").
		Joins("JOIN interaction_records r ON r.id = f.record_id").
		Joins("JOIN apps a ON a.id = r.app_id").
		Group("f.name, a.version").
		Order("f.name, a.version").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: feedback summary: %w", err)
	}
	return rows, nil
}

// HourlyCostRow is one hour of token spend.
type HourlyCostRow struct {
	Hour             time.Time `json:"hour"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	Requests         int64     `json:"requests"`
}

// HourlyCost rolls up token counts and cost per hour since the cutoff.
func (s *Store) HourlyCost(ctx context.Context, since time.Time) ([]HourlyCostRow, error) {
	var rows []HourlyCostRow
	err := s.db.WithContext(ctx).
		Table("interaction_records").
		Select("date_trunc('hour', created_at) AS hour, SUM(prompt_tokens) AS prompt_tokens, SUM(completion_tokens) AS completion_tokens, SUM(total_tokens) AS total_tokens, SUM(cost_usd) AS cost_usd, COUNT(*) AS requests").
		Where("created_at >= ?", since).
		Group("hour").
		Order("hour").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: hourly cost: %w", err)
	}
	return rows, nil
}

// HourlyLatencyRow is one hour of end-to-end latency.
type HourlyLatencyRow struct {
	Hour     time.Time `json:"hour"`
	MinMs    int64     `json:"min_ms"`
	AvgMs    float64   `json:"avg_ms"`
	MaxMs    int64     `json:"max_ms"`
	Requests int64     `json:"requests"`
}

// HourlyLatency rolls up turn latency per hour since the cutoff.
func (s *Store) HourlyLatency(ctx context.Context, since time.Time) ([]HourlyLatencyRow, error) {
	var rows []HourlyLatencyRow
	err := s.db.WithContext(ctx).
		Table("interaction_records").
		Select("date_trunc('hour', created_at) AS hour, MIN(total_ms) AS min_ms, AVG(total_ms) AS avg_ms, MAX(total_ms) AS max_ms, COUNT(*) AS requests").
		Where("created_at >= ?", since).
		Group("hour").
		Order("hour").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: hourly latency: %w", err)
	}
	return rows, nil
}

// DailyStatsRow is one day of traffic.
type DailyStatsRow struct {
	Day          time.Time `json:"day"`
	Queries      int64     `json:"queries"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	AvgCostUSD   float64   `json:"avg_cost_usd"`
	TotalCostUSD float64   `json:"total_cost_usd"`
}

// DailyStats rolls up query volume, latency and cost per day.
func (s *Store) DailyStats(ctx context.Context, days int) ([]DailyStatsRow, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	var rows []DailyStatsRow
	err := s.db.WithContext(ctx).
		Table("interaction_records").
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS queries, AVG(total_ms) AS avg_latency_ms, AVG(cost_usd) AS avg_cost_usd, SUM(cost_usd) AS total_cost_usd").
		Where("created_at >= ?", since).
		Group("day").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: daily stats: %w", err)
	}
	return rows, nil
}

// RecentRecords returns the newest records, answer text included.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]InteractionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []InteractionRecord
	err := s.db.WithContext(ctx).
		Where("app_id = ?", s.app.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent records: %w", err)
	}
	return recs, nil
}
