package store

import "time"

// App identifies a deployed application version. Interaction records hang
// off an app row so the dashboard can compare versions side by side.
type App struct {
	ID        uint      `gorm:"primaryKey;column:id;autoIncrement"`
	Name      string    `gorm:"column:name;type:varchar(128);not null;uniqueIndex:idx_app_name_version"`
	Version   string    `gorm:"column:version;type:varchar(64);not null;uniqueIndex:idx_app_name_version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// InteractionRecord is one answered chat turn with its accounting.
// Context holds the retrieved chunks as a JSON array.
type InteractionRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	AppID            uint      `gorm:"column:app_id;not null;index"`
	SessionID        string    `gorm:"column:session_id;type:varchar(64);index"`
	Query            string    `gorm:"column:query;type:text;not null"`
	Answer           string    `gorm:"column:answer;type:text"`
	Context          string    `gorm:"column:context;type:text"`
	Sources          string    `gorm:"column:sources;type:text"`
	Model            string    `gorm:"column:model;type:varchar(128)"`
	PromptTokens     int       `gorm:"column:prompt_tokens;not null;default:0"`
	CompletionTokens int       `gorm:"column:completion_tokens;not null;default:0"`
	TotalTokens      int       `gorm:"column:total_tokens;not null;default:0"`
	CostUSD          float64   `gorm:"column:cost_usd;type:decimal(12,8);not null;default:0"`
	RetrievalMs      int64     `gorm:"column:retrieval_ms;not null;default:0"`
	GenerationMs     int64     `gorm:"column:generation_ms;not null;default:0"`
	TotalMs          int64     `gorm:"column:total_ms;not null;default:0;index"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

// FeedbackResult is one named feedback score attached to a record.
type FeedbackResult struct {
	ID        uint      `gorm:"primaryKey;column:id;autoIncrement"`
	RecordID  string    `gorm:"column:record_id;type:varchar(64);not null;index"`
	Name      string    `gorm:"column:name;type:varchar(64);not null;index"`
	Score     float64   `gorm:"column:score;type:decimal(6,4);not null"`
	Verdict   string    `gorm:"column:verdict;type:varchar(16);not null"`
	Reason    string    `gorm:"column:reason;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (App) TableName() string {
	return "apps"
}

func (InteractionRecord) TableName() string {
	return "interaction_records"
}

func (FeedbackResult) TableName() string {
	return "feedback_results"
}
