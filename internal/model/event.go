package model

import "time"

// EventType is the CI platform's build event type.
type EventType string

const (
	EventBuildComplete EventType = "build.complete"
	EventBuildStarted  EventType = "build.started"
	EventBuildFailed   EventType = "build.failed"
)

// RawEvent is the service-hook envelope delivered by the event feed.
type RawEvent struct {
	ID         string     `json:"id"`
	EventType  string     `json:"eventType"`
	Resource   Resource   `json:"resource"`
	ReceivedAt time.Time  `json:"receivedAt"`
}

// Resource is the build payload inside a service-hook event.
type Resource struct {
	ID          int        `json:"id"`
	BuildNumber string     `json:"buildNumber"`
	Result      string     `json:"result,omitempty"`
	Definition  Definition `json:"definition"`
}

// Definition identifies the pipeline a build belongs to.
type Definition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// WebhookEvent is one admitted build-completion notification. The composite
// unique index on (build_id, build_number) is what enforces at-most-once
// admission: a second insert for the same pair fails on the constraint.
type WebhookEvent struct {
	ID             uint      `gorm:"primaryKey"`
	EventType      string    `gorm:"type:varchar(50);not null"`
	BuildID        int       `gorm:"not null;uniqueIndex:ux_webhook_events_build,priority:1"`
	BuildNumber    string    `gorm:"type:varchar(50);not null;uniqueIndex:ux_webhook_events_build,priority:2"`
	DefinitionID   int       `gorm:"not null"`
	DefinitionName string    `gorm:"type:varchar(200);not null"`
	Timestamp      time.Time `gorm:"autoCreateTime"`
	RawData        string    `gorm:"type:text"`
	Processed      bool      `gorm:"default:false"`

	SecurityFindings []SecurityFinding `gorm:"foreignKey:WebhookEventID"`
	PipelineAnalysis *PipelineAnalysis `gorm:"foreignKey:WebhookEventID"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// SecurityFinding is one matched, non-suppressed pattern for an event.
// Immutable once written.
type SecurityFinding struct {
	ID             uint      `gorm:"primaryKey"`
	WebhookEventID uint      `gorm:"not null;index"`
	PatternName    string    `gorm:"type:varchar(100);not null"`
	PatternCount   int       `gorm:"default:0"`
	RiskScore      float64   `gorm:"default:0"`
	Examples       string    `gorm:"type:text"` // JSON array, at most 3 entries
	Severity       string    `gorm:"type:varchar(20);default:'MEDIUM'"`
	Timestamp      time.Time `gorm:"autoCreateTime"`
}

func (SecurityFinding) TableName() string { return "security_findings" }

// AnalysisStatus is the terminal status of a pipeline analysis.
type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "PENDING"
	AnalysisSuccess AnalysisStatus = "SUCCESS"
	AnalysisFailed  AnalysisStatus = "FAILED"
)

// PipelineAnalysis records one analysis run for an event (1:1).
type PipelineAnalysis struct {
	ID                 uint           `gorm:"primaryKey"`
	WebhookEventID     uint           `gorm:"not null;index"`
	YAMLContent        string         `gorm:"column:yaml_content;type:text"`
	YAMLFilename       string         `gorm:"column:yaml_filename;type:varchar(200)"`
	TotalPatternsFound int            `gorm:"default:0"`
	TotalRiskScore     float64        `gorm:"default:0"`
	AnalysisStatus     AnalysisStatus `gorm:"type:varchar(20);default:'PENDING'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PipelineAnalysis) TableName() string { return "pipeline_analysis" }

// PatternStatistic is the per-pattern aggregate over all historical findings.
type PatternStatistic struct {
	PatternName      string    `json:"pattern_name"`
	TotalOccurrences int       `json:"total_occurrences"`
	LastSeen         time.Time `json:"last_seen"`
	AvgRiskScore     float64   `json:"avg_risk_score"`
}
