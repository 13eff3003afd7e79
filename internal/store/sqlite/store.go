package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pipescan/internal/model"
	"pipescan/internal/store"
	pkgLog "pipescan/pkg/log"
)

// Store is the gorm-backed implementation of store.Repository.
type Store struct {
	db *gorm.DB
	l  pkgLog.Logger
}

var _ store.Repository = (*Store)(nil)

// New opens (or creates) the database at path and migrates the schema.
// TranslateError is required so a unique-index violation surfaces as
// gorm.ErrDuplicatedKey, which Admit relies on.
func New(path string, l pkgLog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.WebhookEvent{},
		&model.SecurityFinding{},
		&model.PipelineAnalysis{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, l: l}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Admit inserts the event row. The unique index on (build_id, build_number)
// makes the insert attempt itself the admission decision, so there is no
// check-then-insert race even if events were ever processed concurrently.
func (s *Store) Admit(ctx context.Context, ev model.RawEvent) (uint, bool, error) {
	raw, err := json.Marshal(ev.Resource)
	if err != nil {
		return 0, false, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := model.WebhookEvent{
		EventType:      ev.EventType,
		BuildID:        ev.Resource.ID,
		BuildNumber:    ev.Resource.BuildNumber,
		DefinitionID:   ev.Resource.Definition.ID,
		DefinitionName: ev.Resource.Definition.Name,
		RawData:        string(raw),
		Processed:      false,
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to save webhook event: %w", err)
	}

	s.l.Infof(ctx, "Webhook event saved: %s (id %d)", event.BuildNumber, event.ID)
	return event.ID, true, nil
}

// SaveScanResult writes the findings and the SUCCESS analysis row inside one
// transaction; either everything lands or nothing does.
func (s *Store) SaveScanResult(ctx context.Context, eventID uint, res store.ScanResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range res.Findings {
			examples, err := json.Marshal(f.Examples)
			if err != nil {
				return fmt.Errorf("failed to marshal finding examples: %w", err)
			}

			finding := model.SecurityFinding{
				WebhookEventID: eventID,
				PatternName:    f.Pattern,
				PatternCount:   f.Count,
				RiskScore:      f.RiskScore,
				Examples:       string(examples),
				Severity:       string(f.Severity),
			}
			if err := tx.Create(&finding).Error; err != nil {
				return fmt.Errorf("failed to save security finding: %w", err)
			}
		}

		var total float64
		for _, f := range res.Findings {
			total += f.RiskScore
		}

		analysis := model.PipelineAnalysis{
			WebhookEventID:     eventID,
			YAMLContent:        res.Content,
			YAMLFilename:       res.Filename,
			TotalPatternsFound: len(res.Findings),
			TotalRiskScore:     total,
			AnalysisStatus:     model.AnalysisSuccess,
		}
		if err := tx.Create(&analysis).Error; err != nil {
			return fmt.Errorf("failed to save pipeline analysis: %w", err)
		}

		return nil
	})
}

// MarkProcessed flips the processed flag once the event reached a terminal
// state.
func (s *Store) MarkProcessed(ctx context.Context, eventID uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", eventID).
		Update("processed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark event processed: %w", result.Error)
	}
	return nil
}

// RecentEvents returns the newest events first, at most limit of them.
func (s *Store) RecentEvents(ctx context.Context, limit int) []model.WebhookEvent {
	var events []model.WebhookEvent
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		s.l.Errorf(ctx, "Failed to load recent events: %v", err)
		return []model.WebhookEvent{}
	}
	return events
}

// FindingsForEvent returns the findings persisted for one event.
func (s *Store) FindingsForEvent(ctx context.Context, eventID uint) []model.SecurityFinding {
	var findings []model.SecurityFinding
	err := s.db.WithContext(ctx).
		Where("webhook_event_id = ?", eventID).
		Find(&findings).Error
	if err != nil {
		s.l.Errorf(ctx, "Failed to load findings for event %d: %v", eventID, err)
		return []model.SecurityFinding{}
	}
	return findings
}

// patternStatRow is the raw aggregate row. MAX(timestamp) comes back from
// sqlite as TEXT, so last_seen is scanned as a string and parsed afterwards.
type patternStatRow struct {
	PatternName      string
	TotalOccurrences int
	LastSeen         string
	AvgRiskScore     float64
}

// PatternStatistics aggregates all historical findings per pattern name.
func (s *Store) PatternStatistics(ctx context.Context) []model.PatternStatistic {
	var rows []patternStatRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			pattern_name,
			COUNT(*) AS total_occurrences,
			MAX(timestamp) AS last_seen,
			AVG(risk_score) AS avg_risk_score
		FROM security_findings
		GROUP BY pattern_name
		ORDER BY total_occurrences DESC
	`).Scan(&rows).Error
	if err != nil {
		s.l.Errorf(ctx, "Failed to load pattern statistics: %v", err)
		return []model.PatternStatistic{}
	}

	stats := make([]model.PatternStatistic, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.PatternStatistic{
			PatternName:      row.PatternName,
			TotalOccurrences: row.TotalOccurrences,
			LastSeen:         parseStoredTime(row.LastSeen),
			AvgRiskScore:     row.AvgRiskScore,
		})
	}
	return stats
}

// parseStoredTime decodes the sqlite TEXT representation of a timestamp.
// The driver writes RFC3339-style values; plain datetime is accepted too.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
