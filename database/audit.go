package database

import (
	"context"

	"smokestore-backend/models"

	"gorm.io/gorm"
)

// AuditLogs is the GORM-backed store for verification run records. It
// satisfies verifier.AuditStore.
type AuditLogs struct {
	db *gorm.DB
}

func NewAuditLogs(db *gorm.DB) *AuditLogs {
	return &AuditLogs{db: db}
}

func (s *AuditLogs) Create(ctx context.Context, lg *models.VerificationLog) error {
	return s.db.WithContext(ctx).Create(lg).Error
}

func (s *AuditLogs) Update(ctx context.Context, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).
		Model(&models.VerificationLog{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// List returns logs newest first, optionally filtered by order id and status.
func (s *AuditLogs) List(ctx context.Context, orderID, status string, limit int) ([]models.VerificationLog, error) {
	q := s.db.WithContext(ctx).Model(&models.VerificationLog{}).Order("created_at DESC").Limit(limit)
	if orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var logs []models.VerificationLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *AuditLogs) Get(ctx context.Context, id string) (*models.VerificationLog, error) {
	var lg models.VerificationLog
	if err := s.db.WithContext(ctx).First(&lg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lg, nil
}
