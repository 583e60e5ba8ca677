package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification run statuses.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusFailed   = "failed"
)

// Failure tags recorded in error_message when a run ends in StatusFailed.
const (
	FailEmailNotFound     = "email_not_found"
	FailParseFailed       = "parse_failed"
	FailAmountMismatch    = "amount_mismatch"
	FailOrderUpdateFailed = "order_update_failed"
)

// VerificationLog is the audit record of a single verification run.
// One row per run; transaction_id is deliberately not unique, repeated
// client calls for the same order each get their own row.
type VerificationLog struct {
	ID            string  `json:"id" gorm:"primaryKey"`
	OrderID       string  `json:"order_id" gorm:"index"`
	TransactionID string  `json:"transaction_id" gorm:"index:idx_verification_logs_txn_created,priority:1"`
	Amount        float64 `json:"amount" gorm:"type:numeric(12,2)"`

	Status        string `json:"status" gorm:"type:VARCHAR(20);index"`
	EmailFound    bool   `json:"email_found"`
	EmailParsed   bool   `json:"email_parsed"`
	AmountMatched bool   `json:"amount_matched"`

	Issuer       string `json:"issuer"`
	Reference    string `json:"reference"`
	SenderHandle string `json:"sender_handle"`
	ErrorMessage string `json:"error_message"`

	// Snapshot of the matched message's headers (id/from/subject/date),
	// kept for offline diagnosis of parse and mismatch failures.
	MatchedEmail datatypes.JSON `json:"matched_email,omitempty" gorm:"type:jsonb"`

	CreatedAt  time.Time  `json:"created_at" gorm:"index:idx_verification_logs_txn_created,priority:2"`
	VerifiedAt *time.Time `json:"verified_at"`
}

func (l *VerificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return
}
