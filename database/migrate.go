package database

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureSchema applies idempotent migrations beyond AutoMigrate:
// - Money column type (NUMERIC(12,2)) on verification_logs.amount
// - Lookup indexes for the back-office log screens
// - Unique index backing the idempotency guard
// - CHECK constraint keeping claimed amounts positive
func EnsureSchema() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`ALTER TABLE verification_logs ALTER COLUMN amount TYPE numeric(12,2)`).Error; err != nil {
			return fmt.Errorf("money type migration failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_verification_logs_txn_created ON verification_logs (transaction_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_verification_logs_status ON verification_logs (status)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		check := `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = 'verification_logs'::regclass
		  AND conname  = 'chk_verification_logs_amount_pos'
	) THEN
		ALTER TABLE verification_logs
		ADD CONSTRAINT chk_verification_logs_amount_pos
		CHECK (amount > 0);
	END IF;
END $$;`
		if err := tx.Exec(check).Error; err != nil {
			return fmt.Errorf("check constraint migration failed: %w", err)
		}

		return nil
	})
}
