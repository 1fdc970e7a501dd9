package migrations

import (
	"github.com/campushub/smartmail/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_provider_daily_usage",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ProviderUsageModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProviderUsageModel{})
			},
		},
		{
			ID: "000002_create_email_send_logs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SendLogModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_send_logs_created ON email_send_logs (created_at DESC)`,
					`CREATE INDEX IF NOT EXISTS idx_send_logs_provider_created ON email_send_logs (provider_id, created_at) WHERE provider_id IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SendLogModel{})
			},
		},
		{
			ID: "000003_create_events",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.EventModel{}, &repository.EventAttendeeModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_events_reminder_one_day ON events (starts_at) WHERE status = 'ACTIVE' AND one_day_reminder_sent = false`,
					`CREATE INDEX IF NOT EXISTS idx_events_reminder_two_hour ON events (starts_at) WHERE status = 'ACTIVE' AND two_hour_reminder_sent = false`,
					`CREATE INDEX IF NOT EXISTS idx_attendees_event_status ON event_attendees (event_id, status)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&repository.EventAttendeeModel{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&repository.EventModel{})
			},
		},
		{
			ID: "000004_create_elections",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ElectionModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_elections_active_ends ON elections (ends_at) WHERE status = 'ACTIVE'`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ElectionModel{})
			},
		},
		{
			ID: "000005_create_sessions_and_tokens",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SessionModel{}, &repository.PasswordResetTokenModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions (last_seen_at)`,
					`CREATE INDEX IF NOT EXISTS idx_reset_tokens_created ON password_reset_tokens (created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&repository.PasswordResetTokenModel{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&repository.SessionModel{})
			},
		},
	})

	return m.Migrate()
}
