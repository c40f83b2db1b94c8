package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/domain"
)

// Models returns every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.UserToken{},
		&domain.Course{},
		&domain.CourseModule{},
		&domain.Lesson{},
		&domain.Enrollment{},
		&domain.LiveClass{},
		&domain.Recording{},
		&domain.DownloadGrant{},
		&domain.SupportThread{},
		&domain.SupportMessage{},
		&domain.TutorAnswer{},
		&domain.JobRecord{},
	}
}

func (s *PostgresService) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// AutoMigrateAll migrates an arbitrary handle; used by test databases.
func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}
