package db

import (
	"fmt"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema for all persistent models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Barrier{},
		&models.BarrierLimit{},
		&models.AccessRequest{},
		&models.UserBarrier{},
		&models.BarrierPhone{},
		&models.BarrierActionLog{},
		&models.SMSMessage{},
	)
}
