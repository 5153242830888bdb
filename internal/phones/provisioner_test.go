package phones

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/actionlog"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPhonesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:phones_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.BarrierPhone{}, &models.BarrierActionLog{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestCreate_WritesPhoneAndLogTogether(t *testing.T) {
	conn := setupPhonesTestDB(t)

	var phone *models.BarrierPhone
	var entry *models.BarrierActionLog
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		phone, entry, err = Create(tx, CreateParams{
			UserID:    7,
			BarrierID: 3,
			Phone:     "+79991234567",
			Type:      models.PhonePrimary,
			Name:      "Alice Johnson",
			Author:    models.AuthorSystem,
			Reason:    models.ReasonAccessGranted,
		})
		return err
	})
	if errTx != nil {
		t.Fatalf("create: %v", errTx)
	}

	if !phone.IsActive {
		t.Fatalf("phone not active")
	}
	if entry.PhoneID == nil || *entry.PhoneID != phone.ID {
		t.Fatalf("log phone_id = %v, want %d", entry.PhoneID, phone.ID)
	}
	if entry.ActionType != models.ActionAddPhone || entry.Reason != models.ReasonAccessGranted {
		t.Fatalf("log = %q/%q", entry.ActionType, entry.Reason)
	}
	want := "phone: +79991234567, type: primary, name: Alice Johnson"
	if entry.NewValue != want {
		t.Fatalf("new_value = %q, want %q", entry.NewValue, want)
	}
	if entry.OldValue != "" {
		t.Fatalf("old_value = %q, want empty", entry.OldValue)
	}

	var stored models.BarrierActionLog
	if err := conn.First(&stored, entry.ID).Error; err != nil {
		t.Fatalf("log not persisted: %v", err)
	}
}

func TestRemove_CapturesOldValue(t *testing.T) {
	conn := setupPhonesTestDB(t)

	var phone *models.BarrierPhone
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		phone, _, err = Create(tx, CreateParams{
			UserID: 7, BarrierID: 3, Phone: "+79991234567",
			Type: models.PhoneTemporary, Name: "Guest",
			Author: models.AuthorAdmin, Reason: models.ReasonManual,
		})
		return err
	})
	if errTx != nil {
		t.Fatalf("create: %v", errTx)
	}
	described := phone.DescribeParams()

	var entry *models.BarrierActionLog
	errTx = conn.Transaction(func(tx *gorm.DB) error {
		var err error
		_, entry, err = Remove(tx, phone, models.AuthorAdmin, models.ReasonBarrierExit)
		return err
	})
	if errTx != nil {
		t.Fatalf("remove: %v", errTx)
	}

	var reloaded models.BarrierPhone
	if err := conn.First(&reloaded, phone.ID).Error; err != nil {
		t.Fatalf("reload phone: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("phone still active")
	}
	if entry.OldValue != described {
		t.Fatalf("old_value = %q, want %q", entry.OldValue, described)
	}
	if entry.ActionType != models.ActionRemovePhone || entry.Reason != models.ReasonBarrierExit {
		t.Fatalf("log = %q/%q", entry.ActionType, entry.Reason)
	}
}

func TestFind_FiltersByPhoneAndReason(t *testing.T) {
	conn := setupPhonesTestDB(t)

	var first, second *models.BarrierPhone
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		first, _, err = Create(tx, CreateParams{
			UserID: 1, BarrierID: 3, Phone: "+79990000001",
			Type: models.PhonePrimary, Name: "First",
			Author: models.AuthorSystem, Reason: models.ReasonAccessGranted,
		})
		if err != nil {
			return err
		}
		second, _, err = Create(tx, CreateParams{
			UserID: 2, BarrierID: 3, Phone: "+79990000002",
			Type: models.PhonePermanent, Name: "Second",
			Author: models.AuthorAdmin, Reason: models.ReasonManual,
		})
		return err
	})
	if errTx != nil {
		t.Fatalf("create: %v", errTx)
	}
	errTx = conn.Transaction(func(tx *gorm.DB) error {
		_, _, err := Remove(tx, second, models.AuthorAdmin, models.ReasonBarrierExit)
		return err
	})
	if errTx != nil {
		t.Fatalf("remove: %v", errTx)
	}

	entries, err := actionlog.Find(context.Background(), conn, actionlog.Filter{
		BarrierID: 3,
		PhoneID:   second.ID,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	granted, err := actionlog.Find(context.Background(), conn, actionlog.Filter{
		BarrierID: 3,
		Reason:    models.ReasonAccessGranted,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(granted) != 1 || granted[0].PhoneID == nil || *granted[0].PhoneID != first.ID {
		t.Fatalf("granted entries = %d", len(granted))
	}
}
