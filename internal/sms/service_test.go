package sms

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSMSTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sms_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Barrier{}, &models.BarrierPhone{},
		&models.BarrierActionLog{}, &models.SMSMessage{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

type recordingSender struct {
	sent     []*models.SMSMessage
	failWith error
}

func (s *recordingSender) Send(_ context.Context, msg *models.SMSMessage) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, msg)
	return nil
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = time.Now })
}

func seedBarrier(t *testing.T, conn *gorm.DB) *models.Barrier {
	t.Helper()
	barrier := &models.Barrier{
		OwnerID:        1,
		Address:        "12 Gate Rd",
		DevicePhone:    "+79990001122",
		DeviceModel:    "RTU5025",
		DevicePassword: "1234",
		IsActive:       true,
	}
	if err := conn.Create(barrier).Error; err != nil {
		t.Fatalf("create barrier: %v", err)
	}
	return barrier
}

func TestSendPhoneCreated_RendersAddCommand(t *testing.T) {
	conn := setupSMSTestDB(t)
	sender := &recordingSender{}
	service := NewService(conn, sender, nil)
	barrier := seedBarrier(t, conn)

	entry := &models.BarrierActionLog{BarrierID: barrier.ID, Author: models.AuthorSystem, ActionType: models.ActionAddPhone, Reason: models.ReasonAccessGranted}
	if err := conn.Create(entry).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}
	phone := &models.BarrierPhone{UserID: 7, BarrierID: barrier.ID, Phone: "+7 (999) 123-45-67", Type: models.PhonePrimary, IsActive: true}

	if err := service.SendPhoneCreated(context.Background(), phone, entry); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Content != "1234A79991234567#" {
		t.Fatalf("content = %q", msg.Content)
	}
	if msg.Recipient != barrier.DevicePhone {
		t.Fatalf("recipient = %q", msg.Recipient)
	}
	if msg.LogID == nil || *msg.LogID != entry.ID {
		t.Fatalf("log_id = %v, want %d", msg.LogID, entry.ID)
	}

	var stored models.SMSMessage
	if err := conn.First(&stored, msg.ID).Error; err != nil {
		t.Fatalf("message not persisted: %v", err)
	}
	if stored.Status != models.SMSSent || stored.SentAt == nil {
		t.Fatalf("status = %q, sent_at = %v", stored.Status, stored.SentAt)
	}
}

func TestSendPhoneRemoved_RendersDeleteCommand(t *testing.T) {
	conn := setupSMSTestDB(t)
	sender := &recordingSender{}
	service := NewService(conn, sender, nil)
	barrier := seedBarrier(t, conn)

	entry := &models.BarrierActionLog{BarrierID: barrier.ID, Author: models.AuthorAdmin, ActionType: models.ActionRemovePhone, Reason: models.ReasonBarrierExit}
	if err := conn.Create(entry).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}
	phone := &models.BarrierPhone{UserID: 7, BarrierID: barrier.ID, Phone: "+79991234567", Type: models.PhonePrimary}

	if err := service.SendPhoneRemoved(context.Background(), phone, entry); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Content != "1234D79991234567#" {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestDispatchFailure_KeepsFailedRow(t *testing.T) {
	conn := setupSMSTestDB(t)
	sender := &recordingSender{failWith: errors.New("gateway unreachable")}
	service := NewService(conn, sender, nil)
	barrier := seedBarrier(t, conn)

	entry := &models.BarrierActionLog{BarrierID: barrier.ID, Author: models.AuthorSystem, ActionType: models.ActionAddPhone, Reason: models.ReasonAccessGranted}
	if err := conn.Create(entry).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}
	phone := &models.BarrierPhone{UserID: 7, BarrierID: barrier.ID, Phone: "+79991234567", Type: models.PhonePrimary}

	if err := service.SendPhoneCreated(context.Background(), phone, entry); err != nil {
		t.Fatalf("dispatch failure must not propagate: %v", err)
	}

	var stored models.SMSMessage
	if err := conn.Where("message_type = ?", models.SMSPhoneCommand).First(&stored).Error; err != nil {
		t.Fatalf("message row missing: %v", err)
	}
	if stored.Status != models.SMSFailed {
		t.Fatalf("status = %q, want %q", stored.Status, models.SMSFailed)
	}
	if stored.SentAt != nil {
		t.Fatalf("sent_at set on failed message")
	}
}

func TestSendBalanceCheck_FirstRequest(t *testing.T) {
	conn := setupSMSTestDB(t)
	sender := &recordingSender{}
	service := NewService(conn, sender, nil)

	msg, err := service.SendBalanceCheck(context.Background())
	if err != nil {
		t.Fatalf("balance check: %v", err)
	}
	if msg.Content != "*100#" {
		t.Fatalf("content = %q", msg.Content)
	}
	if msg.MessageType != models.SMSBalanceCheck {
		t.Fatalf("type = %q", msg.MessageType)
	}
	if msg.Status != models.SMSSent {
		t.Fatalf("status = %q", msg.Status)
	}
}

func TestSendBalanceCheck_CooldownWindow(t *testing.T) {
	conn := setupSMSTestDB(t)
	sender := &recordingSender{}
	service := NewService(conn, sender, nil)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinClock(t, start)
	if _, err := service.SendBalanceCheck(context.Background()); err != nil {
		t.Fatalf("first balance check: %v", err)
	}

	pinClock(t, start.Add(2*time.Minute))
	_, err := service.SendBalanceCheck(context.Background())
	if apperr.KindOf(err) != apperr.KindRateLimited {
		t.Fatalf("kind = %v, want rate limited (err=%v)", apperr.KindOf(err), err)
	}
	if err.Error() != "Balance check was already requested recently. Try again later." {
		t.Fatalf("message = %q", err.Error())
	}
	if got := apperr.RetryAfterOf(err); got != 3*time.Minute {
		t.Fatalf("retry_after = %v, want 3m", got)
	}

	pinClock(t, start.Add(5*time.Minute))
	if _, err := service.SendBalanceCheck(context.Background()); err != nil {
		t.Fatalf("balance check after cooldown: %v", err)
	}
}

func TestSendBarrierSetting(t *testing.T) {
	conn := setupSMSTestDB(t)
	barrier := seedBarrier(t, conn)
	entry := &models.BarrierActionLog{BarrierID: barrier.ID, Author: models.AuthorAdmin, ActionType: models.ActionBarrierSetting, Reason: models.ReasonSettingChange}
	if err := conn.Create(entry).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}

	cases := []struct {
		name        string
		setting     string
		params      map[string]string
		wantContent string
		wantErr     bool
	}{
		{"open interval", "open_interval", map[string]string{"seconds": "30"}, "1234GOT30#", false},
		{"access mode", "access_mode", map[string]string{"mode": "AUTH"}, "1234AAUTH#", false},
		{"unknown setting", "reboot", nil, "", true},
		{"missing parameter", "open_interval", map[string]string{}, "", true},
		{"malformed parameter", "open_interval", map[string]string{"seconds": "forever"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &recordingSender{}
			service := NewService(conn, sender, nil)

			err := service.SendBarrierSetting(context.Background(), barrier, tc.setting, tc.params, entry)
			if tc.wantErr {
				if apperr.KindOf(err) != apperr.KindValidation {
					t.Fatalf("kind = %v, want validation (err=%v)", apperr.KindOf(err), err)
				}
				return
			}
			if err != nil {
				t.Fatalf("send setting: %v", err)
			}
			if len(sender.sent) != 1 || sender.sent[0].Content != tc.wantContent {
				t.Fatalf("sent = %+v, want content %q", sender.sent, tc.wantContent)
			}
		})
	}
}

func TestAvailableSettings(t *testing.T) {
	conn := setupSMSTestDB(t)
	service := NewService(conn, &recordingSender{}, nil)

	known := &models.Barrier{DeviceModel: "RTU5035", DevicePassword: "1234"}
	catalog, err := service.AvailableSettings(context.Background(), known)
	if err != nil {
		t.Fatalf("available settings: %v", err)
	}
	if _, ok := catalog["call_alert"]; !ok {
		t.Fatalf("catalog missing call_alert: %v", catalog)
	}

	unknown := &models.Barrier{DeviceModel: "RTU9999", DevicePassword: "1234"}
	_, err = service.AvailableSettings(context.Background(), unknown)
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("kind = %v, want internal (err=%v)", apperr.KindOf(err), err)
	}
	want := "Invalid settings configuration for device model 'RTU9999'. Please check the server config format."
	if err.Error() != want {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestValidateCatalog(t *testing.T) {
	for model, catalog := range deviceSettings {
		if err := validateCatalog(catalog); err != nil {
			t.Fatalf("catalog for %s invalid: %v", model, err)
		}
	}
	if err := validateCatalog(nil); err == nil {
		t.Fatalf("nil catalog accepted")
	}
	if err := validateCatalog(map[string]SettingSpec{"x": {Name: "X"}}); err == nil {
		t.Fatalf("template-less setting accepted")
	}
}
