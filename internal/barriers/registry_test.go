package barriers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/FreeVigilance/HappyBarrier/internal/phones"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRegistryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:barriers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{}, &models.Barrier{}, &models.BarrierLimit{},
		&models.AccessRequest{}, &models.UserBarrier{},
		&models.BarrierPhone{}, &models.BarrierActionLog{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

type fakeNotifier struct {
	created  int
	removed  int
	failWith error
}

func (n *fakeNotifier) SendPhoneCreated(context.Context, *models.BarrierPhone, *models.BarrierActionLog) error {
	n.created++
	return n.failWith
}

func (n *fakeNotifier) SendPhoneRemoved(context.Context, *models.BarrierPhone, *models.BarrierActionLog) error {
	n.removed++
	return n.failWith
}

func seedUser(t *testing.T, conn *gorm.DB, phone, role string) *models.User {
	t.Helper()
	user := &models.User{Phone: phone, FullName: "User " + phone, Password: "x", Role: role, IsActive: true}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func grantMembership(t *testing.T, conn *gorm.DB, user *models.User, barrier *models.Barrier) {
	t.Helper()
	now := time.Now().UTC()
	request := &models.AccessRequest{
		UserID: user.ID, BarrierID: barrier.ID,
		RequestType: models.RequestFromUser, Status: models.RequestAccepted, FinishedAt: &now,
	}
	if err := conn.Create(request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	if err := conn.Create(&models.UserBarrier{
		UserID: user.ID, BarrierID: barrier.ID, AccessRequestID: request.ID, IsActive: true,
	}).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		_, _, errCreate := phones.Create(tx, phones.CreateParams{
			UserID: user.ID, BarrierID: barrier.ID, Phone: user.Phone,
			Type: models.PhonePrimary, Name: user.FullName,
			Author: models.AuthorSystem, Reason: models.ReasonAccessGranted,
		})
		return errCreate
	})
	if errTx != nil {
		t.Fatalf("seed phone: %v", errTx)
	}
}

func TestCreate_BootstrapsOwnerAccess(t *testing.T) {
	conn := setupRegistryTestDB(t)
	notifier := &fakeNotifier{}
	registry := NewRegistry(conn, notifier)
	admin := seedUser(t, conn, "+100", models.RoleAdmin)

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address:     "12 Gate Rd",
		DevicePhone: "+79990001122",
		DeviceModel: "RTU5025",
		IsPublic:    true,
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}
	if barrier.DevicePassword != "1234" {
		t.Fatalf("device password = %q, want default", barrier.DevicePassword)
	}

	var limit models.BarrierLimit
	if err := conn.Where("barrier_id = ?", barrier.ID).First(&limit).Error; err != nil {
		t.Fatalf("limit row missing: %v", err)
	}
	if limit.UserPhoneLimit != 3 || limit.GlobalTempPhoneLimit != 50 {
		t.Fatalf("unexpected default limits: %+v", limit)
	}

	var request models.AccessRequest
	if err := conn.Where("barrier_id = ? AND user_id = ?", barrier.ID, admin.ID).First(&request).Error; err != nil {
		t.Fatalf("owner request missing: %v", err)
	}
	if request.RequestType != models.RequestFromBarrier || request.Status != models.RequestAccepted {
		t.Fatalf("owner request = %q/%q", request.RequestType, request.Status)
	}
	if request.FinishedAt == nil {
		t.Fatalf("owner request not finished")
	}

	var membership models.UserBarrier
	if err := conn.Where("barrier_id = ? AND user_id = ? AND is_active = ?", barrier.ID, admin.ID, true).
		First(&membership).Error; err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}

	var phone models.BarrierPhone
	if err := conn.Where("barrier_id = ? AND user_id = ? AND type = ?", barrier.ID, admin.ID, models.PhonePrimary).
		First(&phone).Error; err != nil {
		t.Fatalf("owner phone missing: %v", err)
	}
	if phone.Phone != admin.Phone {
		t.Fatalf("owner phone = %q, want %q", phone.Phone, admin.Phone)
	}
	if notifier.created != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.created)
	}
}

func TestCreate_UnknownDeviceModel(t *testing.T) {
	conn := setupRegistryTestDB(t)
	registry := NewRegistry(conn, &fakeNotifier{})
	admin := seedUser(t, conn, "+100", models.RoleAdmin)

	_, err := registry.Create(context.Background(), admin, CreateInput{
		Address:     "12 Gate Rd",
		DevicePhone: "+79990001122",
		DeviceModel: "RTU9999",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation (err=%v)", apperr.KindOf(err), err)
	}
}

func TestGetOwned_Access(t *testing.T) {
	conn := setupRegistryTestDB(t)
	registry := NewRegistry(conn, &fakeNotifier{})
	admin := seedUser(t, conn, "+100", models.RoleAdmin)
	otherAdmin := seedUser(t, conn, "+150", models.RoleAdmin)

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address: "12 Gate Rd", DevicePhone: "+79990001122", DeviceModel: "RTU5025",
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}

	if _, err := registry.GetOwned(context.Background(), otherAdmin, barrier.ID); err == nil ||
		err.Error() != "You do not have access to this barrier." {
		t.Fatalf("foreign admin access: %v", err)
	}
	if _, err := registry.GetOwned(context.Background(), admin, 999999); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("missing barrier kind = %v", apperr.KindOf(err))
	}
}

func TestDelete_CascadesPhonesAndMemberships(t *testing.T) {
	conn := setupRegistryTestDB(t)
	notifier := &fakeNotifier{failWith: errors.New("carrier down")}
	registry := NewRegistry(conn, notifier)
	admin := seedUser(t, conn, "+100", models.RoleAdmin)
	alice := seedUser(t, conn, "+200", models.RoleUser)
	bob := seedUser(t, conn, "+300", models.RoleUser)

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address: "12 Gate Rd", DevicePhone: "+79990001122", DeviceModel: "RTU5025",
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}
	grantMembership(t, conn, alice, barrier)
	grantMembership(t, conn, bob, barrier)

	if err := registry.Delete(context.Background(), admin, barrier.ID); err != nil {
		t.Fatalf("delete barrier: %v", err)
	}

	var reloaded models.Barrier
	if err := conn.First(&reloaded, barrier.ID).Error; err != nil {
		t.Fatalf("reload barrier: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("barrier still active")
	}

	var activeMemberships int64
	if err := conn.Model(&models.UserBarrier{}).
		Where("barrier_id = ? AND is_active = ?", barrier.ID, true).
		Count(&activeMemberships).Error; err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if activeMemberships != 0 {
		t.Fatalf("active memberships = %d, want 0", activeMemberships)
	}

	var activePhones int64
	if err := conn.Model(&models.BarrierPhone{}).
		Where("barrier_id = ? AND is_active = ?", barrier.ID, true).
		Count(&activePhones).Error; err != nil {
		t.Fatalf("count phones: %v", err)
	}
	if activePhones != 0 {
		t.Fatalf("active phones = %d, want 0", activePhones)
	}

	// Owner plus two members, one removal log each even though every
	// notification failed.
	var removalLogs int64
	if err := conn.Model(&models.BarrierActionLog{}).
		Where("barrier_id = ? AND action_type = ? AND reason = ?", barrier.ID, models.ActionRemovePhone, models.ReasonBarrierDeleted).
		Count(&removalLogs).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if removalLogs != 3 {
		t.Fatalf("removal logs = %d, want 3", removalLogs)
	}
	if notifier.removed != 3 {
		t.Fatalf("removal notifications = %d, want 3", notifier.removed)
	}
}

func TestRemoveUser_RevokesMembershipAndPhones(t *testing.T) {
	conn := setupRegistryTestDB(t)
	notifier := &fakeNotifier{}
	registry := NewRegistry(conn, notifier)
	admin := seedUser(t, conn, "+100", models.RoleAdmin)
	alice := seedUser(t, conn, "+200", models.RoleUser)

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address: "12 Gate Rd", DevicePhone: "+79990001122", DeviceModel: "RTU5025",
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}
	grantMembership(t, conn, alice, barrier)

	if err := registry.RemoveUser(context.Background(), admin, alice.ID, barrier.ID); err != nil {
		t.Fatalf("remove user: %v", err)
	}

	var membership models.UserBarrier
	if err := conn.Where("user_id = ? AND barrier_id = ?", alice.ID, barrier.ID).First(&membership).Error; err != nil {
		t.Fatalf("reload membership: %v", err)
	}
	if membership.IsActive {
		t.Fatalf("membership still active")
	}

	var entry models.BarrierActionLog
	if err := conn.Where("barrier_id = ? AND action_type = ? AND reason = ?", barrier.ID, models.ActionRemovePhone, models.ReasonBarrierExit).
		First(&entry).Error; err != nil {
		t.Fatalf("exit log missing: %v", err)
	}
	if entry.Author != models.AuthorAdmin {
		t.Fatalf("author = %q, want %q", entry.Author, models.AuthorAdmin)
	}

	// The owner's credential is untouched.
	var ownerPhones int64
	if err := conn.Model(&models.BarrierPhone{}).
		Where("barrier_id = ? AND user_id = ? AND is_active = ?", barrier.ID, admin.ID, true).
		Count(&ownerPhones).Error; err != nil {
		t.Fatalf("count owner phones: %v", err)
	}
	if ownerPhones != 1 {
		t.Fatalf("owner phones = %d, want 1", ownerPhones)
	}

	errAgain := registry.RemoveUser(context.Background(), admin, alice.ID, barrier.ID)
	if errAgain == nil || errAgain.Error() != "User not found in this barrier." {
		t.Fatalf("second removal: %v", errAgain)
	}
}

func TestUpdateLimit_Validation(t *testing.T) {
	conn := setupRegistryTestDB(t)
	registry := NewRegistry(conn, &fakeNotifier{})
	admin := seedUser(t, conn, "+100", models.RoleAdmin)

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address: "12 Gate Rd", DevicePhone: "+79990001122", DeviceModel: "RTU5025",
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}

	five := 5
	limit, err := registry.UpdateLimit(context.Background(), admin, barrier.ID, LimitInput{UserPhoneLimit: &five})
	if err != nil {
		t.Fatalf("update limit: %v", err)
	}
	if limit.UserPhoneLimit != 5 {
		t.Fatalf("user phone limit = %d, want 5", limit.UserPhoneLimit)
	}

	negative := -1
	if _, err := registry.UpdateLimit(context.Background(), admin, barrier.ID, LimitInput{SMSWeeklyLimit: &negative}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("negative limit kind = %v", apperr.KindOf(err))
	}
}

func TestListOwned_OrderingFallback(t *testing.T) {
	conn := setupRegistryTestDB(t)
	registry := NewRegistry(conn, &fakeNotifier{})
	admin := seedUser(t, conn, "+100", models.RoleAdmin)

	for _, address := range []string{"9 Zulu Way", "1 Alpha St", "5 Mike Ave"} {
		if _, err := registry.Create(context.Background(), admin, CreateInput{
			Address: address, DevicePhone: "+79990001122", DeviceModel: "RTU5025",
		}); err != nil {
			t.Fatalf("create barrier: %v", err)
		}
	}

	rows, total, err := registry.ListOwned(context.Background(), admin, pagination.Params{
		Page: 1, PageSize: 10, Ordering: "device_password; DROP TABLE barriers",
	})
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("list = %d/%d, want 3/3", len(rows), total)
	}
	if rows[0].Address != "1 Alpha St" || rows[2].Address != "9 Zulu Way" {
		t.Fatalf("fallback ordering broken: %q, %q, %q", rows[0].Address, rows[1].Address, rows[2].Address)
	}

	desc, _, err := registry.ListOwned(context.Background(), admin, pagination.Params{
		Page: 1, PageSize: 10, Ordering: "-address",
	})
	if err != nil {
		t.Fatalf("list owned desc: %v", err)
	}
	if desc[0].Address != "9 Zulu Way" {
		t.Fatalf("descending ordering broken: %q", desc[0].Address)
	}
}

func TestListMembers_Search(t *testing.T) {
	conn := setupRegistryTestDB(t)
	registry := NewRegistry(conn, &fakeNotifier{})
	admin := seedUser(t, conn, "+100", models.RoleAdmin)
	alice := seedUser(t, conn, "+200", models.RoleUser)
	alice.FullName = "Alice Johnson"
	if err := conn.Save(alice).Error; err != nil {
		t.Fatalf("rename user: %v", err)
	}
	bob := seedUser(t, conn, "+300", models.RoleUser)
	bob.FullName = "Bob Smith"
	if err := conn.Save(bob).Error; err != nil {
		t.Fatalf("rename user: %v", err)
	}

	barrier, err := registry.Create(context.Background(), admin, CreateInput{
		Address: "12 Gate Rd", DevicePhone: "+79990001122", DeviceModel: "RTU5025",
	})
	if err != nil {
		t.Fatalf("create barrier: %v", err)
	}
	grantMembership(t, conn, alice, barrier)
	grantMembership(t, conn, bob, barrier)

	rows, total, err := registry.ListMembers(context.Background(), admin, barrier.ID, "alice", pagination.Params{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != alice.ID {
		t.Fatalf("search result = %d/%d", len(rows), total)
	}

	all, allTotal, err := registry.ListMembers(context.Background(), admin, barrier.ID, "", pagination.Params{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if allTotal != 3 || len(all) != 3 {
		t.Fatalf("member list = %d/%d, want 3/3", len(all), allTotal)
	}
}
