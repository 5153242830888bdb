// Package barriers owns barrier entities, per-barrier memberships and limits.
// Deletion is always a soft delete that cascades to memberships and phone
// credentials.
package barriers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	dbutil "github.com/FreeVigilance/HappyBarrier/internal/db"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/FreeVigilance/HappyBarrier/internal/phones"
	"github.com/FreeVigilance/HappyBarrier/internal/sms"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ordering allow-lists for listings. Unknown fields fall back to the default.
var (
	barrierOrderingFields = map[string]struct{}{"address": {}, "created_at": {}, "updated_at": {}}
	userOrderingFields    = map[string]struct{}{"full_name": {}, "phone": {}}
)

const (
	defaultBarrierOrdering = "address"
	defaultUserOrdering    = "full_name"
)

// Notifier dispatches credential notifications after state changes commit.
type Notifier interface {
	SendPhoneCreated(ctx context.Context, phone *models.BarrierPhone, entry *models.BarrierActionLog) error
	SendPhoneRemoved(ctx context.Context, phone *models.BarrierPhone, entry *models.BarrierActionLog) error
}

// Registry manages barriers and memberships.
type Registry struct {
	db       *gorm.DB
	notifier Notifier
}

// NewRegistry builds a Registry.
func NewRegistry(conn *gorm.DB, notifier Notifier) *Registry {
	return &Registry{db: conn, notifier: notifier}
}

// CreateInput carries the fields of a new barrier.
type CreateInput struct {
	Address        string
	DevicePhone    string
	DeviceModel    string
	DevicePassword string
	AdditionalInfo string
	IsPublic       bool
}

// UpdateInput carries a partial barrier update. Nil fields are unchanged.
type UpdateInput struct {
	Address        *string
	DevicePhone    *string
	DevicePassword *string
	AdditionalInfo *string
	IsPublic       *bool
}

// LimitInput carries a partial limit update. Nil fields are unchanged.
type LimitInput struct {
	UserPhoneLimit       *int
	UserTempPhoneLimit   *int
	GlobalTempPhoneLimit *int
	SMSWeeklyLimit       *int
}

// Create registers a barrier owned by the admin. The owner is always the
// first member: a pre-accepted request, an active membership and a primary
// phone credential are created alongside the barrier and its default limits.
func (r *Registry) Create(ctx context.Context, admin *models.User, input CreateInput) (*models.Barrier, error) {
	if strings.TrimSpace(input.Address) == "" {
		return nil, apperr.Validation("Address is required.")
	}
	if strings.TrimSpace(input.DevicePhone) == "" {
		return nil, apperr.Validation("Device phone is required.")
	}
	if _, ok := sms.SettingsFor(input.DeviceModel); !ok {
		return nil, apperr.Validation("Unknown device model '" + input.DeviceModel + "'.")
	}

	password := strings.TrimSpace(input.DevicePassword)
	if password == "" {
		password = "1234"
	}

	barrier := &models.Barrier{
		OwnerID:        admin.ID,
		Address:        input.Address,
		DevicePhone:    input.DevicePhone,
		DeviceModel:    input.DeviceModel,
		DevicePassword: password,
		AdditionalInfo: input.AdditionalInfo,
		IsPublic:       input.IsPublic,
		IsActive:       true,
	}

	var ownerPhone *models.BarrierPhone
	var ownerLog *models.BarrierActionLog
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(barrier).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.BarrierLimit{BarrierID: barrier.ID}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		request := &models.AccessRequest{
			UserID:      admin.ID,
			BarrierID:   barrier.ID,
			RequestType: models.RequestFromBarrier,
			Status:      models.RequestAccepted,
			FinishedAt:  &now,
		}
		if err := tx.Create(request).Error; err != nil {
			return err
		}
		membership := &models.UserBarrier{
			UserID:          admin.ID,
			BarrierID:       barrier.ID,
			AccessRequestID: request.ID,
			IsActive:        true,
		}
		if err := tx.Create(membership).Error; err != nil {
			return err
		}

		phone, entry, err := phones.Create(tx, phones.CreateParams{
			UserID:    admin.ID,
			BarrierID: barrier.ID,
			Phone:     admin.Phone,
			Type:      models.PhonePrimary,
			Name:      admin.FullName,
			Author:    models.AuthorSystem,
			Reason:    models.ReasonAccessGranted,
		})
		if err != nil {
			return err
		}
		ownerPhone = phone
		ownerLog = entry
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	if errNotify := r.notifier.SendPhoneCreated(ctx, ownerPhone, ownerLog); errNotify != nil {
		log.WithError(errNotify).
			WithField("phone_id", ownerPhone.ID).
			Error("failed to send phone creation notification")
	}
	return barrier, nil
}

// GetOwned loads an active barrier and verifies ownership.
func (r *Registry) GetOwned(ctx context.Context, admin *models.User, barrierID uint64) (*models.Barrier, error) {
	var barrier models.Barrier
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", barrierID, true).
		First(&barrier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Barrier not found.")
		}
		return nil, err
	}
	if barrier.OwnerID != admin.ID {
		return nil, apperr.Forbidden("You do not have access to this barrier.")
	}
	return &barrier, nil
}

// Update applies a partial update to an owned barrier.
func (r *Registry) Update(ctx context.Context, admin *models.User, barrierID uint64, input UpdateInput) (*models.Barrier, error) {
	barrier, err := r.GetOwned(ctx, admin, barrierID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Address != nil {
		if strings.TrimSpace(*input.Address) == "" {
			return nil, apperr.Validation("Address is required.")
		}
		updates["address"] = *input.Address
	}
	if input.DevicePhone != nil {
		updates["device_phone"] = *input.DevicePhone
	}
	if input.DevicePassword != nil {
		updates["device_password"] = *input.DevicePassword
	}
	if input.AdditionalInfo != nil {
		updates["additional_info"] = *input.AdditionalInfo
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}
	if len(updates) == 0 {
		return barrier, nil
	}

	if errSave := r.db.WithContext(ctx).Model(barrier).Updates(updates).Error; errSave != nil {
		return nil, errSave
	}
	return barrier, nil
}

// Delete soft-deletes an owned barrier: memberships are deactivated, every
// active phone credential is removed with its own log entry and removal
// notification, then the barrier itself is marked inactive. Per-phone
// failures are logged and skipped so one bad credential cannot wedge the
// whole deletion.
func (r *Registry) Delete(ctx context.Context, admin *models.User, barrierID uint64) error {
	barrier, err := r.GetOwned(ctx, admin, barrierID)
	if err != nil {
		return err
	}

	log.WithField("barrier_id", barrier.ID).Info("deactivating memberships while deleting barrier")
	if errDeactivate := r.db.WithContext(ctx).
		Model(&models.UserBarrier{}).
		Where("barrier_id = ? AND is_active = ?", barrier.ID, true).
		Update("is_active", false).Error; errDeactivate != nil {
		return errDeactivate
	}

	r.removeActivePhones(ctx, barrier.ID, 0, models.ReasonBarrierDeleted)

	return r.db.WithContext(ctx).Model(barrier).Update("is_active", false).Error
}

// RemoveUser revokes a user's membership on an owned barrier along with all
// of the user's active phone credentials.
func (r *Registry) RemoveUser(ctx context.Context, admin *models.User, userID, barrierID uint64) error {
	barrier, err := r.GetOwned(ctx, admin, barrierID)
	if err != nil {
		return err
	}

	var user models.User
	if errUser := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error; errUser != nil {
		if errors.Is(errUser, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User not found.")
		}
		return errUser
	}

	var membership models.UserBarrier
	if errFind := r.db.WithContext(ctx).
		Where("user_id = ? AND barrier_id = ? AND is_active = ?", user.ID, barrier.ID, true).
		First(&membership).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User not found in this barrier.")
		}
		return errFind
	}
	if errDeactivate := r.db.WithContext(ctx).
		Model(&membership).Update("is_active", false).Error; errDeactivate != nil {
		return errDeactivate
	}

	log.WithFields(log.Fields{"user_id": user.ID, "barrier_id": barrier.ID}).
		Info("removing phones while user leaves barrier")
	r.removeActivePhones(ctx, barrier.ID, user.ID, models.ReasonBarrierExit)
	return nil
}

// UpdateLimit applies a partial update to the barrier's limits, creating the
// limit row with defaults when it is missing.
func (r *Registry) UpdateLimit(ctx context.Context, admin *models.User, barrierID uint64, input LimitInput) (*models.BarrierLimit, error) {
	barrier, err := r.GetOwned(ctx, admin, barrierID)
	if err != nil {
		return nil, err
	}

	var limit models.BarrierLimit
	if errFind := r.db.WithContext(ctx).
		Where("barrier_id = ?", barrier.ID).
		First(&limit).Error; errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errFind
		}
		limit = models.BarrierLimit{BarrierID: barrier.ID}
		if errCreate := r.db.WithContext(ctx).Create(&limit).Error; errCreate != nil {
			return nil, errCreate
		}
	}

	updates := map[string]any{}
	setLimit := func(column string, value *int) error {
		if value == nil {
			return nil
		}
		if *value < 0 {
			return apperr.Validation("Limits must be non-negative.")
		}
		updates[column] = *value
		return nil
	}
	for column, value := range map[string]*int{
		"user_phone_limit":        input.UserPhoneLimit,
		"user_temp_phone_limit":   input.UserTempPhoneLimit,
		"global_temp_phone_limit": input.GlobalTempPhoneLimit,
		"sms_weekly_limit":        input.SMSWeeklyLimit,
	} {
		if errSet := setLimit(column, value); errSet != nil {
			return nil, errSet
		}
	}
	if len(updates) == 0 {
		return &limit, nil
	}

	if errSave := r.db.WithContext(ctx).Model(&limit).Updates(updates).Error; errSave != nil {
		return nil, errSave
	}
	return &limit, nil
}

// ListOwned returns the admin's active barriers with allow-listed ordering.
func (r *Registry) ListOwned(ctx context.Context, admin *models.User, page pagination.Params) ([]models.Barrier, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Barrier{}).
		Where("owner_id = ? AND is_active = ?", admin.ID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Barrier
	order := pagination.OrderClause(page.Ordering, barrierOrderingFields, defaultBarrierOrdering)
	if err := q.Order(order).Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListForUser returns public active barriers plus the user's memberships.
func (r *Registry) ListForUser(ctx context.Context, user *models.User, page pagination.Params) ([]models.Barrier, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Barrier{}).
		Joins("JOIN user_barriers ON user_barriers.barrier_id = barriers.id").
		Where("user_barriers.user_id = ? AND user_barriers.is_active = ?", user.ID, true).
		Where("barriers.is_active = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Barrier
	order := pagination.OrderClause(page.Ordering, barrierOrderingFields, defaultBarrierOrdering)
	if err := q.Order("barriers." + order).Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListMembers returns active members of an owned barrier with allow-listed
// ordering and optional case-insensitive name search.
func (r *Registry) ListMembers(ctx context.Context, admin *models.User, barrierID uint64, search string, page pagination.Params) ([]models.User, int64, error) {
	barrier, err := r.GetOwned(ctx, admin, barrierID)
	if err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_barriers ON user_barriers.user_id = users.id").
		Where("user_barriers.barrier_id = ? AND user_barriers.is_active = ?", barrier.ID, true).
		Where("users.is_active = ?", true)
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		pattern := dbutil.NormalizeLikePattern(r.db, "%"+trimmed+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(r.db, "users.full_name"), pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.User
	order := pagination.OrderClause(page.Ordering, userOrderingFields, defaultUserOrdering)
	if err := q.Order("users." + order).Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// removeActivePhones deactivates matching credentials one at a time, each in
// its own transaction with its own log entry and removal notification.
// userID zero matches every user on the barrier.
func (r *Registry) removeActivePhones(ctx context.Context, barrierID, userID uint64, reason string) {
	q := r.db.WithContext(ctx).Where("barrier_id = ? AND is_active = ?", barrierID, true)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var activePhones []models.BarrierPhone
	if err := q.Find(&activePhones).Error; err != nil {
		log.WithError(err).WithField("barrier_id", barrierID).Error("failed to list phones for removal")
		return
	}

	for i := range activePhones {
		phone := &activePhones[i]

		var entry *models.BarrierActionLog
		errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, removed, errRemove := phones.Remove(tx, phone, models.AuthorAdmin, reason)
			entry = removed
			return errRemove
		})
		if errTx != nil {
			log.WithError(errTx).WithField("phone_id", phone.ID).Error("failed to remove phone, continuing")
			continue
		}

		if errNotify := r.notifier.SendPhoneRemoved(ctx, phone, entry); errNotify != nil {
			log.WithError(errNotify).WithField("phone_id", phone.ID).Error("failed to send phone removal notification")
		}
		log.WithFields(log.Fields{
			"phone":      phone.Phone,
			"user_id":    phone.UserID,
			"barrier_id": barrierID,
			"reason":     reason,
		}).Info("removed barrier phone")
	}
}
