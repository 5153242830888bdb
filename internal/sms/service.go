// Package sms dispatches device commands for credential changes, barrier
// settings and balance checks. State changes are persisted before dispatch;
// a failed dispatch marks the message failed but never propagates into the
// triggering operation.
package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	"github.com/FreeVigilance/HappyBarrier/internal/cache"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// balanceCheckCooldown is the global window between balance check commands.
const balanceCheckCooldown = 5 * time.Minute

// settingsCacheTTL bounds how long a device settings catalog is cached.
const settingsCacheTTL = 10 * time.Minute

// nowFunc is swapped in tests to pin the clock.
var nowFunc = time.Now

// Service persists and dispatches SMS commands.
type Service struct {
	db     *gorm.DB
	sender Sender
	cache  *cache.Cache
}

// NewService builds a Service. cache may be nil.
func NewService(conn *gorm.DB, sender Sender, settingsCache *cache.Cache) *Service {
	return &Service{db: conn, sender: sender, cache: settingsCache}
}

// SendPhoneCreated dispatches the add-phone command for a freshly provisioned
// credential. Called after the credential and its log entry are committed.
func (s *Service) SendPhoneCreated(ctx context.Context, phone *models.BarrierPhone, entry *models.BarrierActionLog) error {
	barrier, err := s.barrierFor(ctx, phone.BarrierID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, &models.SMSMessage{
		MessageType: models.SMSPhoneCommand,
		Recipient:   barrier.DevicePhone,
		Content:     addPhoneCommand(barrier.DevicePassword, phone.Phone),
		LogID:       &entry.ID,
	})
}

// SendPhoneRemoved dispatches the remove-phone command for a deactivated
// credential. Called after the removal and its log entry are committed.
func (s *Service) SendPhoneRemoved(ctx context.Context, phone *models.BarrierPhone, entry *models.BarrierActionLog) error {
	barrier, err := s.barrierFor(ctx, phone.BarrierID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, &models.SMSMessage{
		MessageType: models.SMSPhoneCommand,
		Recipient:   barrier.DevicePhone,
		Content:     removePhoneCommand(barrier.DevicePassword, phone.Phone),
		LogID:       &entry.ID,
	})
}

// SendBarrierSetting validates the setting against the device catalog and
// dispatches the rendered command, referencing the given log entry.
func (s *Service) SendBarrierSetting(ctx context.Context, barrier *models.Barrier, settingKey string, params map[string]string, entry *models.BarrierActionLog) error {
	catalog, ok := SettingsFor(barrier.DeviceModel)
	if !ok {
		return apperr.Validation(fmt.Sprintf("Unknown device model '%s'.", barrier.DeviceModel))
	}
	spec, ok := catalog[settingKey]
	if !ok {
		return apperr.Validation(fmt.Sprintf("Unknown setting '%s'.", settingKey))
	}
	content, err := renderSetting(spec, barrier.DevicePassword, params)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	return s.dispatch(ctx, &models.SMSMessage{
		MessageType: models.SMSSettingCommand,
		Recipient:   barrier.DevicePhone,
		Content:     content,
		LogID:       &entry.ID,
	})
}

// SendBalanceCheck dispatches the balance query unless one was already sent
// within the cooldown window. Inside the window it fails with a rate-limit
// error carrying the remaining wait computed from the previous dispatch.
func (s *Service) SendBalanceCheck(ctx context.Context) (*models.SMSMessage, error) {
	var last models.SMSMessage
	err := s.db.WithContext(ctx).
		Where("message_type = ? AND sent_at IS NOT NULL", models.SMSBalanceCheck).
		Order("sent_at DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		elapsed := nowFunc().Sub(*last.SentAt)
		if elapsed < balanceCheckCooldown {
			return nil, apperr.RateLimited(
				"Balance check was already requested recently. Try again later.",
				balanceCheckCooldown-elapsed,
			)
		}
	}

	msg := &models.SMSMessage{
		MessageType: models.SMSBalanceCheck,
		Content:     balanceCheckCommand,
	}
	if errDispatch := s.dispatch(ctx, msg); errDispatch != nil {
		return nil, errDispatch
	}
	return msg, nil
}

// AvailableSettings returns the validated settings catalog for the barrier's
// device model. A malformed catalog is a server-side configuration fault.
func (s *Service) AvailableSettings(ctx context.Context, barrier *models.Barrier) (map[string]SettingSpec, error) {
	cacheKey := "barrier_settings:" + barrier.DeviceModel
	cached := map[string]SettingSpec{}
	if errGet := s.cache.Get(ctx, cacheKey, &cached); errGet == nil {
		return cached, nil
	}

	catalog, ok := SettingsFor(barrier.DeviceModel)
	if !ok {
		catalog = nil
	}
	if errValidate := validateCatalog(catalog); errValidate != nil {
		return nil, apperr.Internal(fmt.Sprintf(
			"Invalid settings configuration for device model '%s'. Please check the server config format.",
			barrier.DeviceModel,
		), errValidate)
	}

	if errSet := s.cache.Set(ctx, cacheKey, catalog, settingsCacheTTL); errSet != nil {
		log.WithError(errSet).Warn("failed to cache settings catalog")
	}
	return catalog, nil
}

// dispatch persists the message, hands it to the sender and records the
// outcome. The message row survives a failed dispatch with a failed status.
func (s *Service) dispatch(ctx context.Context, msg *models.SMSMessage) error {
	msg.Status = models.SMSPending
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}

	if errSend := s.sender.Send(ctx, msg); errSend != nil {
		log.WithError(errSend).WithField("sms_id", msg.ID).Error("sms dispatch failed")
		msg.Status = models.SMSFailed
		return s.db.WithContext(ctx).Model(msg).Update("status", models.SMSFailed).Error
	}

	now := nowFunc().UTC()
	msg.Status = models.SMSSent
	msg.SentAt = &now
	return s.db.WithContext(ctx).Model(msg).
		Updates(map[string]any{"status": models.SMSSent, "sent_at": now}).Error
}

func (s *Service) barrierFor(ctx context.Context, barrierID uint64) (*models.Barrier, error) {
	var barrier models.Barrier
	if err := s.db.WithContext(ctx).First(&barrier, barrierID).Error; err != nil {
		return nil, err
	}
	return &barrier, nil
}
