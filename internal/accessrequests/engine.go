// Package accessrequests owns the access request state machine: creation,
// acceptance, rejection and cancellation, plus the authorization rules tying
// actors to request types. Accepting a request atomically grants membership
// and provisions the primary phone credential.
package accessrequests

import (
	"context"
	"errors"
	"time"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/pagination"
	"github.com/FreeVigilance/HappyBarrier/internal/phones"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier dispatches credential notifications after state changes commit.
type Notifier interface {
	SendPhoneCreated(ctx context.Context, phone *models.BarrierPhone, entry *models.BarrierActionLog) error
}

// Engine drives the access request lifecycle.
type Engine struct {
	db       *gorm.DB
	notifier Notifier
	locks    pairLocks
}

// NewEngine builds an Engine.
func NewEngine(conn *gorm.DB, notifier Notifier) *Engine {
	return &Engine{db: conn, notifier: notifier}
}

// transitionRule keys the authorization matrix: which side of a request may
// move it into which terminal status.
type transitionRule struct {
	side        string // "user" (target user) or "admin" (owning admin).
	requestType string
	target      string
}

var allowedTransitions = map[transitionRule]bool{
	// The requesting side may withdraw its own request.
	{side: "user", requestType: models.RequestFromUser, target: models.RequestCancelled}:     true,
	{side: "admin", requestType: models.RequestFromBarrier, target: models.RequestCancelled}: true,
	// The receiving side decides on the other side's request.
	{side: "user", requestType: models.RequestFromBarrier, target: models.RequestAccepted}:   true,
	{side: "user", requestType: models.RequestFromBarrier, target: models.RequestRejected}:   true,
	{side: "admin", requestType: models.RequestFromUser, target: models.RequestAccepted}:     true,
	{side: "admin", requestType: models.RequestFromUser, target: models.RequestRejected}:     true,
}

// Create opens a pending access request for userID on barrierID. Regular
// users may only request access for themselves; admins may only initiate
// requests on barriers they own.
func (e *Engine) Create(ctx context.Context, actor *models.User, userID, barrierID uint64) (*models.AccessRequest, error) {
	barrier, err := e.activeBarrier(ctx, barrierID, !actor.IsAdmin())
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && actor.ID != userID {
		return nil, apperr.Forbidden("You cannot create access request for other user.")
	}
	if actor.IsAdmin() && actor.ID != userID && barrier.OwnerID != actor.ID {
		return nil, apperr.Forbidden("You do not have access to this barrier.")
	}

	var user models.User
	if errUser := e.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error; errUser != nil {
		if errors.Is(errUser, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found.")
		}
		return nil, errUser
	}

	requestType := models.RequestFromBarrier
	if actor.ID == userID {
		requestType = models.RequestFromUser
	}

	mu := e.locks.of(userID, barrierID)
	mu.Lock()
	defer mu.Unlock()

	request := &models.AccessRequest{
		UserID:      userID,
		BarrierID:   barrierID,
		RequestType: requestType,
		Status:      models.RequestPending,
	}
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if errCount := tx.Model(&models.AccessRequest{}).
			Where("user_id = ? AND barrier_id = ? AND status = ?", userID, barrierID, models.RequestPending).
			Count(&pending).Error; errCount != nil {
			return errCount
		}
		if pending > 0 {
			return apperr.Conflict("An active access request already exists for this user and barrier.")
		}

		var memberships int64
		if errCount := tx.Model(&models.UserBarrier{}).
			Where("user_id = ? AND barrier_id = ? AND is_active = ?", userID, barrierID, true).
			Count(&memberships).Error; errCount != nil {
			return errCount
		}
		if memberships > 0 {
			return apperr.Conflict("This user already has access to the barrier.")
		}

		return tx.Create(request).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return request, nil
}

// Get returns a request if the actor is allowed to see it. A cancelled
// request stays visible only to the side that created it.
func (e *Engine) Get(ctx context.Context, actor *models.User, id uint64) (*models.AccessRequest, error) {
	var request models.AccessRequest
	if err := e.db.WithContext(ctx).
		Preload("Barrier").
		First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Access request not found.")
		}
		return nil, err
	}
	if _, err := e.actorSide(actor, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// Transition moves a request into a terminal status on behalf of the actor.
// Acceptance creates the membership, provisions the primary credential and
// writes the grant log entry in one transaction; the notification goes out
// after commit and is best-effort.
func (e *Engine) Transition(ctx context.Context, actor *models.User, id uint64, newStatus string) (*models.AccessRequest, error) {
	switch newStatus {
	case models.RequestAccepted, models.RequestRejected, models.RequestCancelled:
	default:
		return nil, apperr.Validation("Status must be one of: accepted, rejected, cancelled.")
	}

	request, err := e.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	side, err := e.actorSide(actor, request)
	if err != nil {
		return nil, err
	}

	if !allowedTransitions[transitionRule{side: side, requestType: request.RequestType, target: newStatus}] {
		if newStatus == models.RequestCancelled {
			return nil, apperr.Forbidden("You are not allowed to cancel this request.")
		}
		return nil, apperr.Forbidden("You are not allowed to accept or reject this request.")
	}

	mu := e.locks.of(request.UserID, request.BarrierID)
	mu.Lock()
	defer mu.Unlock()

	var grantedPhone *models.BarrierPhone
	var grantedLog *models.BarrierActionLog
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.AccessRequest
		if errLoad := tx.First(&current, request.ID).Error; errLoad != nil {
			return errLoad
		}
		if current.IsFinished() {
			return apperr.Conflict("This access request is already finished.")
		}

		now := time.Now().UTC()
		current.Status = newStatus
		current.FinishedAt = &now
		if errSave := tx.Model(&current).
			Updates(map[string]any{"status": newStatus, "finished_at": now}).Error; errSave != nil {
			return errSave
		}

		if newStatus == models.RequestAccepted {
			var memberships int64
			if errCount := tx.Model(&models.UserBarrier{}).
				Where("user_id = ? AND barrier_id = ? AND is_active = ?", current.UserID, current.BarrierID, true).
				Count(&memberships).Error; errCount != nil {
				return errCount
			}
			if memberships > 0 {
				return apperr.Conflict("This user already has access to the barrier.")
			}

			var user models.User
			if errUser := tx.First(&user, current.UserID).Error; errUser != nil {
				return errUser
			}

			membership := &models.UserBarrier{
				UserID:          current.UserID,
				BarrierID:       current.BarrierID,
				AccessRequestID: current.ID,
				IsActive:        true,
			}
			if errCreate := tx.Create(membership).Error; errCreate != nil {
				return errCreate
			}

			phone, entry, errPhone := phones.Create(tx, phones.CreateParams{
				UserID:    current.UserID,
				BarrierID: current.BarrierID,
				Phone:     user.Phone,
				Type:      models.PhonePrimary,
				Name:      user.FullName,
				Author:    models.AuthorSystem,
				Reason:    models.ReasonAccessGranted,
			})
			if errPhone != nil {
				return errPhone
			}
			grantedPhone = phone
			grantedLog = entry
		}

		*request = current
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	if grantedPhone != nil {
		if errNotify := e.notifier.SendPhoneCreated(ctx, grantedPhone, grantedLog); errNotify != nil {
			log.WithError(errNotify).
				WithField("phone_id", grantedPhone.ID).
				Error("failed to send phone creation notification")
		}
	}
	return request, nil
}

// ListForUser returns the actor's own requests, newest first.
func (e *Engine) ListForUser(ctx context.Context, actor *models.User, page pagination.Params) ([]models.AccessRequest, int64, error) {
	q := e.db.WithContext(ctx).Model(&models.AccessRequest{}).Where("user_id = ?", actor.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AccessRequest
	if err := q.Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListForAdmin returns requests targeting barriers owned by the admin,
// newest first.
func (e *Engine) ListForAdmin(ctx context.Context, admin *models.User, page pagination.Params) ([]models.AccessRequest, int64, error) {
	q := e.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Joins("JOIN barriers ON barriers.id = access_requests.barrier_id").
		Where("barriers.owner_id = ?", admin.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AccessRequest
	if err := q.Order("access_requests.created_at DESC, access_requests.id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// actorSide resolves which side of the request the actor is on, applying the
// visibility rules shared by reads and mutations.
func (e *Engine) actorSide(actor *models.User, request *models.AccessRequest) (string, error) {
	denied := apperr.Forbidden("You do not have access to this access request.")

	if actor.ID == request.UserID {
		if request.Status == models.RequestCancelled && request.RequestType == models.RequestFromBarrier {
			return "", denied
		}
		return "user", nil
	}
	if actor.IsAdmin() && request.Barrier != nil && request.Barrier.OwnerID == actor.ID {
		if request.Status == models.RequestCancelled && request.RequestType == models.RequestFromUser {
			return "", denied
		}
		return "admin", nil
	}
	return "", denied
}

// activeBarrier loads an active barrier, optionally restricted to public
// ones. Inactive and invisible barriers are reported as missing.
func (e *Engine) activeBarrier(ctx context.Context, barrierID uint64, publicOnly bool) (*models.Barrier, error) {
	q := e.db.WithContext(ctx).Where("id = ? AND is_active = ?", barrierID, true)
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}
	var barrier models.Barrier
	if err := q.First(&barrier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Barrier not found.")
		}
		return nil, err
	}
	return &barrier, nil
}
