// Package phones provisions remote-control phone credentials. Creation and
// removal always write a matching action log entry in the same transaction
// and return both records; notification dispatch is left to the caller so a
// failed notification can never undo the persisted state.
package phones

import (
	"github.com/FreeVigilance/HappyBarrier/internal/actionlog"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"gorm.io/gorm"
)

// CreateParams describes a credential to provision.
type CreateParams struct {
	UserID    uint64
	BarrierID uint64
	Phone     string
	Type      string
	Name      string
	Author    string
	Reason    string
}

// Create persists a credential and its add_phone log entry within tx.
func Create(tx *gorm.DB, params CreateParams) (*models.BarrierPhone, *models.BarrierActionLog, error) {
	phone := &models.BarrierPhone{
		UserID:    params.UserID,
		BarrierID: params.BarrierID,
		Phone:     params.Phone,
		Type:      params.Type,
		Name:      params.Name,
		IsActive:  true,
	}
	if err := tx.Create(phone).Error; err != nil {
		return nil, nil, err
	}

	entry := &models.BarrierActionLog{
		BarrierID:  params.BarrierID,
		PhoneID:    &phone.ID,
		Author:     params.Author,
		ActionType: models.ActionAddPhone,
		Reason:     params.Reason,
		NewValue:   phone.DescribeParams(),
	}
	if err := actionlog.Record(tx, entry); err != nil {
		return nil, nil, err
	}
	return phone, entry, nil
}

// Remove deactivates a credential and writes its remove_phone log entry
// within tx. The prior descriptive parameters are captured as the old value.
func Remove(tx *gorm.DB, phone *models.BarrierPhone, author, reason string) (*models.BarrierPhone, *models.BarrierActionLog, error) {
	oldValue := phone.DescribeParams()

	phone.IsActive = false
	if err := tx.Model(phone).Update("is_active", false).Error; err != nil {
		return nil, nil, err
	}

	entry := &models.BarrierActionLog{
		BarrierID:  phone.BarrierID,
		PhoneID:    &phone.ID,
		Author:     author,
		ActionType: models.ActionRemovePhone,
		Reason:     reason,
		OldValue:   oldValue,
	}
	if err := actionlog.Record(tx, entry); err != nil {
		return nil, nil, err
	}
	return phone, entry, nil
}
