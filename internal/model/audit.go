package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions for mutations forwarded to the procurement backend
const (
	ActionLogin                  = "LOGIN"
	ActionLogout                 = "LOGOUT"
	ActionCreateRequest          = "CREATE_REQUEST"
	ActionUpdateRequest          = "UPDATE_REQUEST"
	ActionDeleteRequest          = "DELETE_REQUEST"
	ActionApproveRequest         = "APPROVE_REQUEST"
	ActionRejectRequest          = "REJECT_REQUEST"
	ActionRequestClarification   = "REQUEST_CLARIFICATION"
	ActionRespondToClarification = "RESPOND_TO_CLARIFICATION"
	ActionUploadReceipt          = "UPLOAD_RECEIPT"
	ActionUpdatePaymentStatus    = "UPDATE_PAYMENT_STATUS"
	ActionUploadProforma         = "UPLOAD_PROFORMA"
	ActionUpdateProfile          = "UPDATE_PROFILE"
	ActionChangePassword         = "CHANGE_PASSWORD"
)

// AuditLog tracks Who, What, and When for every mutation issued through the gateway
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string         `gorm:"type:varchar(64);index" json:"user_id"`
	Username   string         `gorm:"type:varchar(255)" json:"username"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(64);index" json:"entity_id"`        // Purchase request id
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Request title when known
	Details    datatypes.JSON `gorm:"type:json" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the id in Go so postgres and sqlite behave the same
func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
