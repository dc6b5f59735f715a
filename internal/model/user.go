package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRole enum constants
const (
	RoleStaff          = "staff"
	RoleApproverLevel1 = "approver_level_1"
	RoleApproverLevel2 = "approver_level_2"
	RoleFinance        = "finance"
)

// User is the profile returned by the backend authentication service
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"` // staff, approver_level_1, approver_level_2, finance
	ApproverLevel *int   `json:"approver_level,omitempty"`
}

// AuthResponse is the backend login payload
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Session stores a gateway login. The backend tokens never leave the gateway;
// browsers only hold the opaque session Token.
type Session struct {
	ID           uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	Token        string                   `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	UserID       string                   `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Username     string                   `gorm:"type:varchar(255)" json:"username"`
	Role         string                   `gorm:"type:varchar(50);not null" json:"role"`
	Profile      datatypes.JSONType[User] `gorm:"type:json" json:"profile"`
	AccessToken  string                   `gorm:"type:text;not null" json:"-"`
	RefreshToken string                   `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time                `gorm:"index;not null" json:"expires_at"`
	CreatedAt    time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate generates the primary key; the opaque Token is set by the session manager
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
