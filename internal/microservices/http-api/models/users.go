package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ReservedUsername is the path alias of the current user and can never be
// taken as a real username.
const ReservedUsername = "me"

var ErrReservedUsername = errors.New(`username "me" is reserved`)

type User struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username             string     `gorm:"uniqueIndex;size:150;not null;check:chk_users_username_not_me,username <> 'me'" json:"username"`
	Email                string     `gorm:"uniqueIndex;size:254;not null" json:"email"`
	FirstName            string     `gorm:"size:150;not null;default:''" json:"first_name"`
	LastName             string     `gorm:"size:150;not null;default:''" json:"last_name"`
	Bio                  string     `gorm:"type:text;not null;default:''" json:"bio"`
	Role                 string     `gorm:"size:16;not null;default:'user'" json:"role"`
	IsSuperuser          bool       `gorm:"not null;default:false" json:"-"`
	IsStaff              bool       `gorm:"not null;default:false" json:"-"`
	ConfirmationCodeHash string     `gorm:"size:72;not null;default:''" json:"-"`
	ConfirmationSentAt   *time.Time `json:"-"`
	LastLogin            *time.Time `json:"last_login,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// BeforeSave mirrors the check constraint so the rule also holds on drivers
// that skip CHECK clauses.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Username == ReservedUsername {
		return ErrReservedUsername
	}
	return nil
}

// IsAdmin reports admin-equivalent privilege.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser || u.IsStaff
}

func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// HasPendingCode reports whether a confirmation code is waiting to be exchanged.
func (u *User) HasPendingCode() bool {
	return u.ConfirmationCodeHash != ""
}

func (User) TableName() string {
	return "users"
}
