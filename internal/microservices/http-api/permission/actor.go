package permission

import "mediareview/internal/microservices/http-api/models"

const roleAnonymous = "anonymous"

// Actor is the caller of an operation. The zero value is the anonymous
// actor.
type Actor struct {
	ID          int64
	Username    string
	Role        string
	IsSuperuser bool
	IsStaff     bool
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor {
	return Actor{}
}

// FromUser builds the actor for an authenticated user.
func FromUser(u *models.User) Actor {
	return Actor{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		IsSuperuser: u.IsSuperuser,
		IsStaff:     u.IsStaff,
	}
}

func (a Actor) IsAnonymous() bool {
	return a.ID == 0
}

func (a Actor) IsAdmin() bool {
	return !a.IsAnonymous() && a.user().IsAdmin()
}

// user carries the privilege fields read by the model role rules.
func (a Actor) user() *models.User {
	return &models.User{Role: a.Role, IsSuperuser: a.IsSuperuser, IsStaff: a.IsStaff}
}

// role is the subject the policy is evaluated for.
func (a Actor) role() string {
	switch {
	case a.IsAnonymous():
		return roleAnonymous
	case a.IsAdmin():
		return models.RoleAdmin
	case a.user().IsModerator():
		return models.RoleModerator
	default:
		return models.RoleUser
	}
}
