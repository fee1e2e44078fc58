package dto

// Data Transfer Objects for the confirmation code flow

// SignupRequest: payload for self registration
type SignupRequest struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

// SignupResponse echoes the registered identity; the code travels by mail.
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest: payload for exchanging a confirmation code
type TokenRequest struct {
	Username         string `json:"username" validate:"required,max=150,username,notme"`
	ConfirmationCode string `json:"confirmation_code" validate:"required,max=255"`
}

// TokenResponse carries the access token.
type TokenResponse struct {
	Token string `json:"token"`
}
