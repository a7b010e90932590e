package httpapi

import "time"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sessionResponse is the login and refresh payload. Token is omitted when
// the cookie transport carries it instead.
type sessionResponse struct {
	Token                 string       `json:"token,omitempty"`
	RefreshToken          string       `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
	Scopes                []string     `json:"scopes"`
	User                  userResponse `json:"user"`
}

type meResponse struct {
	User   userResponse `json:"user"`
	Scopes []string     `json:"scopes"`
}

type healthResponse struct {
	Status string `json:"status"`
}
