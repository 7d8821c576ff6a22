package auth

// LoginPayload is the body of POST /auth/login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupPayload is the body of POST /auth/signup.
type SignupPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordCheck   string `json:"password_check"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profile_image_url"`
}

// envelope is the {message, data} wrapper every auth endpoint returns.
type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// LoginResult is the data part of a successful login.
type LoginResult struct {
	AccessToken     string  `json:"access_token"`
	RefreshToken    *string `json:"refresh_token"`
	TokenType       string  `json:"token_type"`
	UserID          int64   `json:"user_id"`
	Nickname        string  `json:"nickname"`
	ProfileImageURL *string `json:"profile_image_url"`
	Role            string  `json:"role"`
}

// TokenPair is the data part of a successful refresh. RefreshToken is
// empty when the server did not rotate it.
type TokenPair struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}

// SignupResult is the data part of a successful signup.
type SignupResult struct {
	UserID int64 `json:"user_id"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Refresh returns the rotated refresh token, or "" when none was issued.
func (p TokenPair) Refresh() string { return deref(p.RefreshToken) }

// Refresh returns the issued refresh token, or "" when none was issued.
func (r LoginResult) Refresh() string { return deref(r.RefreshToken) }

// ProfileImage returns the profile image URL, or "" when absent.
func (r LoginResult) ProfileImage() string { return deref(r.ProfileImageURL) }
