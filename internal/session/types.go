package session

// Storage keys. They match the keys the web clients keep in local storage.
const (
	KeyAccessToken  = "wedding_access_token"
	KeyRefreshToken = "wedding_refresh_token"
	KeyUser         = "wedding_user"
	KeyTheme        = "theme"
)

// UserProfile is the signed-in user as persisted under KeyUser.
type UserProfile struct {
	ID              int64  `json:"id"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	Role            string `json:"role,omitempty"`
}

// Session is a point-in-time copy of the store's credentials.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// IsAuthenticated reports whether both a user and an access token are present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Update describes a partial session change. Nil fields are left alone;
// a present empty value clears the field and deletes its storage key.
type Update struct {
	AccessToken  *string
	RefreshToken *string

	user    *UserProfile
	userSet bool
}

// SetUser marks the user for update. A nil profile clears it.
func (u Update) SetUser(p *UserProfile) Update {
	u.user = p
	u.userSet = true
	return u
}

// String returns a pointer to s, for building an Update.
func String(s string) *string { return &s }

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}
