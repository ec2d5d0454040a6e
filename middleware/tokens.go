package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	authkeep "github.com/authkeep/authkeep"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// RefreshTokenFromRequest extracts the refresh token: cookie first, then a
// JSON body field named refresh_token. Reading the body consumes it, so
// handlers that need the body themselves should read it before calling this.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	if r.Body == nil {
		return "", false
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		return "", false
	}
	return body.RefreshToken, true
}

// SetTokenCookies writes both token cookies: httpOnly, secure, max-age bound
// to each token's lifetime.
func SetTokenCookies(w http.ResponseWriter, pair authkeep.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, tokenCookie(accessCookieName, pair.AccessToken, accessTTL))
	http.SetCookie(w, tokenCookie(refreshCookieName, pair.RefreshToken, refreshTTL))
}

// ClearTokenCookies expires both token cookies.
func ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, expiredCookie(accessCookieName))
	http.SetCookie(w, expiredCookie(refreshCookieName))
}

func tokenCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
