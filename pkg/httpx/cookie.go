package httpx

import (
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName = "agentauth_session"
	FlowCookieName    = "agentauth_flow"
)

// CreateSessionCookie returns the session cookie for token. Max-Age is the
// whole seconds left until expires, rounded up and never negative.
func CreateSessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return newCookie(SessionCookieName, token, maxAge(expires, time.Now()), secure)
}

// ClearSessionCookie returns a cookie that deletes the session cookie.
func ClearSessionCookie(secure bool) *http.Cookie {
	return newCookie(SessionCookieName, "", -1, secure)
}

// CreateFlowCookie binds an in-flight OAuth flow to the browser.
func CreateFlowCookie(flowKey string, expires time.Time, secure bool) *http.Cookie {
	return newCookie(FlowCookieName, flowKey, maxAge(expires, time.Now()), secure)
}

func ClearFlowCookie(secure bool) *http.Cookie {
	return newCookie(FlowCookieName, "", -1, secure)
}

// CookieValue returns the value of the named cookie, or "".
func CookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// maxAge follows net/http: a negative value renders as "Max-Age=0" and zero
// omits the attribute, so an already expired session maps to -1.
func maxAge(expires, now time.Time) int {
	secs := math.Ceil(expires.Sub(now).Seconds())
	if secs <= 0 {
		return -1
	}
	return int(secs)
}

func newCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
