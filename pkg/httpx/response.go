package httpx

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// ErrorBody is the failure shape of every JSON API response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteJSON writes v as JSON with status code. Responses are never cached.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"success":false,"error":msg}.
func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, ErrorBody{Error: msg})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// RedirectWithError sends the browser to errorURL with an error query
// parameter. msg must already be safe to show.
func RedirectWithError(w http.ResponseWriter, r *http.Request, errorURL, msg string) {
	u, err := url.Parse(errorURL)
	if err != nil || errorURL == "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}
	q := u.Query()
	q.Set("error", msg)
	u.RawQuery = q.Encode()

	NoCache(w)
	http.Redirect(w, r, u.String(), http.StatusFound)
}
