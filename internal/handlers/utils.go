// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// seatCookieName carries a seat token for browser clients that cannot set headers.
const seatCookieName = "kargo_seat"

// extractSeatToken reads a bearer token, falling back to the seat cookie.
func extractSeatToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	c, err := r.Cookie(seatCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
