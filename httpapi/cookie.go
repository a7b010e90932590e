package httpapi

import (
	"net/http"
	"time"
)

func (h *Handler) cookieEnabled() bool {
	return h != nil && h.cookie.Enabled && h.cookie.Name != ""
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, token string, accessTTL time.Duration) {
	if !h.cookieEnabled() {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSiteMode(),
	})
}

func (h *Handler) clearAccessCookie(w http.ResponseWriter) {
	if !h.cookieEnabled() {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSiteMode(),
	})
}
