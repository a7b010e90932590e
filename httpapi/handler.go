package httpapi

import (
	"log/slog"
	"net/http"

	authkit "github.com/amaeats/authkit"
	"github.com/amaeats/authkit/middleware"
)

// Handler serves the authentication endpoints.
type Handler struct {
	engine    *authkit.Engine
	cookie    authkit.CookieConfig
	jwtcfg    authkit.JWTConfig
	logger    *slog.Logger
}

// NewHandler builds the endpoint handler. The config's cookie section
// decides whether responses carry the access token in the body or in an
// HttpOnly cookie.
func NewHandler(engine *authkit.Engine, cfg authkit.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:    engine,
		cookie:    cfg.Cookie,
		jwtcfg:    cfg.JWT,
		logger:    logger,
	}
}

// Routes registers the auth surface on mux. The health probe requires
// no authentication.
func (h *Handler) Routes(mux *http.ServeMux) {
	authn := middleware.Authenticate(h.engine)
	if h.cookieEnabled() {
		authn = middleware.AuthenticateCookie(h.engine, h.cookie.Name)
	}

	mux.Handle("POST /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /auth/refresh", http.HandlerFunc(h.Refresh))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("POST /auth/logout-all", authn(http.HandlerFunc(h.LogoutAll)))
	mux.Handle("GET /auth/me", authn(http.HandlerFunc(h.Me)))
	mux.Handle("GET /healthz", http.HandlerFunc(h.Health))
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}

	result, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse(w, result))
}

// Refresh rotates a refresh token and issues a fresh access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}

	result, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.WriteAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse(w, result))
}

// Logout revokes the presented refresh token. It answers 204 regardless of
// whether the token resolved to a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		// A broken body still logs out; there is nothing to leak.
		_ = decodeJSON(w, r, &req)
	}

	if err := h.engine.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.WarnContext(r.Context(), "logout failed", slog.String("error", err.Error()))
	}

	h.clearAccessCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every session of the authenticated principal.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteAuthError(w, r, authkit.ErrUnauthenticated)
		return
	}

	if err := h.engine.LogoutAll(r.Context(), principal.UserID); err != nil {
		middleware.WriteAuthError(w, r, err)
		return
	}

	h.clearAccessCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated identity and its effective scopes.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteAuthError(w, r, authkit.ErrUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User: userResponse{
			ID:    principal.UserID,
			Email: principal.Email,
			Role:  string(principal.Role),
		},
		Scopes: principal.Scopes,
	})
}

// Health is the liveness probe. It bypasses authentication and rate
// limiting.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) sessionResponse(w http.ResponseWriter, result *authkit.LoginResult) sessionResponse {
	resp := sessionResponse{
		Token:                 result.AccessToken,
		RefreshToken:          result.RefreshToken,
		RefreshTokenExpiresAt: result.RefreshExpiresAt,
		Scopes:                result.Scopes,
		User: userResponse{
			ID:    result.User.UserID,
			Email: result.User.Email,
			Role:  string(result.User.Role),
		},
	}

	if h.cookieEnabled() {
		h.setAccessCookie(w, result.AccessToken, h.jwtcfg.AccessTTL)
		resp.Token = ""
	}

	return resp
}
