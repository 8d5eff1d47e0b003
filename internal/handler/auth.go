package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/service"
)

const stateCookieName = "oauth_state"

// GitHubProvider is the part of *auth.GitHubProvider the OAuth flow uses.
type GitHubProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages sign-up, sign-in and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → email and password accounts
//   - HandleGitHubLogin            → redirect the browser to GitHub
//   - HandleGitHubCallback         → exchange the code, issue the JWT cookie
//   - HandleLogout                 → clear the JWT cookie
//   - HandleMe / HandleUpdateMe    → the signed-in profile
//
// Every successful sign-in both returns the JWT in the body (for API
// clients sending "Authorization: Bearer") and sets it as an HttpOnly
// cookie (for the browser).
type AuthHandler struct {
	accounts      *service.AuthService
	github        GitHubProvider // nil when GitHub login is not configured
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	accounts *service.AuthService,
	github GitHubProvider,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		github:        github,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateMeRequest struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,max=2048"`
}

// HandleRegister: POST /auth/register {"email", "password", "username"} → 201 {user, token}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[registerRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin: POST /auth/login {"email", "password"} → 200 {user, token}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[loginRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusOK, res)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the authorization
// URL. The callback only proceeds when both match, which proves the flow
// was started here and not by a third-party page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes to approve on GitHub
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user
//  3. Sign in the linked profile, creating or linking one on first use
//  4. Set the JWT cookie and redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: code → GitHub user ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: profile ---
	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 4: cookie + redirect ---
	h.setTokenCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so the JWT stays valid until it expires; without
// the cookie the browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, success)
}

// HandleMe: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.GetProfile(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// HandleUpdateMe: PUT /api/me {"username"?, "avatarUrl"?}
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[updateMeRequest](w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), userID(r), service.ProfilePatch{
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// setTokenCookie stores the JWT as an HttpOnly cookie: page scripts cannot
// read it, and SameSite=Lax keeps it off cross-site POSTs.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
