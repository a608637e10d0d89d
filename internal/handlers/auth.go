package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/liamwears/moviestats/internal/middleware"
	"github.com/liamwears/moviestats/internal/models"
)

const (
	stateCookieName   = "oauth_state"
	stateCookieMaxAge = 5 * 60
)

// SessionManager creates and removes login sessions
type SessionManager interface {
	GenerateSessionID() (string, error)
	Set(ctx context.Context, sessionID string, userID uuid.UUID) error
	Delete(ctx context.Context, sessionID string) error
}

// UserDirectory resolves OAuth identities into users
type UserDirectory interface {
	FindOrCreate(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	users          UserDirectory
	sessions       SessionManager
	authMiddleware *middleware.AuthMiddleware
	googleConfig   *oauth2.Config
	githubConfig   *oauth2.Config
	renderer       *Renderer
	secureCookies  bool
	logger         zerolog.Logger
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	CallbackHost       string
	SecureCookies      bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	users UserDirectory,
	sessions SessionManager,
	authMiddleware *middleware.AuthMiddleware,
	renderer *Renderer,
	cfg AuthConfig,
	logger zerolog.Logger,
) *AuthHandler {
	ghConfig := &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/auth/github/callback", cfg.CallbackHost),
		Scopes:       []string{"user:email"},
		Endpoint:     github.Endpoint,
	}

	googleConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  fmt.Sprintf("%s/auth/google/callback", cfg.CallbackHost),
		Scopes:       []string{"profile", "email"},
		Endpoint:     google.Endpoint,
	}

	logger = logger.With().Str("handler", "auth").Logger()
	logger.Debug().
		Str("google_callback", googleConfig.RedirectURL).
		Str("github_callback", ghConfig.RedirectURL).
		Msg("oauth callbacks configured")

	return &AuthHandler{
		users:          users,
		sessions:       sessions,
		authMiddleware: authMiddleware,
		renderer:       renderer,
		secureCookies:  cfg.SecureCookies,
		logger:         logger,
		googleConfig:   googleConfig,
		githubConfig:   ghConfig,
	}
}

// Login displays the login page
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, "login.html", nil)
}

// beginOAuth stores a fresh state token in a short lived cookie and
// redirects to the provider
func (h *AuthHandler) beginOAuth(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config, opts ...oauth2.AuthCodeOption) {
	state, err := h.sessions.GenerateSessionID()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate state token")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, cfg.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// exchange validates the callback state and trades the code for a token
func (h *AuthHandler) exchange(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config) (*oauth2.Token, bool) {
	stateCookie, err := r.Cookie(stateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return nil, false
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "No code provided", http.StatusBadRequest)
		return nil, false
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to exchange code")
		http.Error(w, "Failed to exchange code", http.StatusInternalServerError)
		return nil, false
	}
	return token, true
}

// fetchJSON decodes a JSON document from an authenticated provider endpoint
func fetchJSON(client *http.Client, url string, dst interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// startSession finds or creates the user, stores a session and redirects home
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, provider models.Provider, providerID, email, name string) {
	user, err := h.users.FindOrCreate(r.Context(), providerID, provider, email, name)
	if err != nil {
		h.logger.Error().Err(err).Str("provider", provider.String()).Msg("failed to find or create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	sessionID, err := h.sessions.GenerateSessionID()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate session id")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Set(r.Context(), sessionID, user.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to store session")
		http.Error(w, "Failed to store session", http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetSessionCookie(w, sessionID)
	h.logger.Info().Str("user_id", user.ID.String()).Str("provider", provider.String()).Msg("user signed in")

	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// GoogleLogin initiates Google OAuth flow
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.beginOAuth(w, r, h.googleConfig, oauth2.AccessTypeOffline)
}

// GoogleCallback handles Google OAuth callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.googleConfig)
	if !ok {
		return
	}

	var userInfo struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	client := h.googleConfig.Client(r.Context(), token)
	if err := fetchJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &userInfo); err != nil {
		h.logger.Error().Err(err).Msg("failed to get google user info")
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	h.startSession(w, r, models.ProviderGoogle, userInfo.ID, userInfo.Email, userInfo.Name)
}

// GitHubLogin initiates GitHub OAuth flow
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	h.beginOAuth(w, r, h.githubConfig)
}

// GitHubCallback handles GitHub OAuth callback
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.githubConfig)
	if !ok {
		return
	}

	var userInfo struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	client := h.githubConfig.Client(r.Context(), token)
	if err := fetchJSON(client, "https://api.github.com/user", &userInfo); err != nil {
		h.logger.Error().Err(err).Msg("failed to get github user info")
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	// Private emails are only listed by the emails endpoint
	if userInfo.Email == "" {
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := fetchJSON(client, "https://api.github.com/user/emails", &emails); err != nil {
			h.logger.Warn().Err(err).Msg("failed to get github emails")
		}
		for _, email := range emails {
			if email.Primary {
				userInfo.Email = email.Email
				break
			}
		}
	}

	if userInfo.Name == "" {
		userInfo.Name = userInfo.Login
	}

	h.startSession(w, r, models.ProviderGitHub, strconv.FormatInt(userInfo.ID, 10), userInfo.Email, userInfo.Name)
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.authMiddleware.SessionID(r); ok {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			h.logger.Warn().Err(err).Msg("failed to delete session")
		}
	}

	h.authMiddleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
