package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"vocaroom/internal/auth"
	"vocaroom/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthHandler implements the Google sign-in flow. A successful callback
// issues an app bearer token the client sends on later API calls.
type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtIssuer     string
	jwtKey        string
	tokenDuration time.Duration
	redirectBase  string
}

// NewAuthHandler creates a new auth handler from the app config
func NewAuthHandler(cfg *config.Config, googleEndpoint oauth2.Endpoint) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		jwtIssuer:     cfg.JWTIssuer,
		jwtKey:        cfg.JWTSigningKey,
		tokenDuration: cfg.TokenDuration,
		redirectBase:  cfg.OAuthRedirectBaseURL,
	}
}

// StartOAuth handles GET /auth/google and redirects to the consent screen
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig.ClientID == "" || h.oauthConfig.ClientSecret == "" {
		respondError(w, http.StatusBadRequest, "OAuth provider not configured")
		return
	}

	state := uuid.New().String()
	h.setTempCookie(w, r, "oauth_state", state, 10*time.Minute)

	config := *h.oauthConfig
	config.RedirectURL = h.redirectURL(r)

	http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// OAuthCallback handles GET /auth/google/callback, exchanges the code and
// returns a bearer token
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig.ClientID == "" || h.oauthConfig.ClientSecret == "" {
		respondError(w, http.StatusBadRequest, "OAuth provider not configured")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		respondError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	h.clearTempCookie(w, r, "oauth_state")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *h.oauthConfig
	config.RedirectURL = h.redirectURL(r)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to exchange OAuth code")
		return
	}

	user, err := fetchGoogleUser(ctx, token)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	appToken, err := auth.Issue(*user, h.jwtIssuer, h.jwtKey, h.tokenDuration)
	if err != nil {
		respondInternalError(w, "failed to issue token", err)
		return
	}

	respondOK(w, map[string]interface{}{
		"token": appToken,
		"user": map[string]string{
			"uid":   user.UID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*auth.User, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Google user info")
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse Google user info")
	}

	return &auth.User{UID: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) redirectURL(r *http.Request) string {
	base := h.redirectBase
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/auth/google/callback"
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
