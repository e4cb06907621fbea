package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "resume-tailor/internal/shared/auth"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/users"
)

// GoogleService runs the Google OAuth login flow and issues first-party
// JWTs. Every successful login upserts the account so job ownership has
// a user row to reference.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	users       *users.Service
	stateTTL    time.Duration
	states      *stateStore
}

func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, userSvc *users.Service) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect: uiRedirect,
		users:      userSvc,
		stateTTL:   5 * time.Minute,
		states:     newStateStore(),
	}
}

// RegisterRoutes attaches the login flow. These routes sit outside the
// authenticated group.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/google/login", s.login)
	rg.GET("/auth/google/callback", s.callback)
}

// login hands the client the Google consent URL for this flow.
func (s *GoogleService) login(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth is not configured", nil)
		return
	}

	state := uuid.NewString()
	s.states.put(state, time.Now().Add(s.stateTTL))

	respond.OK(c, gin.H{
		"auth_url": s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline),
	})
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !s.states.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil || profile.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	userID := "google:" + profile.Sub
	if err := s.users.UpsertFromAuth(ctx, users.User{
		ID:    userID,
		Email: profile.Email,
		Name:  profile.Name,
	}); err != nil {
		telemetry.Error("auth.upsert_user", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	jwt, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:   userID,
		Email: profile.Email,
		Name:  profile.Name,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token", nil)
		return
	}

	if s.uiRedirect == "" {
		respond.OK(c, gin.H{"token": jwt})
		return
	}
	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

type googleProfile struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return googleProfile{}, err
	}
	// Some responses use "id" instead of "sub".
	if profile.Sub == "" {
		profile.Sub = profile.ID
	}
	return profile, nil
}

// stateStore holds pending OAuth states until the callback consumes them.
type stateStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	s.items[state] = exp
	s.mu.Unlock()
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && time.Now().Before(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
