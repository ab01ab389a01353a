package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/api"
	"github.com/charlesng35/itemhub/internal/app"
	iauth "github.com/charlesng35/itemhub/internal/auth"
	sharedtestutil "github.com/charlesng35/itemhub/internal/database/testutil"
	"github.com/charlesng35/itemhub/internal/middleware"
	"github.com/charlesng35/itemhub/internal/models"
	"github.com/charlesng35/itemhub/pkg/crypto"
	"github.com/charlesng35/itemhub/pkg/response"
)

const (
	// SuperuserEmail and SuperuserPassword identify the account seeded into every Env.
	SuperuserEmail    = "admin@example.com"
	SuperuserPassword = "changethis"
	// DefaultFingerprint is the device fingerprint used by Login.
	DefaultFingerprint = "test-device"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Config   *app.Config
	Sessions *iauth.SessionService
	Codec    *iauth.TokenCodec
}

// EnvOption adjusts the configuration used to build an Env.
type EnvOption func(*app.Config)

// WithOpenRegistration enables POST /api/v1/users/open.
func WithOpenRegistration() EnvOption {
	return func(cfg *app.Config) {
		cfg.Auth.UsersOpenRegistration = true
	}
}

// WithRateLimit enables the global rate limiter.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations and a seeded superuser.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSuperuser(SuperuserEmail, SuperuserPassword))

	cfg := &app.Config{
		Server: app.ServerConfig{
			CORSOrigins: []string{"*"},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL: 24 * time.Hour,
			},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	codec, err := iauth.NewTokenCodec(cfg.Auth.TokenConfig())
	require.NoError(t, err)

	store, err := iauth.NewGormSessionStore(db)
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(store, codec, iauth.SessionConfig{})
	require.NoError(t, err)

	router, err := api.NewRouter(db, cfg, sessions, middleware.NewMemoryRateStore())
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Config:   cfg,
		Sessions: sessions,
		Codec:    codec,
	}
}

// CreateUser inserts a new user with a random email and returns the record.
func (e *Env) CreateUser(password string, superuser bool) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Email:          "user-" + uuid.NewString() + "@example.com",
		HashedPassword: hashed,
		FullName:       "Test User",
		IsActive:       true,
		IsSuperuser:    superuser,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// DeactivateUser flips is_active to false.
func (e *Env) DeactivateUser(user *models.User) {
	e.T.Helper()
	require.NoError(e.T, e.DB.Model(user).Update("is_active", false).Error)
	user.IsActive = false
}

// TokenPair mirrors the token payload returned by the login endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login authenticates with the default fingerprint and returns the issued token pair.
func (e *Env) Login(email, password string) TokenPair {
	e.T.Helper()
	return e.LoginFrom(email, password, DefaultFingerprint)
}

// LoginFrom authenticates from a specific device fingerprint.
func (e *Env) LoginFrom(email, password, fingerprint string) TokenPair {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/v1/login/", map[string]string{
		"username":    email,
		"password":    password,
		"fingerprint": fingerprint,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var pair TokenPair
	DecodeInto(e.T, resp.Data, &pair)
	require.NotEmpty(e.T, pair.AccessToken)
	require.NotEmpty(e.T, pair.RefreshToken)
	require.Equal(e.T, "bearer", pair.TokenType)
	return pair
}

// LoginSuperuser logs in as the seeded superuser.
func (e *Env) LoginSuperuser() TokenPair {
	e.T.Helper()
	return e.Login(SuperuserEmail, SuperuserPassword)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// RequestForm submits an application/x-www-form-urlencoded body.
func (e *Env) RequestForm(method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	req, err := http.NewRequest(method, path, strings.NewReader(form.Encode()))
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
