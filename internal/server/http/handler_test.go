package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/janndizz/test-plogg/internal/server/services"
)

const frontend = "http://front.test"

type fakeAuth struct {
	registerIn services.RegisterInput
	register   func() (*services.RegisterResult, error)
	verify     func(token string) (*services.VerifyResult, error)
	login      func(email, password string) (*services.LoginResult, error)
	resend     func(email string) (*services.ResendResult, error)
	oauth      func(token string) (*services.LoginResult, error)
	profile    func(token string) (*models.Profile, error)
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	f.registerIn = in
	return f.register()
}

func (f *fakeAuth) VerifyEmail(_ context.Context, token string) (*services.VerifyResult, error) {
	return f.verify(token)
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	return f.login(email, password)
}

func (f *fakeAuth) ResendVerification(_ context.Context, email string) (*services.ResendResult, error) {
	return f.resend(email)
}

func (f *fakeAuth) OAuthLogin(_ context.Context, token string) (*services.LoginResult, error) {
	return f.oauth(token)
}

func (f *fakeAuth) GetProfile(_ context.Context, token string) (*models.Profile, error) {
	return f.profile(token)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, auth AuthService, db Pinger) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewZapLogger(zap.New(core))
	h := NewHandler(auth, db, frontend+"/", logger)
	return NewRouter(h, RouterOptions{FrontendURL: frontend, Logger: logger}), logs
}

func do(r http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var ada = models.PublicUser{ID: "u1", Email: "a@x.com", FullName: "A B", FirstName: "A", LastName: "B", EmailVerified: true}

func TestRegisterHandler(t *testing.T) {
	auth := &fakeAuth{register: func() (*services.RegisterResult, error) {
		return &services.RegisterResult{Message: "check your inbox", RequiresVerification: true, Email: "a@x.com"}, nil
	}}
	r, _ := newTestRouter(t, auth, nil)

	w := do(r, http.MethodPost, "/api/users/register",
		`{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1"}`, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "check your inbox", body["message"])
	assert.Equal(t, true, body["requiresVerification"])
	assert.Equal(t, "a@x.com", body["userEmail"])
	assert.NotContains(t, body, "token")
	assert.Equal(t, services.RegisterInput{FirstName: "A", LastName: "B", Email: "a@x.com", Password: "secret1"}, auth.registerIn)
}

func TestRegisterHandler_BadBody(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAuth{}, nil)

	w := do(r, http.MethodPost, "/api/users/register", `{"firstName":`, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(common.KindValidation), body["kind"])
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.Validation("all fields are required"), http.StatusBadRequest},
		{common.ErrDuplicateEmail, http.StatusBadRequest},
		{common.ErrAlreadyVerified, http.StatusBadRequest},
		{common.ErrInvalidCredentials, http.StatusUnauthorized},
		{common.ErrOAuthOnlyAccount, http.StatusUnauthorized},
		{common.ErrEmailNotVerified, http.StatusUnauthorized},
		{common.ErrOAuthVerificationFailed, http.StatusUnauthorized},
		{common.ErrUserNotFound, http.StatusNotFound},
		{common.ErrInternal, http.StatusInternalServerError},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			auth := &fakeAuth{login: func(string, string) (*services.LoginResult, error) { return nil, tt.err }}
			r, _ := newTestRouter(t, auth, nil)

			w := do(r, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"secret1"}`, nil)

			require.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			e := common.AsError(tt.err)
			assert.Equal(t, e.Message, body["message"])
			assert.Equal(t, string(e.Kind), body["kind"])
		})
	}
}

func TestLoginAndGoogleAuthHandlers(t *testing.T) {
	auth := &fakeAuth{
		login: func(email, password string) (*services.LoginResult, error) {
			assert.Equal(t, "a@x.com", email)
			assert.Equal(t, "secret1", password)
			return &services.LoginResult{Token: "jwt-1", User: ada}, nil
		},
		oauth: func(token string) (*services.LoginResult, error) {
			assert.Equal(t, "google-id-token", token)
			return &services.LoginResult{Token: "jwt-2", User: ada}, nil
		},
	}
	r, _ := newTestRouter(t, auth, nil)

	w := do(r, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "jwt-1", body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "A B", user["fullName"])
	assert.NotContains(t, user, "passwordHash")

	w = do(r, http.MethodPost, "/api/users/google-auth", `{"token":"google-id-token"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jwt-2", decode(t, w)["token"])
}

func TestResendHandler(t *testing.T) {
	auth := &fakeAuth{resend: func(email string) (*services.ResendResult, error) {
		if email == "done@x.com" {
			return nil, common.ErrAlreadyVerified
		}
		return &services.ResendResult{Message: "Verification email sent"}, nil
	}}
	r, _ := newTestRouter(t, auth, nil)

	w := do(r, http.MethodPost, "/api/users/resend-verification", `{"email":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Verification email sent", decode(t, w)["message"])

	w = do(r, http.MethodPost, "/api/users/resend-verification", `{"email":"done@x.com"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(common.KindAlreadyVerified), decode(t, w)["kind"])
}

func TestVerifyEmailHandler_Redirects(t *testing.T) {
	auth := &fakeAuth{verify: func(token string) (*services.VerifyResult, error) {
		if token == "good" {
			return &services.VerifyResult{Message: "ok", Email: "a+b@x.com"}, nil
		}
		return nil, common.ErrInvalidOrExpiredToken
	}}
	r, logs := newTestRouter(t, auth, nil)

	w := do(r, http.MethodGet, "/api/users/verify-email/good", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("verified"))
	assert.Equal(t, "a+b@x.com", loc.Query().Get("email"))
	assert.True(t, strings.HasPrefix(loc.String(), frontend+"/login?"))

	w = do(r, http.MethodGet, "/api/users/verify-email/bad", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/verify-email-error", loc.Path)
	assert.Equal(t, common.ErrInvalidOrExpiredToken.Message, loc.Query().Get("message"))

	// tokens never reach the access log
	for _, entry := range logs.FilterMessage("http_request").All() {
		assert.Equal(t, "/api/users/verify-email/:token", entry.ContextMap()["route"])
		for _, v := range entry.ContextMap() {
			if s, ok := v.(string); ok {
				assert.NotContains(t, s, "good")
			}
		}
	}
}

func TestProfileHandler(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	auth := &fakeAuth{profile: func(token string) (*models.Profile, error) {
		switch token {
		case "":
			return nil, common.ErrMissingToken
		case "jwt-1":
			return &models.Profile{PublicUser: ada, CreatedAt: created}, nil
		default:
			return nil, common.ErrInvalidToken
		}
	}}
	r, _ := newTestRouter(t, auth, nil)

	w := do(r, http.MethodGet, "/api/users/profile", "", map[string]string{"Authorization": "Bearer jwt-1"})
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "u1", user["id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", user["createdAt"])

	w = do(r, http.MethodGet, "/api/users/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(common.KindMissingToken), decode(t, w)["kind"])

	w = do(r, http.MethodGet, "/api/users/profile", "", map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(common.KindInvalidToken), decode(t, w)["kind"])
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("  Bearer   abc "))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken(""))
}

func TestIndexAndHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	r, _ := newTestRouter(t, &fakeAuth{}, db)

	w := do(r, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["endpoints"], "register")

	mock.ExpectPing()
	w = do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Connected", decode(t, w)["database"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w = do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Disconnected", decode(t, w)["database"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_PingerFunc(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAuth{}, pingFunc(func(context.Context) error { return nil }))

	w := do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", decode(t, w)["status"])
}
