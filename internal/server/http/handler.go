package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/janndizz/test-plogg/internal/server/services"
)

// AuthService is the account API the handlers call into.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	VerifyEmail(ctx context.Context, rawToken string) (*services.VerifyResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	ResendVerification(ctx context.Context, email string) (*services.ResendResult, error)
	OAuthLogin(ctx context.Context, providerToken string) (*services.LoginResult, error)
	GetProfile(ctx context.Context, sessionToken string) (*models.Profile, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	auth        AuthService
	db          Pinger
	frontendURL string
	logger      logging.Logger
	now         func() time.Time
}

func NewHandler(auth AuthService, db Pinger, frontendURL string, logger logging.Logger) *Handler {
	return &Handler{
		auth:        auth,
		db:          db,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type googleAuthRequest struct {
	Token string `json:"token"`
}

var errBadBody = common.Validation("invalid request body")

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":              true,
		"message":              res.Message,
		"requiresVerification": res.RequiresVerification,
		"userEmail":            res.Email,
	})
}

// VerifyEmail redirects the browser to the frontend either way.
func (h *Handler) VerifyEmail(c *gin.Context) {
	res, err := h.auth.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		q := url.Values{"message": {common.AsError(err).Message}}
		c.Redirect(http.StatusFound, h.frontendURL+"/verify-email-error?"+q.Encode())
		return
	}

	q := url.Values{"verified": {"true"}, "email": {res.Email}}
	c.Redirect(http.StatusFound, h.frontendURL+"/login?"+q.Encode())
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": res.Token, "user": res.User})
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	res, err := h.auth.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message})
}

func (h *Handler) GoogleAuth(c *gin.Context) {
	var req googleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	res, err := h.auth.OAuthLogin(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": res.Token, "user": res.User})
}

func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.auth.GetProfile(c.Request.Context(), bearerToken(c.GetHeader(common.AuthorizationHeaderName)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}

// bearerToken returns the second word of an "Authorization: Bearer <token>"
// header, or "" when there is none.
func bearerToken(header string) string {
	_, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	return strings.TrimSpace(token)
}

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "User API is running!",
		"endpoints": gin.H{
			"register":           "POST /api/users/register",
			"verifyEmail":        "GET /api/users/verify-email/:token",
			"login":              "POST /api/users/login",
			"resendVerification": "POST /api/users/resend-verification",
			"googleAuth":         "POST /api/users/google-auth",
			"profile":            "GET /api/users/profile",
			"health":             "GET /health",
		},
	})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, database, code := "OK", "Connected", http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn(ctx, "health: database ping failed", "error", err)
			status, database, code = "DEGRADED", "Disconnected", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"database":  database,
	})
}
