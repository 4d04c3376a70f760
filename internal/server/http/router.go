// Package http exposes the auth service as the JSON/redirect API under
// /api/users.
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/janndizz/test-plogg/internal/logging"
)

const verifyEmailPrefix = "/api/users/verify-email/"

type RouterOptions struct {
	FrontendURL    string
	ServiceName    string
	TracerProvider trace.TracerProvider
	Logger         logging.Logger
}

// NewRouter wires the routes and middleware.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(opts.Logger))
	r.Use(CORS(opts.FrontendURL))
	if opts.TracerProvider != nil {
		r.Use(otelgin.Middleware(opts.ServiceName,
			otelgin.WithTracerProvider(opts.TracerProvider),
			otelgin.WithFilter(notVerifyLink),
		))
	}

	r.GET("/", h.Index)
	r.GET("/health", h.Health)

	api := r.Group("/api/users")
	{
		api.POST("/register", h.Register)
		api.GET("/verify-email/:token", h.VerifyEmail)
		api.POST("/login", h.Login)
		api.POST("/resend-verification", h.ResendVerification)
		api.POST("/google-auth", h.GoogleAuth)
		api.GET("/profile", h.Profile)
	}

	return r
}

// notVerifyLink keeps raw verification tokens out of span attributes.
func notVerifyLink(r *http.Request) bool {
	return !strings.HasPrefix(r.URL.Path, verifyEmailPrefix)
}
