package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janndizz/test-plogg/internal/common"
)

var statusByKind = map[common.Kind]int{
	common.KindValidation:              http.StatusBadRequest,
	common.KindDuplicateEmail:          http.StatusBadRequest,
	common.KindAlreadyVerified:         http.StatusBadRequest,
	common.KindInvalidOrExpiredToken:   http.StatusBadRequest,
	common.KindInvalidCredentials:      http.StatusUnauthorized,
	common.KindOAuthOnlyAccount:        http.StatusUnauthorized,
	common.KindEmailNotVerified:        http.StatusUnauthorized,
	common.KindOAuthVerificationFailed: http.StatusUnauthorized,
	common.KindMissingToken:            http.StatusUnauthorized,
	common.KindInvalidToken:            http.StatusUnauthorized,
	common.KindNotFound:                http.StatusNotFound,
	common.KindInternal:                http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind common.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	e := common.AsError(err)
	c.JSON(StatusFor(e.Kind), gin.H{
		"success": false,
		"message": e.Message,
		"kind":    e.Kind,
	})
}
