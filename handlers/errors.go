package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/marketplace"
)

// respondError maps marketplace errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, marketplace.ErrValidation):
		status = http.StatusBadRequest
		msg = strings.TrimPrefix(err.Error(), marketplace.ErrValidation.Error()+": ")
	case errors.Is(err, marketplace.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, marketplace.ErrSelfReferral):
		status, msg = http.StatusForbidden, "you cannot share your own listing"
	case errors.Is(err, marketplace.ErrAlreadyConverted):
		status, msg = http.StatusConflict, "this prospect has already been converted"
	case errors.Is(err, marketplace.ErrProspectRejected):
		status, msg = http.StatusConflict, "this prospect was rejected"
	case errors.Is(err, marketplace.ErrListingNotActive):
		status, msg = http.StatusConflict, "this listing is no longer active"
	default:
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
