package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
)

var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("admin access required")
	ErrInvalidRequest = errors.New("invalid request body")
)

// statusFor maps domain sentinels onto HTTP statuses. Everything mapped
// here is recoverable at the request boundary; anything else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, userdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, paymentlinkdomain.ErrLinkNotFound),
		errors.Is(err, userdomain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentlinkdomain.ErrLinkExpired),
		errors.Is(err, paymentlinkdomain.ErrAlreadyProcessed),
		errors.Is(err, paymentlinkdomain.ErrSignatureMismatch),
		errors.Is(err, paymentlinkdomain.ErrInvalidPlan),
		errors.Is(err, paymentlinkdomain.ErrInvalidBookCount),
		errors.Is(err, paymentlinkdomain.ErrInvalidTransactionID),
		errors.Is(err, paymentlinkdomain.ErrTransactionUsed),
		errors.Is(err, paymentlinkdomain.ErrInvalidTransition),
		errors.Is(err, referraldomain.ErrCodeRequired),
		errors.Is(err, referraldomain.ErrAlreadyReferred),
		errors.Is(err, referraldomain.ErrSelfReferral),
		errors.Is(err, referraldomain.ErrProfileNotFound),
		errors.Is(err, subscriptiondomain.ErrLinkNotCompleted),
		errors.Is(err, subscriptiondomain.ErrNoSubscription),
		errors.Is(err, subscriptiondomain.ErrBookRequired),
		errors.Is(err, userdomain.ErrUserExists):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) AbortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"success": false, "error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": err.Error()})
}
