package server

import (
	"errors"
	"io"
	"net/http"

	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

func (s *Server) registerWebhookRoutes() {
	// Registered without body-parsing middleware: verification needs
	// the exact bytes the provider signed.
	s.engine.POST("/billing/webhook", s.HandleBillingWebhook)
}

func (s *Server) HandleBillingWebhook(c *gin.Context) {
	if s.webhookLimiter != nil {
		result, err := s.webhookLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err == nil && !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "/billing/webhook")
			c.Header("Retry-After", result.RetryAfter.String())
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil || len(payload) == 0 || len(payload) > maxWebhookBody {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	err = s.billingSvc.Apply(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		c.AbortWithStatus(http.StatusUnauthorized)
	case errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrUnknownEventType):
		// Acknowledged so the provider does not retry an unfixable
		// payload forever.
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		// Transient failure: a 5xx asks the provider to redeliver.
		c.AbortWithStatus(http.StatusServiceUnavailable)
	}
}
