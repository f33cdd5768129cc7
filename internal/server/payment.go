package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
)

func (s *Server) CreatePaymentLink(c *gin.Context) {
	data, _ := currentSession(c)

	var req struct {
		Plan          string   `json:"plan"`
		Books         []string `json:"books"`
		ApplyDiscount bool     `json:"apply_discount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.linkSvc.Create(c.Request.Context(), paymentlinkdomain.CreateRequest{
		UserEmail:     data.Email,
		Plan:          req.Plan,
		Books:         req.Books,
		ApplyDiscount: req.ApplyDiscount,
	})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// GetPaymentLink is the public checkout view: signature and expiry are
// verified on every read.
func (s *Server) GetPaymentLink(c *gin.Context) {
	details, err := s.linkSvc.Verify(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, details)
}

func (s *Server) SubmitPaymentProof(c *gin.Context) {
	var req struct {
		TransactionID string `json:"transaction_id"`
		ScreenshotRef string `json:"screenshot_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.linkSvc.SubmitProof(c.Request.Context(), c.Param("linkId"), req.TransactionID, req.ScreenshotRef); err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"status": paymentlinkdomain.StatusPendingVerification})
}

// ConfirmPayment is the manual verification step: it completes the link,
// activates the subscription, and credits the referrer, in that order.
// CreditReferrer failures do not roll back the activation; they are
// logged and the credit is retried on a later confirm of the same user.
func (s *Server) ConfirmPayment(c *gin.Context) {
	ctx := c.Request.Context()
	linkID := c.Param("linkId")

	details, err := s.linkSvc.Verify(ctx, linkID)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	if details.Status != paymentlinkdomain.StatusPendingVerification {
		s.AbortWithError(c, paymentlinkdomain.ErrInvalidTransition)
		return
	}

	if err := s.linkSvc.MarkComplete(ctx, linkID); err != nil {
		s.AbortWithError(c, err)
		return
	}

	grant, err := s.subscriptionSvc.Activate(ctx, linkID)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	credit, err := s.referralSvc.CreditReferrer(ctx, grant.UserEmail)
	if err != nil {
		s.log.Warn("referral credit failed",
			zap.String("email", grant.UserEmail), zap.Error(err))
	}

	s.metrics.ObservePaymentConfirmed()
	respondData(c, gin.H{"subscription": grant, "referral_credit": credit})
}
