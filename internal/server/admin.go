package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultOverrideDuration = time.Hour
	maxOverrideDuration     = 24 * time.Hour
)

func (s *Server) PendingPayments(c *gin.Context) {
	links, err := s.linkSvc.ListPendingVerification(c.Request.Context())
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"payments": links, "count": len(links)})
}

// TempUnlimited grants an account a short-lived unlimited override. The
// grant lives in the session store and leaves the referral and
// subscription ledgers untouched.
func (s *Server) TempUnlimited(c *gin.Context) {
	var req struct {
		Email           string `json:"email"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	d := time.Duration(req.DurationMinutes) * time.Minute
	if d <= 0 {
		d = defaultOverrideDuration
	}
	if d > maxOverrideDuration {
		d = maxOverrideDuration
	}

	until := time.Now().UTC().Add(d)
	if err := s.sessions.SetOverride(c.Request.Context(), req.Email, until); err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"email": req.Email, "until": until})
}
