package server

import (
	"github.com/gin-gonic/gin"

	entitlementdomain "github.com/paperifyhq/paperify/internal/entitlement/domain"
)

// identity resolves the entitlement subject for a demo endpoint. Logged-in
// users are keyed by email and carry their session override; everyone else
// is a guest keyed by the client-supplied id. Overrides never apply to
// guests.
func (s *Server) identity(c *gin.Context, userID string) entitlementdomain.Identity {
	if data, ok := currentSession(c); ok {
		return entitlementdomain.Identity{
			Key:                data.Email,
			TempUnlimitedUntil: data.OverrideExpiry(),
		}
	}
	if userID == "" {
		userID = "guest"
	}
	return entitlementdomain.Identity{Key: userID, Guest: true}
}

func (s *Server) DemoCheck(c *gin.Context) {
	id := s.identity(c, c.Query("userId"))

	decision, err := s.entitlementSvc.Check(c.Request.Context(), id)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	s.respondDecision(c, decision)
}

func (s *Server) DemoTrack(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id"`
	}
	// body is optional for guests tracking anonymously
	_ = c.ShouldBindJSON(&req)

	id := s.identity(c, req.UserID)

	decision, err := s.entitlementSvc.Track(c.Request.Context(), id)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	s.respondDecision(c, decision)
}

func (s *Server) respondDecision(c *gin.Context, d entitlementdomain.Decision) {
	s.metrics.ObserveDecision(d)
	respondData(c, gin.H{
		"allowed":   d.Allowed(),
		"unlimited": d.Mode == entitlementdomain.ModeUnlimited,
		"reason":    d.Reason,
		"count":     d.Count,
		"limit":     d.Limit,
	})
}
