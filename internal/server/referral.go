package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) ReferralStatus(c *gin.Context) {
	data, _ := currentSession(c)

	status, err := s.referralSvc.Status(c.Request.Context(), data.Email)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, status)
}

func (s *Server) ApplyReferralCode(c *gin.Context) {
	data, _ := currentSession(c)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.referralSvc.ApplyCode(c.Request.Context(), data.Email, req.Code); err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"applied": true})
}
