package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	data, _ := currentSession(c)

	view, err := s.subscriptionSvc.Get(c.Request.Context(), data.Email)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrNoSubscription) {
			respondData(c, gin.H{"subscription": nil})
			return
		}
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{
		"subscription":   view,
		"is_active":      view.Active(),
		"days_remaining": view.DaysRemaining,
	})
}

func (s *Server) LockBook(c *gin.Context) {
	data, _ := currentSession(c)

	var req struct {
		Book string `json:"book"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	view, err := s.subscriptionSvc.LockBook(c.Request.Context(), data.Email, req.Book)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"subscription": view})
}
