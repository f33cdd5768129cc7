package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paperifyhq/paperify/internal/session"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
)

func (s *Server) Register(c *gin.Context) {
	var req userdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	u, err := s.userSvc.Register(c.Request.Context(), req)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	token, err := s.sessions.Create(c.Request.Context(), session.Data{
		UserID: int64(u.ID),
		Email:  u.Email,
	})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	respondData(c, gin.H{"token": token, "user": u})
}

func (s *Server) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, ErrInvalidRequest)
		return
	}

	u, err := s.userSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	token, err := s.sessions.Create(c.Request.Context(), session.Data{
		UserID: int64(u.ID),
		Email:  u.Email,
	})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	s.setSessionCookie(c, token)
	respondData(c, gin.H{"token": token, "user": u})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := currentToken(c); ok {
		if err := s.sessions.Delete(c.Request.Context(), token); err != nil {
			s.log.Warn("session delete failed", zap.Error(err))
		}
	}
	s.clearSessionCookie(c)
	respondData(c, gin.H{"logged_out": true})
}

func (s *Server) Me(c *gin.Context) {
	data, ok := currentSession(c)
	if !ok {
		s.AbortWithError(c, ErrUnauthorized)
		return
	}

	u, err := s.userSvc.FindByEmail(c.Request.Context(), data.Email)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	if u == nil {
		s.AbortWithError(c, userdomain.ErrUserNotFound)
		return
	}
	respondData(c, gin.H{"user": u, "is_admin": s.isAdmin(data.Email)})
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(sessionCookie, token, int(s.cfg.Server.SessionTTL.Seconds()), "/", "", s.cfg.IsProduction(), true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", s.cfg.IsProduction(), true)
}
