package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/paperifyhq/paperify/internal/clock"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	"github.com/paperifyhq/paperify/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	referral referraldomain.Service
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Referral referraldomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		referral: p.Referral,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.repo.FindByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	var hash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(hashed)
	}

	books, err := json.Marshal(req.PreferredBooks)
	if err != nil {
		return nil, err
	}
	if req.PreferredBooks == nil {
		books = []byte("[]")
	}

	user := &domain.User{
		ID:             s.genID.Generate(),
		Email:          email,
		PasswordHash:   hash,
		Name:           req.Name,
		Subject:        req.Subject,
		Age:            req.Age,
		Institution:    req.Institution,
		Country:        req.Country,
		PreferredBooks: datatypes.JSON(books),
		CreatedAt:      s.clock.Now(ctx),
	}
	if err := s.repo.Insert(ctx, nil, user); err != nil {
		return nil, err
	}

	if _, err := s.referral.EnsureProfile(ctx, email); err != nil {
		return nil, err
	}
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		// Best effort: a bad code must not fail registration.
		if err := s.referral.ApplyCode(ctx, email, code); err != nil {
			s.log.Warn("referral code rejected at registration",
				zap.String("email", email), zap.Error(err))
		}
	}

	s.log.Info("user registered", zap.String("email", email))
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.referral.EnsureProfile(ctx, user.Email); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
