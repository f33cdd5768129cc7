package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paperifyhq/paperify/internal/clock"
	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	"github.com/paperifyhq/paperify/internal/plan"
	"github.com/paperifyhq/paperify/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	linkRepo paymentlinkdomain.Repository
	catalog  *plan.Catalog
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	LinkRepo paymentlinkdomain.Repository
	Catalog  *plan.Catalog
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		linkRepo: p.LinkRepo,
		catalog:  p.Catalog,
	}
}

func (s *Service) Activate(ctx context.Context, linkID string) (domain.Grant, error) {
	link, err := s.linkRepo.FindByLinkID(ctx, nil, linkID)
	if err != nil {
		return domain.Grant{}, err
	}
	if link == nil {
		return domain.Grant{}, paymentlinkdomain.ErrLinkNotFound
	}
	if link.Status != paymentlinkdomain.StatusCompleted {
		return domain.Grant{}, domain.ErrLinkNotCompleted
	}

	now := s.clock.Now(ctx)
	days := s.catalog.DurationDays(link.Plan)
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	books := link.Books
	if len(books) == 0 {
		books = datatypes.JSON([]byte("[]"))
	}

	sub := &domain.Subscription{
		ID:        s.genID.Generate(),
		Email:     link.UserEmail,
		Plan:      link.Plan,
		Books:     books,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, nil, sub); err != nil {
		return domain.Grant{}, err
	}

	s.log.Info("subscription activated",
		zap.String("email", link.UserEmail),
		zap.String("plan", link.Plan),
		zap.Time("expires_at", expiresAt))

	return domain.Grant{
		UserEmail: link.UserEmail,
		Plan:      link.Plan,
		Books:     decodeBooks(books),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Get(ctx context.Context, email string) (domain.View, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	sub, err := s.repo.FindByEmail(ctx, nil, email)
	if err != nil {
		return domain.View{}, err
	}
	if sub == nil {
		return domain.View{}, domain.ErrNoSubscription
	}

	now := s.clock.Now(ctx)
	view := domain.View{
		Plan:      sub.Plan,
		Books:     decodeBooks(sub.Books),
		ExpiresAt: sub.ExpiresAt,
		Status:    domain.StatusActive,
	}
	if !now.Before(sub.ExpiresAt) {
		view.Status = domain.StatusExpired
		return view, nil
	}
	view.DaysRemaining = int(math.Ceil(sub.ExpiresAt.Sub(now).Hours() / 24))
	return view, nil
}

func (s *Service) LockBook(ctx context.Context, email, book string) (domain.View, error) {
	book = strings.TrimSpace(book)
	if book == "" {
		return domain.View{}, domain.ErrBookRequired
	}

	view, err := s.Get(ctx, email)
	if err != nil {
		return domain.View{}, err
	}
	if !view.Active() {
		return domain.View{}, domain.ErrNoSubscription
	}

	p, ok := s.catalog.Lookup(view.Plan)
	if !ok || p.RequiredBooks == 0 {
		// Book lock only applies to book-restricted plans.
		return view, nil
	}

	books, err := json.Marshal([]string{book})
	if err != nil {
		return domain.View{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.repo.UpdateBooks(ctx, nil, email, books, s.clock.Now(ctx)); err != nil {
		return domain.View{}, err
	}

	view.Books = []string{book}
	return view, nil
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.repo.DeleteExpired(ctx, nil, s.clock.Now(ctx))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info("purged expired subscriptions", zap.Int64("count", purged))
	}
	return purged, nil
}

func decodeBooks(raw datatypes.JSON) []string {
	var books []string
	if len(raw) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(raw, &books); err != nil || books == nil {
		return []string{}
	}
	return books
}
