package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/paymentlink/domain"
	"github.com/paperifyhq/paperify/internal/plan"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minTransactionIDLen = 6

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	signer  *Signer
	catalog *plan.Catalog
	linkTTL time.Duration
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Signer  *Signer
	Catalog *plan.Catalog
	Config  config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("paymentlink.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		signer:  p.Signer,
		catalog: p.Catalog,
		linkTTL: p.Config.Payment.LinkTTL,
	}
}

// Create issues a signed, time-limited link for one purchase attempt.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.CreateResponse, error) {
	email := normalizeEmail(req.UserEmail)

	p, ok := s.catalog.Lookup(req.Plan)
	if !ok {
		return domain.CreateResponse{}, domain.ErrInvalidPlan
	}
	if p.RequiredBooks > 0 && len(req.Books) != p.RequiredBooks {
		return domain.CreateResponse{}, domain.ErrInvalidBookCount
	}

	amount := p.Amount
	if req.ApplyDiscount {
		amount = p.DiscountAmount
	}

	now := s.clock.Now(ctx)
	linkID := strings.ToLower(ulid.Make().String())
	books, err := json.Marshal(req.Books)
	if err != nil {
		return domain.CreateResponse{}, err
	}
	if req.Books == nil {
		books = []byte("[]")
	}

	link := &domain.PaymentLink{
		ID:        s.genID.Generate(),
		LinkID:    linkID,
		UserEmail: email,
		Plan:      p.Key,
		Amount:    amount,
		Books:     datatypes.JSON(books),
		Signature: s.signer.Sign(linkID, email, p.Key, amount),
		Status:    domain.StatusPendingPayment,
		CreatedAt: now,
		ExpiresAt: now.Add(s.linkTTL),
	}
	if err := s.repo.Insert(ctx, nil, link); err != nil {
		return domain.CreateResponse{}, err
	}

	s.log.Info("payment link created",
		zap.String("link_id", linkID),
		zap.String("plan", p.Key),
		zap.Int64("amount", amount))

	return domain.CreateResponse{
		LinkID:          linkID,
		Plan:            p.Key,
		Amount:          amount,
		OriginalAmount:  p.Amount,
		DiscountApplied: req.ApplyDiscount,
		ExpiresAt:       link.ExpiresAt,
	}, nil
}

// Verify re-checks expiry, terminal status and the stored signature before
// exposing a link's public fields.
func (s *Service) Verify(ctx context.Context, linkID string) (domain.LinkDetails, error) {
	link, err := s.repo.FindByLinkID(ctx, nil, linkID)
	if err != nil {
		return domain.LinkDetails{}, err
	}
	if link == nil {
		return domain.LinkDetails{}, domain.ErrLinkNotFound
	}

	now := s.clock.Now(ctx)
	if !now.Before(link.ExpiresAt) {
		return domain.LinkDetails{}, domain.ErrLinkExpired
	}
	if link.Status == domain.StatusCompleted {
		return domain.LinkDetails{}, domain.ErrAlreadyProcessed
	}
	if !s.signer.Validate(link) {
		s.log.Warn("payment link failed signature validation", zap.String("link_id", linkID))
		return domain.LinkDetails{}, domain.ErrSignatureMismatch
	}

	return domain.LinkDetails{
		LinkID:    link.LinkID,
		UserEmail: link.UserEmail,
		Plan:      link.Plan,
		Amount:    link.Amount,
		Books:     decodeBooks(link.Books),
		Status:    link.Status,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// SubmitProof records the user's transaction id and screenshot reference
// after the receipt-reuse check and link verification both pass.
func (s *Service) SubmitProof(ctx context.Context, linkID, transactionID, screenshotRef string) error {
	transactionID = strings.TrimSpace(transactionID)
	if len(transactionID) < minTransactionIDLen {
		return domain.ErrInvalidTransactionID
	}

	used, err := s.repo.TransactionIDExists(ctx, nil, transactionID)
	if err != nil {
		return err
	}
	if used {
		return domain.ErrTransactionUsed
	}

	if _, err := s.Verify(ctx, linkID); err != nil {
		return err
	}

	ok, err := s.repo.RecordProof(ctx, nil, linkID, transactionID, screenshotRef, s.clock.Now(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}

	s.log.Info("payment proof submitted", zap.String("link_id", linkID))
	return nil
}

// MarkComplete is the admin-confirmed transition. Completed is terminal, so
// a second call (or a call on a link without proof) is rejected.
func (s *Service) MarkComplete(ctx context.Context, linkID string) error {
	ok, err := s.repo.Complete(ctx, nil, linkID, s.clock.Now(ctx))
	if err != nil {
		return err
	}
	if ok {
		s.log.Info("payment marked complete", zap.String("link_id", linkID))
		return nil
	}

	link, err := s.repo.FindByLinkID(ctx, nil, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return domain.ErrLinkNotFound
	}
	return domain.ErrInvalidTransition
}

func (s *Service) ListPendingVerification(ctx context.Context) ([]domain.PaymentLink, error) {
	return s.repo.ListByStatus(ctx, nil, domain.StatusPendingVerification)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
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
