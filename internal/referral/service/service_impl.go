package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	codeBaseLen     = 6
	codeSuffixLen   = 4
	codeSuffixChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Retry budget for unique-code collisions and paid-set CAS races.
	maxAttempts = 3
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository

	unlockThreshold int
	freePaperLimit  int64
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Config config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("referral.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		unlockThreshold: p.Config.Limits.ReferralUnlock,
		freePaperLimit:  p.Config.Limits.ReferralFreePapers,
	}
}

func (s *Service) EnsureProfile(ctx context.Context, email string) (*domain.Profile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.ErrProfileNotFound
	}

	profile, err := s.repo.FindByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	now := s.clock.Now(ctx)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.generateCode(email)
		if err != nil {
			return nil, err
		}
		insertErr := s.repo.Insert(ctx, nil, &domain.Profile{
			ID:                s.genID.Generate(),
			Email:             email,
			ReferralCode:      code,
			PaidReferralUsers: datatypes.JSON([]byte("[]")),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if insertErr == nil {
			break
		}
		// Retry only on referral-code collisions; the email conflict
		// is absorbed by the insert itself.
		if attempt == maxAttempts-1 {
			return nil, insertErr
		}
	}

	profile, err = s.repo.FindByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) ApplyCode(ctx context.Context, email, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.ErrCodeRequired
	}

	profile, err := s.repo.FindByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		return err
	}
	if profile == nil {
		return domain.ErrProfileNotFound
	}
	if profile.ReferredBy != nil {
		return domain.ErrAlreadyReferred
	}
	if profile.ReferralCode == code {
		return domain.ErrSelfReferral
	}

	ok, err := s.repo.SetReferredBy(ctx, nil, profile.Email, code, s.clock.Now(ctx))
	if err != nil {
		return err
	}
	if !ok {
		// Lost a first-write-wins race; the stored value stands.
		return domain.ErrAlreadyReferred
	}

	s.log.Info("referral code applied", zap.String("email", profile.Email), zap.String("code", code))
	return nil
}

func (s *Service) CreditReferrer(ctx context.Context, paidEmail string) (domain.CreditResult, error) {
	paidEmail = normalizeEmail(paidEmail)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		paid, err := s.repo.FindByEmail(ctx, nil, paidEmail)
		if err != nil {
			return domain.CreditResult{}, err
		}
		if paid == nil || paid.ReferredBy == nil {
			return domain.CreditResult{Credited: false}, nil
		}

		referrer, err := s.repo.FindByCode(ctx, nil, *paid.ReferredBy)
		if err != nil {
			return domain.CreditResult{}, err
		}
		if referrer == nil {
			return domain.CreditResult{Credited: false}, nil
		}

		set := decodeEmailSet(referrer.PaidReferralUsers)
		if contains(set, paidEmail) {
			return domain.CreditResult{Credited: false, AlreadyCredited: true, PaidReferrals: len(set)}, nil
		}

		replacement := append(set, paidEmail)
		encoded, err := json.Marshal(replacement)
		if err != nil {
			return domain.CreditResult{}, err
		}

		now := s.clock.Now(ctx)
		var unlockedAt *time.Time
		if len(replacement) >= s.unlockThreshold && referrer.UnlockedAt == nil {
			unlockedAt = &now
		}

		ok, err := s.repo.ReplacePaidReferrals(ctx, nil, referrer.Email, referrer.PaidReferralUsers, encoded, unlockedAt, now)
		if err != nil {
			return domain.CreditResult{}, err
		}
		if ok {
			s.log.Info("referrer credited",
				zap.String("referrer", referrer.Email),
				zap.String("paid_user", paidEmail),
				zap.Int("paid_referrals", len(replacement)))
			return domain.CreditResult{Credited: true, PaidReferrals: len(replacement)}, nil
		}
		// The paid set moved underneath us; re-read and retry.
	}

	return domain.CreditResult{}, gorm.ErrInvalidTransaction
}

func (s *Service) Status(ctx context.Context, email string) (domain.Status, error) {
	profile, err := s.EnsureProfile(ctx, email)
	if err != nil {
		return domain.Status{}, err
	}

	paid := decodeEmailSet(profile.PaidReferralUsers)
	unlocked := len(paid) >= s.unlockThreshold || profile.UnlockedAt != nil

	// Unlocking is sticky: once the count-derived unlock is observed it
	// is recorded so later checks do not re-derive it.
	if unlocked && profile.UnlockedAt == nil {
		if err := s.repo.StampUnlocked(ctx, nil, profile.Email, s.clock.Now(ctx)); err != nil {
			return domain.Status{}, err
		}
	}

	return domain.Status{
		ReferralCode:          profile.ReferralCode,
		ReferredBy:            profile.ReferredBy,
		PaidReferrals:         len(paid),
		RequiredPaidReferrals: s.unlockThreshold,
		Unlocked:              unlocked,
		FreePaperCount:        profile.FreePaperCount,
		FreePaperLimit:        s.freePaperLimit,
	}, nil
}

func (s *Service) ConsumeFreePaper(ctx context.Context, email string) (int64, bool, error) {
	profile, err := s.EnsureProfile(ctx, email)
	if err != nil {
		return 0, false, err
	}

	ok, err := s.repo.IncrementFreePapersBelow(ctx, nil, profile.Email, s.freePaperLimit, s.clock.Now(ctx))
	if err != nil {
		return 0, false, err
	}

	fresh, err := s.repo.FindByEmail(ctx, nil, profile.Email)
	if err != nil {
		return 0, false, err
	}
	if fresh == nil {
		return 0, false, domain.ErrProfileNotFound
	}
	return fresh.FreePaperCount, ok, nil
}

// generateCode derives a readable prefix from the email's local part and
// appends a random suffix for uniqueness. Collisions are possible and
// absorbed by the caller's retry; codes are not security tokens.
func (s *Service) generateCode(email string) (string, error) {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}

	base := strings.ToUpper(strings.ReplaceAll(slug.Make(local), "-", ""))
	if len(base) > codeBaseLen {
		base = base[:codeBaseLen]
	}
	if base == "" {
		base = "USER"
	}

	suffix := make([]byte, codeSuffixLen)
	alphabet := big.NewInt(int64(len(codeSuffixChars)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		suffix[i] = codeSuffixChars[n.Int64()]
	}

	return base + string(suffix), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func decodeEmailSet(raw datatypes.JSON) []string {
	var set []string
	if len(raw) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(raw, &set); err != nil || set == nil {
		return []string{}
	}
	return set
}

func contains(set []string, email string) bool {
	for _, e := range set {
		if e == email {
			return true
		}
	}
	return false
}
