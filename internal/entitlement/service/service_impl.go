package service

import (
	"context"
	"errors"
	"strings"

	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/entitlement/domain"
	"github.com/paperifyhq/paperify/internal/plan"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// planCounterSuffix scopes a metered plan's quota apart from the general
// demo counter for the same email.
const planCounterSuffix = "_monthly"

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	catalog *plan.Catalog

	counters domain.CounterRepository
	subs     subscriptiondomain.Service
	referral referraldomain.Service

	demoLimit      int64
	freePaperLimit int64
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Catalog  *plan.Catalog
	Counters domain.CounterRepository
	Subs     subscriptiondomain.Service
	Referral referraldomain.Service
	Config   config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("entitlement.service"),
		clock:          p.Clock,
		catalog:        p.Catalog,
		counters:       p.Counters,
		subs:           p.Subs,
		referral:       p.Referral,
		demoLimit:      p.Config.Limits.Demo,
		freePaperLimit: p.Config.Limits.ReferralFreePapers,
	}
}

func (s *Service) Check(ctx context.Context, id domain.Identity) (domain.Decision, error) {
	return s.evaluate(ctx, id, false)
}

func (s *Service) Track(ctx context.Context, id domain.Identity) (domain.Decision, error) {
	return s.evaluate(ctx, id, true)
}

// evaluate applies the gating precedence in order; the first matching rule
// decides. Order is load-bearing: overrides and unlocks never apply to
// guests, and subscriptions shadow the free tier.
func (s *Service) evaluate(ctx context.Context, id domain.Identity, track bool) (domain.Decision, error) {
	// 1. Guests only ever see the demo quota.
	if id.Guest {
		return s.meter(ctx, id.Key, s.demoLimit, domain.ReasonGuestDemo, track)
	}

	email := strings.ToLower(strings.TrimSpace(id.Key))

	// 2. Temporary admin override, session-bounded.
	if id.TempUnlimitedUntil != nil && s.clock.Now(ctx).Before(*id.TempUnlimitedUntil) {
		return domain.Decision{Mode: domain.ModeUnlimited, Reason: domain.ReasonTempUnlimited}, nil
	}

	// 3. Referral unlock is permanent once earned.
	refStatus, err := s.referral.Status(ctx, email)
	if err != nil {
		return domain.Decision{}, err
	}
	if refStatus.Unlocked {
		return domain.Decision{Mode: domain.ModeUnlimited, Reason: domain.ReasonReferralUnlocked}, nil
	}

	// 4. Active subscription: metered plans run against their own
	// counter, everything else is unlimited.
	view, err := s.subs.Get(ctx, email)
	switch {
	case err == nil && view.Active():
		if p, ok := s.catalog.Lookup(view.Plan); ok && p.Metered {
			return s.meter(ctx, email+planCounterSuffix, p.MeteredCap, p.Key, track)
		}
		return domain.Decision{Mode: domain.ModeUnlimited, Reason: view.Plan}, nil
	case err != nil && !errors.Is(err, subscriptiondomain.ErrNoSubscription):
		return domain.Decision{}, err
	}

	// 5. Referral free tier, lifetime-cumulative.
	if track {
		count, ok, err := s.referral.ConsumeFreePaper(ctx, email)
		if err != nil {
			return domain.Decision{}, err
		}
		if !ok {
			return domain.Decision{Mode: domain.ModeDenied, Reason: domain.ReasonReferralFree, Count: count, Limit: s.freePaperLimit}, nil
		}
		return domain.Decision{Mode: domain.ModeMetered, Reason: domain.ReasonReferralFree, Count: count, Limit: s.freePaperLimit}, nil
	}
	if refStatus.FreePaperCount >= s.freePaperLimit {
		return domain.Decision{Mode: domain.ModeDenied, Reason: domain.ReasonReferralFree, Count: refStatus.FreePaperCount, Limit: s.freePaperLimit}, nil
	}
	return domain.Decision{Mode: domain.ModeMetered, Reason: domain.ReasonReferralFree, Count: refStatus.FreePaperCount, Limit: s.freePaperLimit}, nil
}

func (s *Service) meter(ctx context.Context, key string, limit int64, reason string, track bool) (domain.Decision, error) {
	if track {
		count, incremented, err := s.counters.IncrementBelow(ctx, nil, key, limit, s.clock.Now(ctx))
		if err != nil {
			return domain.Decision{}, err
		}
		if !incremented {
			return domain.Decision{Mode: domain.ModeDenied, Reason: reason, Count: count, Limit: limit}, nil
		}
		return domain.Decision{Mode: domain.ModeMetered, Reason: reason, Count: count, Limit: limit}, nil
	}

	count, err := s.counters.Get(ctx, nil, key)
	if err != nil {
		return domain.Decision{}, err
	}
	if count >= limit {
		return domain.Decision{Mode: domain.ModeDenied, Reason: reason, Count: count, Limit: limit}, nil
	}
	return domain.Decision{Mode: domain.ModeMetered, Reason: reason, Count: count, Limit: limit}, nil
}
