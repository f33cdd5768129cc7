package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/entitlement/domain"
	"github.com/paperifyhq/paperify/internal/entitlement/repository"
	"github.com/paperifyhq/paperify/internal/entitlement/service"
	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	paymentlinkrepo "github.com/paperifyhq/paperify/internal/paymentlink/repository"
	"github.com/paperifyhq/paperify/internal/plan"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	referralrepo "github.com/paperifyhq/paperify/internal/referral/repository"
	referralservice "github.com/paperifyhq/paperify/internal/referral/service"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	subscriptionrepo "github.com/paperifyhq/paperify/internal/subscription/repository"
	subscriptionservice "github.com/paperifyhq/paperify/internal/subscription/service"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      domain.Service
	referral referraldomain.Service
	db       *gorm.DB
	node     *snowflake.Node
}

func newFixture(t *testing.T, name string) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.UsageCounter{},
		&referraldomain.Profile{},
		&subscriptiondomain.Subscription{},
		&paymentlinkdomain.PaymentLink{},
		&paymentlinkdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.Limits.Demo = 4
	cfg.Limits.ReferralFreePapers = 15
	cfg.Limits.ReferralUnlock = 10
	cfg.Limits.MonthlySpecific = 30

	fixedClock := clock.Fixed{T: testTime}
	log := zap.NewNop()
	catalog := plan.DefaultCatalog()

	referralSvc := referralservice.NewService(referralservice.ServiceParam{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  fixedClock,
		Repo:   referralrepo.Provide(db),
		Config: cfg,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fixedClock,
		Repo:     subscriptionrepo.Provide(db),
		LinkRepo: paymentlinkrepo.Provide(db),
		Catalog:  catalog,
	})
	svc := service.NewService(service.ServiceParam{
		DB:       db,
		Log:      log,
		Clock:    fixedClock,
		Catalog:  catalog,
		Counters: repository.Provide(db, node),
		Subs:     subscriptionSvc,
		Referral: referralSvc,
		Config:   cfg,
	})

	return fixture{svc: svc, referral: referralSvc, db: db, node: node}
}

func (f fixture) grantSubscription(t *testing.T, email, planKey string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&subscriptiondomain.Subscription{
		ID:        f.node.Generate(),
		Email:     email,
		Plan:      planKey,
		Books:     datatypes.JSON([]byte("[]")),
		ExpiresAt: expiresAt,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}).Error)
}

func TestGuestDemoQuota(t *testing.T) {
	f := newFixture(t, "ent_guest")
	ctx := context.Background()
	id := domain.Identity{Key: "guest_device-1", Guest: true}

	for i := int64(1); i <= 4; i++ {
		d, err := f.svc.Track(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ModeMetered, d.Mode)
		assert.Equal(t, domain.ReasonGuestDemo, d.Reason)
		assert.Equal(t, i, d.Count)
	}

	d, err := f.svc.Track(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDenied, d.Mode)
	assert.Equal(t, int64(4), d.Count)

	// denied tracks do not keep counting up
	d, err = f.svc.Track(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Count)

	d, err = f.svc.Check(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDenied, d.Mode)
}

func TestGuestsAreIsolatedByKey(t *testing.T) {
	f := newFixture(t, "ent_guest_iso")
	ctx := context.Background()

	_, err := f.svc.Track(ctx, domain.Identity{Key: "guest_a", Guest: true})
	require.NoError(t, err)

	d, err := f.svc.Check(ctx, domain.Identity{Key: "guest_b", Guest: true})
	require.NoError(t, err)
	assert.Zero(t, d.Count)
}

func TestGuestIgnoresOverride(t *testing.T) {
	f := newFixture(t, "ent_guest_override")
	ctx := context.Background()

	until := testTime.Add(time.Hour)
	id := domain.Identity{Key: "guest_x", Guest: true, TempUnlimitedUntil: &until}

	d, err := f.svc.Check(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMetered, d.Mode)
	assert.Equal(t, domain.ReasonGuestDemo, d.Reason)
}

func TestTempUnlimitedOverride(t *testing.T) {
	f := newFixture(t, "ent_override")
	ctx := context.Background()

	until := testTime.Add(time.Hour)
	d, err := f.svc.Track(ctx, domain.Identity{Key: "user@x.com", TempUnlimitedUntil: &until})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeUnlimited, d.Mode)
	assert.Equal(t, domain.ReasonTempUnlimited, d.Reason)

	// an elapsed override falls through to the free tier
	expired := testTime.Add(-time.Minute)
	d, err = f.svc.Track(ctx, domain.Identity{Key: "user@x.com", TempUnlimitedUntil: &expired})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMetered, d.Mode)
	assert.Equal(t, domain.ReasonReferralFree, d.Reason)
}

func TestReferralUnlocked(t *testing.T) {
	f := newFixture(t, "ent_unlocked")
	ctx := context.Background()

	_, err := f.referral.EnsureProfile(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&referraldomain.Profile{}).
		Where("email = ?", "alice@x.com").
		Update("unlocked_at", testTime).Error)

	d, err := f.svc.Track(ctx, domain.Identity{Key: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeUnlimited, d.Mode)
	assert.Equal(t, domain.ReasonReferralUnlocked, d.Reason)
}

func TestUnlimitedSubscription(t *testing.T) {
	f := newFixture(t, "ent_sub_unlimited")
	ctx := context.Background()

	f.grantSubscription(t, "alice@x.com", plan.MonthlyUnlimited, testTime.Add(30*24*time.Hour))

	d, err := f.svc.Track(ctx, domain.Identity{Key: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeUnlimited, d.Mode)
	assert.Equal(t, plan.MonthlyUnlimited, d.Reason)
}

func TestMeteredSubscription(t *testing.T) {
	f := newFixture(t, "ent_sub_metered")
	ctx := context.Background()

	f.grantSubscription(t, "alice@x.com", plan.MonthlySpecific, testTime.Add(30*24*time.Hour))
	id := domain.Identity{Key: "alice@x.com"}

	for i := int64(1); i <= 30; i++ {
		d, err := f.svc.Track(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ModeMetered, d.Mode)
		assert.Equal(t, plan.MonthlySpecific, d.Reason)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, int64(30), d.Limit)
	}

	d, err := f.svc.Track(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDenied, d.Mode)

	// the plan counter does not bleed into another user's quota
	f.grantSubscription(t, "bob@x.com", plan.MonthlySpecific, testTime.Add(30*24*time.Hour))
	d, err = f.svc.Check(ctx, domain.Identity{Key: "bob@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMetered, d.Mode)
	assert.Zero(t, d.Count)
}

func TestExpiredSubscriptionFallsThrough(t *testing.T) {
	f := newFixture(t, "ent_sub_expired")
	ctx := context.Background()

	f.grantSubscription(t, "alice@x.com", plan.MonthlyUnlimited, testTime.Add(-time.Hour))

	d, err := f.svc.Check(ctx, domain.Identity{Key: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMetered, d.Mode)
	assert.Equal(t, domain.ReasonReferralFree, d.Reason)
}

func TestReferralFreeTier(t *testing.T) {
	f := newFixture(t, "ent_free_tier")
	ctx := context.Background()
	id := domain.Identity{Key: "alice@x.com"}

	for i := int64(1); i <= 15; i++ {
		d, err := f.svc.Track(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ModeMetered, d.Mode)
		assert.Equal(t, domain.ReasonReferralFree, d.Reason)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, int64(15), d.Limit)
	}

	d, err := f.svc.Track(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDenied, d.Mode)
	assert.Equal(t, int64(15), d.Count)

	d, err = f.svc.Check(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDenied, d.Mode)
}

func TestCheckDoesNotConsume(t *testing.T) {
	f := newFixture(t, "ent_check_pure")
	ctx := context.Background()
	id := domain.Identity{Key: "guest_pure", Guest: true}

	for i := 0; i < 10; i++ {
		d, err := f.svc.Check(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, d.Count)
		assert.Equal(t, domain.ModeMetered, d.Mode)
	}
}
