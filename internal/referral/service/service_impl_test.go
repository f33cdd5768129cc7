package service_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/referral/domain"
	"github.com/paperifyhq/paperify/internal/referral/repository"
	"github.com/paperifyhq/paperify/internal/referral/service"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, name string) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Profile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.Limits.ReferralUnlock = 10
	cfg.Limits.ReferralFreePapers = 15

	return service.NewService(service.ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.Fixed{T: testTime},
		Repo:   repository.Provide(db),
		Config: cfg,
	})
}

func TestEnsureProfile(t *testing.T) {
	svc := newService(t, "ref_ensure")
	ctx := context.Background()

	profile, err := svc.EnsureProfile(ctx, "Alice.Khan@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice.khan@example.com", profile.Email)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{1,10}$`), profile.ReferralCode)
	assert.Nil(t, profile.ReferredBy)

	again, err := svc.EnsureProfile(ctx, "alice.khan@example.com")
	require.NoError(t, err)
	assert.Equal(t, profile.ReferralCode, again.ReferralCode)
	assert.Equal(t, profile.ID, again.ID)
}

func TestApplyCode(t *testing.T) {
	svc := newService(t, "ref_apply")
	ctx := context.Background()

	alice, err := svc.EnsureProfile(ctx, "alice@x.com")
	require.NoError(t, err)
	_, err = svc.EnsureProfile(ctx, "bob@x.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ApplyCode(ctx, "bob@x.com", ""), domain.ErrCodeRequired)
	assert.ErrorIs(t, svc.ApplyCode(ctx, "alice@x.com", alice.ReferralCode), domain.ErrSelfReferral)
	assert.ErrorIs(t, svc.ApplyCode(ctx, "nobody@x.com", alice.ReferralCode), domain.ErrProfileNotFound)

	require.NoError(t, svc.ApplyCode(ctx, "bob@x.com", alice.ReferralCode))

	// first write wins
	assert.ErrorIs(t, svc.ApplyCode(ctx, "bob@x.com", "OTHER1234"), domain.ErrAlreadyReferred)

	status, err := svc.Status(ctx, "bob@x.com")
	require.NoError(t, err)
	require.NotNil(t, status.ReferredBy)
	assert.Equal(t, alice.ReferralCode, *status.ReferredBy)
}

func TestCreditReferrer(t *testing.T) {
	svc := newService(t, "ref_credit")
	ctx := context.Background()

	alice, err := svc.EnsureProfile(ctx, "alice@x.com")
	require.NoError(t, err)
	_, err = svc.EnsureProfile(ctx, "bob@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.ApplyCode(ctx, "bob@x.com", alice.ReferralCode))

	result, err := svc.CreditReferrer(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.True(t, result.Credited)
	assert.Equal(t, 1, result.PaidReferrals)

	// same paid user again: dedup set absorbs it
	result, err = svc.CreditReferrer(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.False(t, result.Credited)
	assert.True(t, result.AlreadyCredited)
	assert.Equal(t, 1, result.PaidReferrals)

	// users without a referrer credit nobody
	result, err = svc.CreditReferrer(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, result.Credited)
}

func TestUnlockAtThreshold(t *testing.T) {
	svc := newService(t, "ref_unlock")
	ctx := context.Background()

	alice, err := svc.EnsureProfile(ctx, "alice@x.com")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		email := fmt.Sprintf("friend%d@x.com", i)
		_, err = svc.EnsureProfile(ctx, email)
		require.NoError(t, err)
		require.NoError(t, svc.ApplyCode(ctx, email, alice.ReferralCode))

		status, err := svc.Status(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.False(t, status.Unlocked, "unlock before crediting friend %d", i)

		result, err := svc.CreditReferrer(ctx, email)
		require.NoError(t, err)
		assert.True(t, result.Credited)
	}

	status, err := svc.Status(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, 10, status.PaidReferrals)
	assert.True(t, status.Unlocked)

	// unlock is sticky once stamped
	fresh, err := svc.EnsureProfile(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.NotNil(t, fresh.UnlockedAt)
}

func TestReferralLifecycle(t *testing.T) {
	svc := newService(t, "ref_lifecycle")
	ctx := context.Background()

	a, err := svc.EnsureProfile(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ReferralCode)
	assert.Nil(t, a.ReferredBy)
	assert.Zero(t, a.FreePaperCount)

	_, err = svc.EnsureProfile(ctx, "b@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.ApplyCode(ctx, "b@x.com", a.ReferralCode))

	status, err := svc.Status(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, status.PaidReferrals)

	result, err := svc.CreditReferrer(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, result.Credited)
	assert.Equal(t, 1, result.PaidReferrals)

	fresh, err := svc.EnsureProfile(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, fresh.UnlockedAt)
}

func TestConsumeFreePaper(t *testing.T) {
	svc := newService(t, "ref_free")
	ctx := context.Background()

	for i := int64(1); i <= 15; i++ {
		count, ok, err := svc.ConsumeFreePaper(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}

	count, ok, err := svc.ConsumeFreePaper(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(15), count)
}
