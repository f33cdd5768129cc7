package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	entitlementdomain "github.com/paperifyhq/paperify/internal/entitlement/domain"
	entitlementrepo "github.com/paperifyhq/paperify/internal/entitlement/repository"
	entitlementservice "github.com/paperifyhq/paperify/internal/entitlement/service"
	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	paymentlinkrepo "github.com/paperifyhq/paperify/internal/paymentlink/repository"
	paymentlinkservice "github.com/paperifyhq/paperify/internal/paymentlink/service"
	"github.com/paperifyhq/paperify/internal/plan"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	referralrepo "github.com/paperifyhq/paperify/internal/referral/repository"
	referralservice "github.com/paperifyhq/paperify/internal/referral/service"
	"github.com/paperifyhq/paperify/internal/server"
	"github.com/paperifyhq/paperify/internal/session"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	subscriptionrepo "github.com/paperifyhq/paperify/internal/subscription/repository"
	subscriptionservice "github.com/paperifyhq/paperify/internal/subscription/service"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
	userrepo "github.com/paperifyhq/paperify/internal/user/repository"
	userservice "github.com/paperifyhq/paperify/internal/user/service"
)

const adminEmail = "bilal@paperify.com"

func newRouter(t *testing.T, name string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&paymentlinkdomain.PaymentLink{},
		&paymentlinkdomain.Payment{},
		&subscriptiondomain.Subscription{},
		&referraldomain.Profile{},
		&entitlementdomain.UsageCounter{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{Mode: config.ModeDevelopment}
	cfg.Server.SessionTTL = time.Hour
	cfg.Payment.LinkTTL = 24 * time.Hour
	cfg.Admin.SuperuserEmail = adminEmail
	cfg.Limits.Demo = 4
	cfg.Limits.ReferralFreePapers = 15
	cfg.Limits.ReferralUnlock = 10
	cfg.Limits.MonthlySpecific = 30

	log := zap.NewNop()
	sysClock := clock.SystemClock{}
	catalog := plan.DefaultCatalog()
	sessions := session.NewStore(redisClient, cfg)

	referralSvc := referralservice.NewService(referralservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: sysClock,
		Repo: referralrepo.Provide(db), Config: cfg,
	})
	userSvc := userservice.NewService(userservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: sysClock,
		Repo: userrepo.Provide(db), Referral: referralSvc,
	})
	linkSvc := paymentlinkservice.NewService(paymentlinkservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: sysClock,
		Repo:    paymentlinkrepo.Provide(db),
		Signer:  paymentlinkservice.NewSignerWithSecret("test-secret"),
		Catalog: catalog, Config: cfg,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: sysClock,
		Repo:     subscriptionrepo.Provide(db),
		LinkRepo: paymentlinkrepo.Provide(db),
		Catalog:  catalog,
	})
	entitlementSvc := entitlementservice.NewService(entitlementservice.ServiceParam{
		DB: db, Log: log, Clock: sysClock, Catalog: catalog,
		Counters: entitlementrepo.Provide(db, node),
		Subs:     subscriptionSvc, Referral: referralSvc,
		Config: cfg,
	})

	srv := server.NewServer(server.ServerParam{
		Config:          cfg,
		Log:             log,
		Sessions:        sessions,
		Catalog:         catalog,
		Metrics:         server.NewMetrics(),
		UserSvc:         userSvc,
		LinkSvc:         linkSvc,
		SubscriptionSvc: subscriptionSvc,
		ReferralSvc:     referralSvc,
		EntitlementSvc:  entitlementSvc,
	})
	return srv.Router()
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.True(t, payload.Success, "response body: %s", w.Body.String())
	return payload.Data
}

func registerUser(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"password": "pw123456",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decodeData(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthz(t *testing.T) {
	r := newRouter(t, "srv_healthz")
	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	r := newRouter(t, "srv_auth")

	token := registerUser(t, r, "alice@x.com")

	w := doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["is_admin"])

	// wrong password
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// logout invalidates the token
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newRouter(t, "srv_auth_required")

	w := doJSON(t, r, http.MethodGet, "/api/referral/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/payment/create-link", "", map[string]any{"plan": plan.WeeklyUnlimited})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly(t *testing.T) {
	r := newRouter(t, "srv_admin_only")
	token := registerUser(t, r, "alice@x.com")

	w := doJSON(t, r, http.MethodGet, "/api/admin/payments", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := registerUser(t, r, adminEmail)
	w = doJSON(t, r, http.MethodGet, "/api/admin/payments", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentLifecycle(t *testing.T) {
	r := newRouter(t, "srv_payment")
	token := registerUser(t, r, "alice@x.com")
	admin := registerUser(t, r, adminEmail)

	w := doJSON(t, r, http.MethodPost, "/api/payment/create-link", token, map[string]any{
		"plan": plan.WeeklyUnlimited,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	linkID, _ := decodeData(t, w)["link_id"].(string)
	require.NotEmpty(t, linkID)

	// public checkout view
	w = doJSON(t, r, http.MethodGet, "/payment/"+linkID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending_payment", decodeData(t, w)["status"])

	// confirming before proof is rejected
	w = doJSON(t, r, http.MethodPost, "/api/payment/confirm/"+linkID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/payment/submit/"+linkID, "", map[string]any{
		"transaction_id": "TXN-778899",
		"screenshot_ref": "uploads/receipt.png",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// non-admin cannot confirm
	w = doJSON(t, r, http.MethodPost, "/api/payment/confirm/"+linkID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/payment/confirm/"+linkID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// double confirm is rejected
	w = doJSON(t, r, http.MethodPost, "/api/payment/confirm/"+linkID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/user/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["is_active"])
}

func TestDemoTrackGuest(t *testing.T) {
	r := newRouter(t, "srv_demo")

	for i := 1; i <= 4; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/demo/track", "", map[string]any{"user_id": "guest_abc"})
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, true, data["allowed"], "track %d", i)
		assert.Equal(t, float64(i), data["count"])
	}

	w := doJSON(t, r, http.MethodPost, "/api/demo/track", "", map[string]any{"user_id": "guest_abc"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["allowed"])
	assert.Equal(t, "guest_demo", data["reason"])
}

func TestTempUnlimitedOverride(t *testing.T) {
	r := newRouter(t, "srv_override")
	token := registerUser(t, r, "alice@x.com")
	admin := registerUser(t, r, adminEmail)

	w := doJSON(t, r, http.MethodPost, "/api/admin/temp-unlimited", admin, map[string]any{
		"email":            "alice@x.com",
		"duration_minutes": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/demo/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["unlimited"])
	assert.Equal(t, "temp_unlimited", data["reason"])
}

func TestReferralEndpoints(t *testing.T) {
	r := newRouter(t, "srv_referral")
	alice := registerUser(t, r, "alice@x.com")
	bob := registerUser(t, r, "bob@x.com")

	w := doJSON(t, r, http.MethodGet, "/api/referral/status", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	code, _ := decodeData(t, w)["referral_code"].(string)
	require.NotEmpty(t, code)

	w = doJSON(t, r, http.MethodPost, "/api/referral/apply", bob, map[string]any{"code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// self referral rejected
	w = doJSON(t, r, http.MethodPost, "/api/referral/apply", alice, map[string]any{"code": code})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
