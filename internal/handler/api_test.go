package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub/config"
	"learnhub/internal/database"
	"learnhub/internal/router"
	"learnhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test", LandingRateLimit: 60, LandingRateBurst: 5},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "learnhub-test",
		},
		Payment: config.PaymentConfig{Currency: "EUR", PaymentExpiry: time.Minute},
		Affiliate: config.AffiliateConfig{
			BaseURL:                  "https://learnhub.test",
			SignupPath:               "/register",
			DefaultCommissionRate:    10,
			DefaultReferralBonusRate: 5,
			CookieName:               "affiliate_ref",
			CookieSecret:             "cookie-secret",
			CookieLifetimeDays:       30,
		},
		Admin: config.AdminConfig{Email: "admin@test.test", Password: "admin-password"},
	}
}

func newServer(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	cfg := testConfig()
	database.SeedAdmin(db, &cfg.Admin)
	require.NoError(t, database.SeedPlans(db))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc := router.NewServices(cfg, db, nil, &payment.StubProvider{})
	return router.Setup(ctx, cfg, db, svc), cfg
}

func call(r http.Handler, method, path, token string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	rec := call(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &out)
	return out.AccessToken
}

func TestAffiliateFunnel(t *testing.T) {
	r, cfg := newServer(t)
	admin := login(t, r, cfg.Admin.Email, cfg.Admin.Password)

	rec := call(r, http.MethodPost, "/api/v1/admin/users", admin, gin.H{
		"name": "Affiliate", "email": "aff@test.test", "password": "affiliate-pw", "role": "AFFILIATE",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	aff := login(t, r, "aff@test.test", "affiliate-pw")

	var link struct {
		Link   string `json:"link"`
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	rec = call(r, http.MethodGet, "/api/v1/affiliate/link", aff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &link)
	assert.Len(t, link.Code, 12)
	assert.False(t, link.Active)
	assert.Equal(t, "https://learnhub.test/sales/"+link.Code, link.Link)

	// Inactive affiliates have no working landing link.
	rec = call(r, http.MethodGet, "/sales/"+link.Code, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(r, http.MethodPut, "/api/v1/affiliate/bank-info", aff, gin.H{
		"bank_name": "Bank", "account_holder_name": "Jane Doe", "iban": "DE89370400440532013001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(r, http.MethodPut, "/api/v1/affiliate/bank-info", aff, gin.H{
		"bank_name": "Bank", "account_holder_name": "Jane Doe", "iban": "DE89370400440532013000",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(r, http.MethodPost, "/api/v1/affiliate/contract/sign", aff, gin.H{"signature": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(r, http.MethodPost, "/api/v1/affiliate/contract/sign", aff, gin.H{"signature": "Jane Doe"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(r, http.MethodGet, "/sales/"+link.Code, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://learnhub.test/register?ref="+link.Code, rec.Header().Get("Location"))
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cfg.Affiliate.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)

	rec = call(r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Parent", "email": "parent@test.test", "password": "parent-pw",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg struct {
		User struct {
			ID           uint  `json:"id"`
			AffiliatedBy *uint `json:"affiliated_by"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &reg)
	require.NotNil(t, reg.User.AffiliatedBy)

	rec = call(r, http.MethodGet, "/api/v1/affiliate/dashboard", reg.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(r, http.MethodPost, "/api/v1/parent/purchases", reg.AccessToken, gin.H{"plan_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var commissions struct {
		Data []struct {
			AmountCents int64  `json:"amount_cents"`
			Status      string `json:"status"`
		} `json:"data"`
	}
	rec = call(r, http.MethodGet, "/api/v1/affiliate/commissions", aff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &commissions)
	require.Len(t, commissions.Data, 1)
	// 10% of the seeded 9.99 monthly plan.
	assert.EqualValues(t, 100, commissions.Data[0].AmountCents)
	assert.Equal(t, "pending", commissions.Data[0].Status)

	var dash struct {
		TotalClicks     int64   `json:"total_clicks"`
		ConvertedClicks int64   `json:"converted_clicks"`
		ConversionRate  float64 `json:"conversion_rate"`
	}
	rec = call(r, http.MethodGet, "/api/v1/affiliate/dashboard", aff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &dash)
	assert.EqualValues(t, 1, dash.TotalClicks)
	assert.EqualValues(t, 1, dash.ConvertedClicks)
	assert.Equal(t, 100.0, dash.ConversionRate)

	now := time.Now().UTC()
	affiliateID := *reg.User.AffiliatedBy
	period := gin.H{"month": int(now.Month()), "year": now.Year()}
	rec = call(r, http.MethodPost, fmt.Sprintf("/api/v1/admin/affiliates/%d/invoices", affiliateID), admin, period)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv struct {
		ID               uint   `json:"id"`
		TotalAmountCents int64  `json:"total_amount_cents"`
		Status           string `json:"status"`
	}
	decode(t, rec, &inv)
	assert.EqualValues(t, 100, inv.TotalAmountCents)
	assert.Equal(t, "pending", inv.Status)

	rec = call(r, http.MethodPost, fmt.Sprintf("/api/v1/admin/affiliates/%d/invoices", affiliateID), admin, period)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(r, http.MethodPost, fmt.Sprintf("/api/v1/admin/invoices/%d/pay", inv.ID), admin, gin.H{"payment_method": "bank_transfer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(r, http.MethodPost, fmt.Sprintf("/api/v1/admin/invoices/%d/pay", inv.ID), admin, gin.H{"payment_method": "bank_transfer"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(r, http.MethodGet, fmt.Sprintf("/api/v1/affiliate/invoices/%d", inv.ID), aff, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	r, _ := newServer(t)
	for _, path := range []string{"/api/v1/affiliate/dashboard", "/api/v1/parent/children", "/api/v1/admin/invoices"} {
		rec := call(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestPublicPlans(t *testing.T) {
	r, _ := newServer(t)
	rec := call(r, http.MethodGet, "/api/v1/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Monthly")

	rec = call(r, http.MethodGet, "/sales/UNKNOWNCODE1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
