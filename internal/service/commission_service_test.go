package service

import (
	"context"
	"testing"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCommissionAmount(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		rate  float64
		want  int64
	}{
		{name: "ten percent", cents: 10000, rate: 10, want: 1000},
		{name: "five percent", cents: 10000, rate: 5, want: 500},
		{name: "rounds half up", cents: 999, rate: 5, want: 50},
		{name: "rounds up", cents: 999, rate: 10, want: 100},
		{name: "rounds down", cents: 1001, rate: 10, want: 100},
		{name: "zero rate", cents: 5000, rate: 0, want: 0},
		{name: "fractional rate", cents: 2000, rate: 12.5, want: 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commissionAmount(tt.cents, tt.rate))
		})
	}
}

func (f *fixture) createCommission(t *testing.T, a *models.Affiliate, buyer *models.User, cents int64) []models.AffiliateCommission {
	t.Helper()
	pp := &models.PurchasedPlan{UserID: buyer.ID, PlanID: 1, PaidPriceCents: cents, PurchasedAt: f.now, ExpiresAt: f.now.AddDate(0, 1, 0), IsActive: true}
	require.NoError(t, f.db.Create(pp).Error)
	var out []models.AffiliateCommission
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = f.commissions.CreateCommission(tx, a, buyer.ID, pp)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestCreateCommissionDirectAndReferral(t *testing.T) {
	f := newFixture(t)
	b := f.affiliate(t, "b@test.test", nil)
	a := f.affiliate(t, "a@test.test", b)
	buyer := f.user(t, "buyer@test.test", domain.RoleParent)

	list := f.createCommission(t, a, buyer, 10000)
	require.Len(t, list, 2)

	direct, referral := list[0], list[1]
	assert.Equal(t, a.ID, direct.AffiliateID)
	assert.Equal(t, domain.CommissionTypeDirect, direct.Type)
	assert.EqualValues(t, 1000, direct.AmountCents)
	assert.Equal(t, 10.0, direct.CommissionRate)
	assert.Equal(t, domain.CommissionStatusPending, direct.Status)

	assert.Equal(t, b.ID, referral.AffiliateID)
	assert.Equal(t, domain.CommissionTypeReferral, referral.Type)
	assert.EqualValues(t, 500, referral.AmountCents)
	assert.Equal(t, 5.0, referral.CommissionRate)
	assert.Equal(t, buyer.ID, referral.UserID)
}

func TestCreateCommissionStopsAfterOneLevel(t *testing.T) {
	f := newFixture(t)
	c := f.affiliate(t, "c@test.test", nil)
	b := f.affiliate(t, "b@test.test", c)
	a := f.affiliate(t, "a@test.test", b)
	buyer := f.user(t, "buyer@test.test", domain.RoleParent)

	list := f.createCommission(t, a, buyer, 10000)
	require.Len(t, list, 2)

	var forC int64
	f.db.Model(&models.AffiliateCommission{}).Where("affiliate_id = ?", c.ID).Count(&forC)
	assert.Zero(t, forC)
}

func TestCreateCommissionInactive(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive affiliate earns nothing", func(t *testing.T) {
		f := newFixture(t)
		a := f.affiliate(t, "a@test.test", nil)
		a.IsActive = false
		buyer := f.user(t, "buyer@test.test", domain.RoleParent)
		assert.Empty(t, f.createCommission(t, a, buyer, 10000))
	})

	t.Run("inactive referrer forfeits bonus", func(t *testing.T) {
		f := newFixture(t)
		b := f.affiliate(t, "b@test.test", nil)
		a := f.affiliate(t, "a@test.test", b)
		_, err := f.affiliates.SetActive(ctx, 1, b.ID, false)
		require.NoError(t, err)
		buyer := f.user(t, "buyer@test.test", domain.RoleParent)

		list := f.createCommission(t, a, buyer, 10000)
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].AffiliateID)
	})
}

func TestRateChangeKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "a@test.test", nil)
	buyer := f.user(t, "buyer@test.test", domain.RoleParent)
	first := f.createCommission(t, a, buyer, 10000)

	updated, err := f.affiliates.SetRates(ctx, 1, a.ID, 20, 5)
	require.NoError(t, err)
	second := f.createCommission(t, updated, buyer, 10000)

	var stored models.AffiliateCommission
	require.NoError(t, f.db.First(&stored, first[0].ID).Error)
	assert.EqualValues(t, 1000, stored.AmountCents)
	assert.Equal(t, 10.0, stored.CommissionRate)
	assert.EqualValues(t, 2000, second[0].AmountCents)
}

func TestCancelCommission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "a@test.test", nil)
	pending := f.commission(t, a, 500, f.now)
	paid := f.commission(t, a, 700, f.now)
	require.NoError(t, f.db.Model(paid).Update("status", domain.CommissionStatusPaid).Error)

	c, err := f.commissions.Cancel(ctx, 1, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusCancelled, c.Status)
	require.NotNil(t, c.CancelledAt)

	_, err = f.commissions.Cancel(ctx, 1, pending.ID)
	require.ErrorIs(t, err, domain.ErrCommissionNotPending)

	_, err = f.commissions.Cancel(ctx, 1, paid.ID)
	require.ErrorIs(t, err, domain.ErrCommissionNotPending)
	var stored models.AffiliateCommission
	require.NoError(t, f.db.First(&stored, paid.ID).Error)
	assert.Equal(t, domain.CommissionStatusPaid, stored.Status)

	_, err = f.commissions.Cancel(ctx, 1, 9999)
	require.ErrorIs(t, err, domain.ErrCommissionNotFound)
}

func TestCommissionTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "a@test.test", nil)
	f.commission(t, a, 500, f.now)
	f.commission(t, a, 300, f.now)
	cancelled := f.commission(t, a, 200, f.now)
	_, err := f.commissions.Cancel(ctx, 1, cancelled.ID)
	require.NoError(t, err)

	totals, err := f.commissions.Totals(a.ID)
	require.NoError(t, err)
	byStatus := make(map[string]int64)
	for _, tt := range totals {
		byStatus[tt.Status] = tt.AmountCents
	}
	assert.EqualValues(t, 800, byStatus[domain.CommissionStatusPending])
	assert.EqualValues(t, 200, byStatus[domain.CommissionStatusCancelled])
}
