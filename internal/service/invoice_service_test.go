package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func march(day int) time.Time {
	return time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC)
}

func TestCreateMonthlyInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	a := f.affiliate(t, "a@test.test", nil)
	other := f.affiliate(t, "other@test.test", nil)

	c1 := f.commission(t, a, 1000, march(3))
	c2 := f.commission(t, a, 2000, march(15))
	c3 := f.commission(t, a, 500, march(31))
	february := f.commission(t, a, 900, time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC))
	april := f.commission(t, a, 800, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	otherAff := f.commission(t, other, 4000, march(10))

	inv, err := f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.NoError(t, err)
	assert.EqualValues(t, 3500, inv.TotalAmountCents)
	assert.Equal(t, 3, inv.TotalCommissionsCount)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "INV-202604-0001", inv.InvoiceNumber)
	assert.Equal(t, "March 2026", inv.Period())
	assert.Len(t, inv.Commissions, 3)

	for _, id := range []uint{c1.ID, c2.ID, c3.ID} {
		var c models.AffiliateCommission
		require.NoError(t, f.db.First(&c, id).Error)
		assert.Equal(t, domain.CommissionStatusPaid, c.Status)
		require.NotNil(t, c.InvoiceID)
		assert.Equal(t, inv.ID, *c.InvoiceID)
	}
	for _, id := range []uint{february.ID, april.ID, otherAff.ID} {
		var c models.AffiliateCommission
		require.NoError(t, f.db.First(&c, id).Error)
		assert.Equal(t, domain.CommissionStatusPending, c.Status)
		assert.Nil(t, c.InvoiceID)
	}

	_, err = f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.ErrorIs(t, err, domain.ErrInvoiceExists)

	second, err := f.invoices.CreateMonthlyInvoice(ctx, other.ID, 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-202604-0002", second.InvoiceNumber)
}

func TestCreateMonthlyInvoiceErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "a@test.test", nil)
	cancelled := f.commission(t, a, 1000, march(3))
	_, err := f.commissions.Cancel(ctx, 1, cancelled.ID)
	require.NoError(t, err)

	tests := []struct {
		name        string
		affiliateID uint
		month, year int
		wantErr     error
	}{
		{name: "month zero", affiliateID: a.ID, month: 0, year: 2026, wantErr: domain.ErrInvalidPeriod},
		{name: "month thirteen", affiliateID: a.ID, month: 13, year: 2026, wantErr: domain.ErrInvalidPeriod},
		{name: "unknown affiliate", affiliateID: 9999, month: 3, year: 2026, wantErr: domain.ErrAffiliateNotFound},
		{name: "only cancelled commissions", affiliateID: a.ID, month: 3, year: 2026, wantErr: domain.ErrNothingToInvoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoices.CreateMonthlyInvoice(ctx, tt.affiliateID, tt.month, tt.year)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	var n int64
	f.db.Model(&models.AffiliateInvoice{}).Count(&n)
	assert.Zero(t, n)
}

func TestGenerateInvoiceNumber(t *testing.T) {
	f := newFixture(t)
	jan := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	number, err := f.invoices.GenerateInvoiceNumber(f.invoices.invoiceRepo, jan)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-\d{6}-\d{4}$`), number)
	assert.Equal(t, "INV-202601-0001", number)

	a := f.affiliate(t, "a@test.test", nil)
	for i, n := range []string{"INV-202601-0042", "INV-202601-9999", "INV-202512-12000"} {
		require.NoError(t, f.db.Create(&models.AffiliateInvoice{
			AffiliateID: a.ID, InvoiceNumber: n, Month: i + 1, Year: 2025,
			Status: domain.InvoiceStatusPending, CreatedAt: jan,
		}).Error)
	}
	number, err = f.invoices.GenerateInvoiceNumber(f.invoices.invoiceRepo, jan)
	require.NoError(t, err)
	assert.Equal(t, "INV-202601-10000", number)

	number, err = f.invoices.GenerateInvoiceNumber(f.invoices.invoiceRepo, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-202602-0001", number)
}

func TestInvoiceNumberAfterAffiliateDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	a := f.affiliate(t, "a@test.test", nil)
	b := f.affiliate(t, "b@test.test", nil)
	c := f.affiliate(t, "c@test.test", nil)
	for _, aff := range []*models.Affiliate{a, b, c} {
		f.commission(t, aff, 1000, march(10))
	}

	first, err := f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.NoError(t, err)
	second, err := f.invoices.CreateMonthlyInvoice(ctx, b.ID, 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-202604-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-202604-0002", second.InvoiceNumber)

	require.NoError(t, f.affiliates.Delete(ctx, 1, a.ID))

	third, err := f.invoices.CreateMonthlyInvoice(ctx, c.ID, 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-202604-0003", third.InvoiceNumber)
}

func TestCreateMonthlyInvoiceRetriesTakenNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	a := f.affiliate(t, "a@test.test", nil)
	other := f.affiliate(t, "other@test.test", nil)
	f.commission(t, a, 1000, march(10))

	// The first attempt finds its number already taken, as when another admin invoices a
	// different affiliate at the same moment.
	attempts := 0
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:take_number", func(db *gorm.DB) {
		inv, ok := db.Statement.Dest.(*models.AffiliateInvoice)
		if !ok || inv.AffiliateID != a.ID {
			return
		}
		attempts++
		if attempts > 1 {
			return
		}
		db.AddError(db.Session(&gorm.Session{NewDB: true}).Create(&models.AffiliateInvoice{
			AffiliateID: other.ID, InvoiceNumber: inv.InvoiceNumber, Month: 1, Year: 2026,
			Status: domain.InvoiceStatusPending, CreatedAt: f.now,
		}).Error)
	}))

	inv, err := f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "INV-202604-0001", inv.InvoiceNumber)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
}

func TestCreateMonthlyInvoiceConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.now = time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	a := f.affiliate(t, "a@test.test", nil)
	c1 := f.commission(t, a, 1000, march(3))
	c2 := f.commission(t, a, 2000, march(4))

	// Cancel one locked commission between the read and the linkage update.
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:cancel_locked", func(db *gorm.DB) {
		values, ok := db.Statement.Dest.(map[string]interface{})
		if !ok || db.Statement.Table != "affiliate_commissions" {
			return
		}
		if _, linking := values["invoice_id"]; !linking {
			return
		}
		db.AddError(db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE affiliate_commissions SET status = ? WHERE id = ?", domain.CommissionStatusCancelled, c2.ID).Error)
	}))

	_, err := f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.ErrorIs(t, err, domain.ErrInvoiceConflict)

	var invoices int64
	f.db.Model(&models.AffiliateInvoice{}).Count(&invoices)
	assert.Zero(t, invoices)
	for _, id := range []uint{c1.ID, c2.ID} {
		var c models.AffiliateCommission
		require.NoError(t, f.db.First(&c, id).Error)
		assert.Equal(t, domain.CommissionStatusPending, c.Status)
		assert.Nil(t, c.InvoiceID)
	}
}

func TestMarkInvoiceAsPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "a@test.test", nil)
	f.commission(t, a, 1500, march(4))
	inv, err := f.invoices.CreateMonthlyInvoice(ctx, a.ID, 3, 2026)
	require.NoError(t, err)

	paid, err := f.invoices.MarkAsPaid(ctx, 1, inv.ID, "bank_transfer", "ref 42")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(f.now))

	_, err = f.invoices.MarkAsPaid(ctx, 1, inv.ID, "bank_transfer", "")
	require.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)

	_, err = f.invoices.GetForAffiliate(inv.ID, a.ID+100)
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestGenerateMonthlyInvoices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.Set(domain.SettingMinPayoutCents, "1000"))
	big := f.affiliate(t, "big@test.test", nil)
	small := f.affiliate(t, "small@test.test", nil)
	empty := f.affiliate(t, "empty@test.test", nil)
	inactive := f.affiliate(t, "inactive@test.test", nil)
	f.commission(t, big, 1200, march(2))
	smallC := f.commission(t, small, 400, march(2))
	f.commission(t, inactive, 5000, march(2))
	_, err := f.affiliates.SetActive(ctx, 1, inactive.ID, false)
	require.NoError(t, err)

	created, err := f.invoices.GenerateMonthlyInvoices(ctx, 3, 2026)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, big.ID, created[0].AffiliateID)

	list, err := f.invoices.ListByAffiliate(empty.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	var c models.AffiliateCommission
	require.NoError(t, f.db.First(&c, smallC.ID).Error)
	assert.Equal(t, domain.CommissionStatusPending, c.Status)

	again, err := f.invoices.GenerateMonthlyInvoices(ctx, 3, 2026)
	require.NoError(t, err)
	assert.Empty(t, again)
}
