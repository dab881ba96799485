package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)

func TestGenerateUniqueCode(t *testing.T) {
	f := newFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := f.affiliates.GenerateUniqueCode(f.affiliates.affiliateRepo)
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestGenerateUniqueCodeSkipsTakenCodes(t *testing.T) {
	f := newFixture(t)
	taken := f.affiliate(t, "taken@test.test", nil)
	other := f.affiliate(t, "other@test.test", nil)

	draws := []string{taken.UniqueCode, other.UniqueCode, taken.UniqueCode, "FRESHCODE001"}
	calls := 0
	f.affiliates.SetCodeSource(func(n int) (string, error) {
		assert.Equal(t, domain.AffiliateCodeLength, n)
		code := draws[calls]
		calls++
		return code, nil
	})

	code, err := f.affiliates.GenerateUniqueCode(f.affiliates.affiliateRepo)
	require.NoError(t, err)
	assert.Equal(t, "FRESHCODE001", code)
	assert.Equal(t, len(draws), calls)

	// CreateForUser goes through the same retry.
	calls = 0
	draws = []string{taken.UniqueCode, "FRESHCODE002"}
	u := f.user(t, "new@test.test", domain.RoleAffiliate)
	a, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "FRESHCODE002", a.UniqueCode)
}

func TestGenerateUniqueCodeSourceError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("entropy exhausted")
	f.affiliates.SetCodeSource(func(int) (string, error) { return "", boom })
	_, err := f.affiliates.GenerateUniqueCode(f.affiliates.affiliateRepo)
	require.ErrorIs(t, err, boom)
}

func TestCreateForUser(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "aff@test.test", domain.RoleAffiliate)

	a, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)
	assert.Regexp(t, codePattern, a.UniqueCode)
	assert.Equal(t, 10.0, a.CommissionRate)
	assert.Equal(t, 5.0, a.ReferralBonusRate)
	assert.False(t, a.IsActive)
	assert.False(t, a.ContractSigned)
	assert.Equal(t, "https://learnhub.test/sales/"+a.UniqueCode, f.affiliates.Link(a))

	_, err = f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.ErrorIs(t, err, domain.ErrAffiliateExists)
}

func TestCreateForUserUsesSettingOverrides(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.settings.Set(domain.SettingDefaultCommissionRate, "12.5"))
	u := f.user(t, "aff@test.test", domain.RoleAffiliate)

	a, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, a.CommissionRate)
	assert.Equal(t, 5.0, a.ReferralBonusRate)
}

func TestSignContract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "aff@test.test", domain.RoleAffiliate)
	created, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)

	t.Run("blank signature", func(t *testing.T) {
		_, err := f.affiliates.SignContract(ctx, u.ID, "   ")
		require.ErrorIs(t, err, domain.ErrSignatureRequired)
		stored, err := f.affiliates.GetByID(created.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.False(t, stored.ContractSigned)
	})

	t.Run("signs and activates", func(t *testing.T) {
		a, err := f.affiliates.SignContract(ctx, u.ID, "Jane Doe")
		require.NoError(t, err)
		assert.True(t, a.IsActive)
		stored, err := f.affiliates.GetByID(created.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
		assert.True(t, stored.ContractSigned)
		require.NotNil(t, stored.ContractSignedAt)
		assert.True(t, stored.ContractSignedAt.Equal(f.now))

		var audits int64
		f.db.Model(&models.AuditLog{}).Where("action = ?", "affiliate.contract_signed").Count(&audits)
		assert.EqualValues(t, 1, audits)
	})

	t.Run("second signature", func(t *testing.T) {
		_, err := f.affiliates.SignContract(ctx, u.ID, "Jane Doe")
		require.ErrorIs(t, err, domain.ErrContractAlreadySigned)
	})
}

func TestOnboardingViaService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "aff@test.test", domain.RoleAffiliate)
	_, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)

	a, err := f.affiliates.UpdateBankInfo(ctx, u.ID, BankInfo{
		BankName:          "Bank",
		AccountHolderName: "Jane Doe",
		IBAN:              "de89 3704 0044 0532 0130 00",
	})
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", a.IBAN)
	assert.True(t, a.IsBankInfoComplete())
	assert.False(t, a.IsOnboardingComplete())

	_, err = f.affiliates.UpdateCompanyInfo(ctx, u.ID, CompanyInfo{CompanyName: "Doe Ltd", CompanyAddress: "1 Main St"})
	require.NoError(t, err)
	_, err = f.affiliates.SignContract(ctx, u.ID, "Jane Doe")
	require.NoError(t, err)

	stored, err := f.affiliates.GetForUser(u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOnboardingComplete())
}

func TestSetRatesValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.affiliate(t, "aff@test.test", nil)

	_, err := f.affiliates.SetRates(ctx, 1, a.ID, 120, 5)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	updated, err := f.affiliates.SetRates(ctx, 1, a.ID, 15, 7.5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.CommissionRate)
	assert.Equal(t, 7.5, updated.ReferralBonusRate)

	_, err = f.affiliates.SetRates(ctx, 1, 9999, 15, 5)
	require.ErrorIs(t, err, domain.ErrAffiliateNotFound)
}

func TestDeleteAffiliateKeepsReferrals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	parent := f.affiliate(t, "parent@test.test", nil)
	child := f.affiliate(t, "child@test.test", parent)
	f.commission(t, parent, 500, f.now)
	_, _, err := f.attribution.RecordClick(ctx, Visit{Code: parent.UniqueCode})
	require.NoError(t, err)

	require.NoError(t, f.affiliates.Delete(ctx, 1, parent.ID))

	_, err = f.affiliates.GetByID(parent.ID)
	require.ErrorIs(t, err, domain.ErrAffiliateNotFound)
	stored, err := f.affiliates.GetByID(child.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RecommendedByID)

	var clicks, commissions int64
	f.db.Model(&models.AffiliateClick{}).Where("affiliate_id = ?", parent.ID).Count(&clicks)
	f.db.Model(&models.AffiliateCommission{}).Where("affiliate_id = ?", parent.ID).Count(&commissions)
	assert.Zero(t, clicks)
	assert.Zero(t, commissions)
}

func TestRecommendationWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	recommender := f.affiliate(t, "rec@test.test", nil)
	in := RecommendationInput{Name: "Candidate", Email: "Candidate@Test.test"}

	_, err := f.affiliates.SubmitRequest(ctx, recommender.UserID, in)
	require.ErrorIs(t, err, domain.ErrRecommendForbidden)

	_, err = f.affiliates.SetCanRecommend(ctx, 1, recommender.ID, true)
	require.NoError(t, err)
	req, err := f.affiliates.SubmitRequest(ctx, recommender.UserID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, "candidate@test.test", req.Email)

	created, err := f.affiliates.ApproveRequest(ctx, 1, req.ID, "hash")
	require.NoError(t, err)
	require.NotNil(t, created.RecommendedByID)
	assert.Equal(t, recommender.ID, *created.RecommendedByID)
	assert.False(t, created.IsActive)

	_, err = f.affiliates.ApproveRequest(ctx, 1, req.ID, "hash")
	require.ErrorIs(t, err, domain.ErrRequestReviewed)
	require.ErrorIs(t, f.affiliates.RejectRequest(ctx, 1, req.ID), domain.ErrRequestReviewed)

	refs, err := f.affiliates.ListReferrals(recommender.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, created.ID, refs[0].ID)
}

func TestSubmitRequestInactiveAffiliate(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "aff@test.test", domain.RoleAffiliate)
	_, err := f.affiliates.CreateForUser(f.db, u.ID, nil)
	require.NoError(t, err)

	_, err = f.affiliates.SubmitRequest(context.Background(), u.ID, RecommendationInput{Name: "C", Email: "c@test.test"})
	require.ErrorIs(t, err, domain.ErrAffiliateInactive)
}
