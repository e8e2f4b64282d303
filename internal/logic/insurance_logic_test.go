package logic

import (
	"testing"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInsuranceFixture(t *testing.T) (*gorm.DB, *InsuranceLogic, *VaultLogic, int64) {
	t.Helper()

	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	gov := seedMembers(t, db, map[string]int64{"gov-1": 100})
	vaults := NewVaultLogic(db, testProtocol(), testOracle())
	insurance := NewInsuranceLogic(db, gov)

	_, err := vaults.Invest("backer-1", campaignId, 5000)
	require.NoError(t, err)
	return db, insurance, vaults, campaignId
}

// markEligible 制造持续漏报，使活动满足理赔条件
func markEligible(t *testing.T, db *gorm.DB, campaignId int64) {
	t.Helper()
	require.NoError(t, db.Model(&model.VaultModel{}).
		Where("campaign_id = ?", campaignId).
		Update("missed_revenue_reports", 3).Error)
}

func TestFileClaim_EligibilityAndCap(t *testing.T) {
	db, insurance, _, campaignId := newInsuranceFixture(t)

	// 活动正常运行时不满足理赔条件
	_, err := insurance.FileClaim("backer-1", campaignId, 1000, "收益中断", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	markEligible(t, db, campaignId)

	// 非出资人不能申请
	_, err = insurance.FileClaim("stranger", campaignId, 1000, "收益中断", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// 理赔金额按承保比例封顶：5000 × 80% = 4000
	claim, err := insurance.FileClaim("backer-1", campaignId, 999999, "收益中断", []string{"url"})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), claim.Amount)
	assert.Equal(t, model.ClaimStatusPending, claim.Status)
}

func TestProcessClaim_Transitions(t *testing.T) {
	db, insurance, _, campaignId := newInsuranceFixture(t)
	markEligible(t, db, campaignId)

	claim, err := insurance.FileClaim("backer-1", campaignId, 1000, "收益中断", nil)
	require.NoError(t, err)

	// 无关人员不能审核
	err = insurance.ProcessClaim("stranger", claim.Id, true, "")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// 治理成员批准
	require.NoError(t, insurance.ProcessClaim("gov-1", claim.Id, true, "证据充分"))

	got, err := insurance.GetClaim(claim.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusApproved, got.Status)
	require.NotNil(t, got.Approver)
	assert.Equal(t, "gov-1", *got.Approver)
	assert.NotNil(t, got.ResolvedAt)

	// 已批准的理赔不可再审核
	err = insurance.ProcessClaim("creator-1", claim.Id, false, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestProcessClaim_Reject(t *testing.T) {
	db, insurance, _, campaignId := newInsuranceFixture(t)
	markEligible(t, db, campaignId)

	claim, err := insurance.FileClaim("backer-1", campaignId, 1000, "收益中断", nil)
	require.NoError(t, err)

	require.NoError(t, insurance.ProcessClaim("creator-1", claim.Id, false, "证据不足"))

	got, err := insurance.GetClaim(claim.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusRejected, got.Status)

	// 被拒绝的理赔不能支付
	err = insurance.PayClaim("creator-1", claim.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestPayClaim_PoolBalance(t *testing.T) {
	db, insurance, vaults, campaignId := newInsuranceFixture(t)
	markEligible(t, db, campaignId)

	// 投资5000带来100保险费，先批一笔1000的理赔
	claim, err := insurance.FileClaim("backer-1", campaignId, 1000, "收益中断", nil)
	require.NoError(t, err)
	require.NoError(t, insurance.ProcessClaim("gov-1", claim.Id, true, ""))

	// 池内只有100，支付失败且理赔保持approved
	err = insurance.PayClaim("gov-1", claim.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientPoolBalance))

	got, err := insurance.GetClaim(claim.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusApproved, got.Status)

	// 补足池子后重试成功
	require.NoError(t, db.Model(&model.VaultModel{}).
		Where("campaign_id = ?", campaignId).
		Update("insurance_pool_balance", 5000).Error)

	require.NoError(t, insurance.PayClaim("gov-1", claim.Id))

	got, err = insurance.GetClaim(claim.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusPaid, got.Status)

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), state.Vault.InsurancePoolBalance)
}

func TestFileClaim_EligibleAfterSlash(t *testing.T) {
	db, insurance, _, campaignId := newInsuranceFixture(t)

	// 有罚没事件即可理赔，不依赖漏报计数
	require.NoError(t, db.Create(&model.SlashEventModel{
		CampaignId:    campaignId,
		ProposalId:    1,
		Creator:       "creator-1",
		Reason:        model.SlashReasonGovernanceDecision,
		AmountSlashed: 1000,
	}).Error)

	claim, err := insurance.FileClaim("backer-1", campaignId, 500, "创建者被罚没", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claim.Amount)
}

func TestGetClaims_Filters(t *testing.T) {
	db, insurance, _, campaignId := newInsuranceFixture(t)
	markEligible(t, db, campaignId)

	_, err := insurance.FileClaim("backer-1", campaignId, 100, "a", nil)
	require.NoError(t, err)
	_, err = insurance.FileClaim("backer-1", campaignId, 200, "b", nil)
	require.NoError(t, err)

	claims, err := insurance.GetClaims(campaignId, "")
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	claims, err = insurance.GetClaims(campaignId, "backer-1")
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	claims, err = insurance.GetClaims(campaignId, "nobody")
	require.NoError(t, err)
	assert.Empty(t, claims)
}
