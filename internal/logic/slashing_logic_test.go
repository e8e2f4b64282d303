package logic

import (
	"testing"
	"time"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSlashingFixture(t *testing.T) (*gorm.DB, *SlashingLogic, *VaultLogic, int64) {
	t.Helper()

	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	gov := seedMembers(t, db, map[string]int64{
		"gov-1": 100, "gov-2": 80, "gov-3": 60,
	})
	vaults := NewVaultLogic(db, testProtocol(), testOracle())
	slashing := NewSlashingLogic(db, gov, testProtocol())
	return db, slashing, vaults, campaignId
}

func TestProposeSlashing_MemberOnly(t *testing.T) {
	_, slashing, _, campaignId := newSlashingFixture(t)

	_, err := slashing.ProposeSlashing("stranger", campaignId, "creator-1",
		model.SlashReasonGovernanceDecision, "", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestProposeSlashing_TargetMustBeCreator(t *testing.T) {
	_, slashing, _, campaignId := newSlashingFixture(t)

	_, err := slashing.ProposeSlashing("gov-1", campaignId, "someone-else",
		model.SlashReasonGovernanceDecision, "", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestProposeSlashing_Thresholds(t *testing.T) {
	db, slashing, _, campaignId := newSlashingFixture(t)

	// 漏报未达阈值不能发起
	_, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonMissedRevenueReports, "", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindBelowThreshold))

	// 漏报达到阈值后放行
	require.NoError(t, db.Model(&model.VaultModel{}).
		Where("campaign_id = ?", campaignId).
		Update("missed_revenue_reports", 3).Error)

	proposal, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonMissedRevenueReports, "连续三期无上报", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SlashProposalStatusProposed, proposal.Status)

	// 其他原因需附证据
	_, err = slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonOther, "", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindBelowThreshold))
}

func TestProposeSlashing_RevenueFraudRequiresDeclineOrEvidence(t *testing.T) {
	_, slashing, vaults, campaignId := newSlashingFixture(t)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 10000, "netflix", true, "w1"))
	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 9000, "netflix", true, "w2"))

	// 下滑1000/10000=10% < 70%阈值，且无证据
	_, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonRevenueFraud, "", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindBelowThreshold))

	// 附证据放行
	_, err = slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonRevenueFraud, "", []string{"https://evidence.example/1"})
	require.NoError(t, err)

	// 暴跌80%自动放行
	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 1800, "netflix", true, "w3"))
	_, err = slashing.ProposeSlashing("gov-2", campaignId, "creator-1",
		model.SlashReasonRevenueFraud, "", nil)
	require.NoError(t, err)
}

func TestExecuteSlash_ApprovalThreshold(t *testing.T) {
	_, slashing, vaults, campaignId := newSlashingFixture(t)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 100000, "netflix", true, ""))

	proposal, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonGovernanceDecision, "治理决议", nil)
	require.NoError(t, err)

	// 发起人自动算一票审批，1票不够3票
	_, err = slashing.ExecuteSlash("gov-1", proposal.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientApprovals))

	require.NoError(t, slashing.ApproveSlashing("gov-2", proposal.Id))

	// 2票仍不够
	_, err = slashing.ExecuteSlash("gov-1", proposal.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientApprovals))

	// 同一成员重复审批拒绝
	err = slashing.ApproveSlashing("gov-2", proposal.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	require.NoError(t, slashing.ApproveSlashing("gov-3", proposal.Id))

	event, err := slashing.ExecuteSlash("gov-1", proposal.Id)
	require.NoError(t, err)

	// 创建者份额 100000*80% 的 50%
	assert.Equal(t, int64(40000), event.AmountSlashed)

	// 罚没金额进入保险池
	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), state.Vault.InsurancePoolBalance)

	// 已执行的提案不可重复执行
	_, err = slashing.ExecuteSlash("gov-1", proposal.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestExecuteSlash_RepeatSlashHalvesRemaining(t *testing.T) {
	_, slashing, vaults, campaignId := newSlashingFixture(t)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 100000, "netflix", true, ""))

	slashOnce := func(detail string) *model.SlashEventModel {
		proposal, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
			model.SlashReasonGovernanceDecision, detail, nil)
		require.NoError(t, err)
		require.NoError(t, slashing.ApproveSlashing("gov-2", proposal.Id))
		require.NoError(t, slashing.ApproveSlashing("gov-3", proposal.Id))
		event, err := slashing.ExecuteSlash("gov-1", proposal.Id)
		require.NoError(t, err)
		return event
	}

	first := slashOnce("第一次")
	assert.Equal(t, int64(40000), first.AmountSlashed)

	// 第二次对剩余 40000 再罚一半
	second := slashOnce("第二次")
	assert.Equal(t, int64(20000), second.AmountSlashed)

	events, err := slashing.GetSlashEvents(campaignId)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSlashProposal_Expiry(t *testing.T) {
	db, slashing, vaults, campaignId := newSlashingFixture(t)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 100000, "netflix", true, ""))

	proposal, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonGovernanceDecision, "", nil)
	require.NoError(t, err)

	// 把过期时间拨到过去
	require.NoError(t, db.Model(&model.SlashProposalModel{}).
		Where("id = ?", proposal.Id).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	err = slashing.ApproveSlashing("gov-2", proposal.Id)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	got, err := slashing.GetProposal(proposal.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SlashProposalStatusExpired, got.Status)
}

func TestExpireStaleProposals(t *testing.T) {
	db, slashing, vaults, campaignId := newSlashingFixture(t)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 100000, "netflix", true, ""))

	p1, err := slashing.ProposeSlashing("gov-1", campaignId, "creator-1",
		model.SlashReasonGovernanceDecision, "", nil)
	require.NoError(t, err)
	_, err = slashing.ProposeSlashing("gov-2", campaignId, "creator-1",
		model.SlashReasonGovernanceDecision, "", nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.SlashProposalModel{}).
		Where("id = ?", p1.Id).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	expired, err := slashing.ExpireStaleProposals()
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
}
