package logic

import (
	"testing"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvest_ShareAndInsuranceFee(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 50000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	// 50000目标、20%分成：投25000应得一半，即1000基点
	result, err := vaults.Invest("backer-1", campaignId, 25000)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1000), result.ShareBps)

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), state.Vault.CurrentFunding)
	// 2%保险费
	assert.Equal(t, int64(500), state.Vault.InsurancePoolBalance)

	require.Len(t, state.Backers, 1)
	assert.Equal(t, int64(25000), state.Backers[0].AmountInvested)
	assert.Equal(t, int64(1000), state.Backers[0].ShareBps)

	// 投资同时登记铸造任务
	var mints []model.PendingMintModel
	require.NoError(t, db.Where("campaign_id = ?", campaignId).Find(&mints).Error)
	require.Len(t, mints, 1)
	assert.Equal(t, model.MintStatusPending, mints[0].Status)
	assert.Equal(t, "backer-1", mints[0].Backer)
}

func TestInvest_CapsAtRemainingGoal(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 3000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 8000)
	require.NoError(t, err)

	// 超出剩余额度的部分截断
	result, err := vaults.Invest("backer-2", campaignId, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000*3000/10000), result.ShareBps)

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), state.Vault.CurrentFunding)

	// 出资总额始终等于当前募资额
	var sum int64
	for _, b := range state.Backers {
		sum += b.AmountInvested
	}
	assert.Equal(t, state.Vault.CurrentFunding, sum)

	// 满额后活动转为已达标，不再接受投资
	var campaign model.CampaignModel
	require.NoError(t, db.First(&campaign, campaignId).Error)
	assert.Equal(t, model.CampaignStatusFunded, campaign.Status)

	_, err = vaults.Invest("backer-3", campaignId, 100)
	assert.True(t, apperr.IsKind(err, apperr.KindCampaignNotActive))
}

func TestInvest_Validation(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))

	_, err = vaults.Invest("backer-1", 9999, 100)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestInvest_RepeatAccumulates(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 100000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 10000)
	require.NoError(t, err)
	_, err = vaults.Invest("backer-1", campaignId, 30000)
	require.NoError(t, err)

	backer, err := vaults.GetBackerInfo(campaignId, "backer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), backer.AmountInvested)
	assert.Equal(t, int64(800), backer.ShareBps)
}

func TestUpdateRevenue_VerifiedRequiresOracle(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	err := vaults.UpdateRevenue("random-caller", campaignId, 5000, "netflix", true, "")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// 未验证的上报任何人都可以提交
	require.NoError(t, vaults.UpdateRevenue("creator-1", campaignId, 5000, "netflix", false, ""))

	// 预言机身份可提交已验证上报
	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 3000, "netflix", true, ""))

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), state.Vault.TotalRevenue)
	assert.True(t, state.Vault.PendingVerified)
	assert.Equal(t, int64(0), state.Vault.MissedRevenueReports)
	assert.NotNil(t, state.Vault.LastVerifiedUpdateAt)
}

func TestUpdateRevenue_DedupeKeyIdempotent(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 5000, "netflix", true, "window-1"))
	// 同一去重键重复上报不再入账
	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 5000, "netflix", true, "window-1"))

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), state.Vault.TotalRevenue)
	assert.Len(t, state.RevenueHistory, 1)
}

func TestDistributePayouts_SharesAndIdempotence(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 5000) // 1000 bps
	require.NoError(t, err)
	_, err = vaults.Invest("backer-2", campaignId, 2500) // 500 bps
	require.NoError(t, err)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 100000, "netflix", true, ""))

	payouts, err := vaults.DistributePayouts(campaignId)
	require.NoError(t, err)
	require.Len(t, payouts, 2)

	byRecipient := map[string]int64{}
	for _, p := range payouts {
		byRecipient[p.Recipient] = p.Amount
	}
	assert.Equal(t, int64(10000), byRecipient["backer-1"])
	assert.Equal(t, int64(5000), byRecipient["backer-2"])

	// 同一轮次重复分配返回空
	payouts, err = vaults.DistributePayouts(campaignId)
	require.NoError(t, err)
	assert.Empty(t, payouts)

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), state.Vault.DistributedRevenue)
	assert.False(t, state.Vault.PendingVerified)
}

func TestDistributePayouts_RequiresVerifiedUpdate(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 5000)
	require.NoError(t, err)

	// 只有未验证的上报，不触发分配
	require.NoError(t, vaults.UpdateRevenue("creator-1", campaignId, 50000, "manual", false, ""))

	payouts, err := vaults.DistributePayouts(campaignId)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

func TestDistributePayouts_ExtendsExistingStream(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 5000)
	require.NoError(t, err)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 40000, "netflix", true, "w1"))
	first, err := vaults.DistributePayouts(campaignId)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, vaults.UpdateRevenue("oracle-aggregator", campaignId, 40000, "netflix", true, "w2"))
	second, err := vaults.DistributePayouts(campaignId)
	require.NoError(t, err)
	require.Len(t, second, 1)

	// 第二轮续用同一条分配流
	assert.Equal(t, first[0].StreamId, second[0].StreamId)

	var stream model.StreamModel
	require.NoError(t, db.First(&stream, first[0].StreamId).Error)
	assert.Equal(t, int64(8000), stream.TotalAmount)
	assert.True(t, stream.IsPayout)
}

func TestGetFundingProgress(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 50000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	_, err := vaults.Invest("backer-1", campaignId, 25000)
	require.NoError(t, err)

	progress, err := vaults.GetFundingProgress(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), progress.CurrentFunding)
	assert.Equal(t, int64(50000), progress.FundingGoal)
	assert.InDelta(t, 50.0, progress.Percentage, 0.001)
}

func TestUpdateInsuranceSettings_Authorization(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())

	fee := int64(300)
	err := vaults.UpdateInsuranceSettings("stranger", campaignId,
		&InsuranceSettingsUpdate{FeeBps: &fee}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	require.NoError(t, vaults.UpdateInsuranceSettings("creator-1", campaignId,
		&InsuranceSettingsUpdate{FeeBps: &fee}, false))

	// 治理成员同样可以更新
	coverage := int64(9000)
	require.NoError(t, vaults.UpdateInsuranceSettings("gov-member", campaignId,
		&InsuranceSettingsUpdate{CoverageBps: &coverage}, true))

	state, err := vaults.GetVaultState(campaignId)
	require.NoError(t, err)
	assert.Equal(t, int64(300), state.Vault.InsuranceFeeBps)
	assert.Equal(t, int64(9000), state.Vault.InsuranceCoverageBps)

	// 超界拒绝
	badFee := int64(5000)
	err = vaults.UpdateInsuranceSettings("creator-1", campaignId,
		&InsuranceSettingsUpdate{FeeBps: &badFee}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}
