package logic

import (
	"testing"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVestedAmount_Linear(t *testing.T) {
	stream := &model.StreamModel{
		TotalAmount: 1000,
		StartAt:     0,
		EndAt:       1000,
		StreamType:  model.StreamTypeLinear,
	}

	assert.Equal(t, int64(0), vestedAmount(stream, -1))
	assert.Equal(t, int64(0), vestedAmount(stream, 0))
	assert.Equal(t, int64(500), vestedAmount(stream, 500))
	assert.Equal(t, int64(1000), vestedAmount(stream, 1000))
	assert.Equal(t, int64(1000), vestedAmount(stream, 5000))
}

func TestVestedAmount_Cliff(t *testing.T) {
	stream := &model.StreamModel{
		TotalAmount: 1000,
		StartAt:     0,
		EndAt:       1000,
		StreamType:  model.StreamTypeCliff,
	}

	// 到期前分文不释放，到期后全额
	assert.Equal(t, int64(0), vestedAmount(stream, 999))
	assert.Equal(t, int64(1000), vestedAmount(stream, 1000))
}

func TestVestedAmount_Exponential(t *testing.T) {
	stream := &model.StreamModel{
		TotalAmount: 10000,
		StartAt:     0,
		EndAt:       1000,
		StreamType:  model.StreamTypeExponential,
	}

	// total * elapsed^2 / duration^2
	assert.Equal(t, int64(0), vestedAmount(stream, 0))
	assert.Equal(t, int64(2500), vestedAmount(stream, 500))
	assert.Equal(t, int64(10000), vestedAmount(stream, 1000))

	// 速率单调递增，累计额单调不减
	prev := int64(0)
	for now := int64(0); now <= 1000; now += 50 {
		v := vestedAmount(stream, now)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestVestedAmount_NoOverflow(t *testing.T) {
	// 大额长周期下整数乘法不得溢出
	stream := &model.StreamModel{
		TotalAmount: 1 << 50,
		StartAt:     0,
		EndAt:       10 * 365 * 86400,
		StreamType:  model.StreamTypeExponential,
	}

	half := stream.EndAt / 2
	assert.Equal(t, stream.TotalAmount/4, vestedAmount(stream, half))
}

func TestCreateStream_Validation(t *testing.T) {
	db := newTestDB(t)
	streams := NewStreamLogic(db)

	_, err := streams.CreateStream("creator-1", "backer-1", 1, 0, 0, 1000, model.StreamTypeLinear)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAmount))

	_, err = streams.CreateStream("creator-1", "backer-1", 1, 1000, 1000, 1000, model.StreamTypeLinear)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidWindow))

	_, err = streams.CreateStream("creator-1", "backer-1", 1, 1000, 0, 1000, model.StreamType("sigmoid"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestClaimStream_LifecycleToExhaustion(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	streams := NewStreamLogic(db)

	stream, err := streams.CreateStream("creator-1", "backer-1", campaignId, 1000, 0, 1000, model.StreamTypeLinear)
	require.NoError(t, err)

	// 非收款人不能领取
	_, err = streams.ClaimStream("stranger", stream.Id, 500)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// 开始前没有可领取额度
	_, err = streams.ClaimStream("backer-1", stream.Id, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindNothingToClaim))

	// 中点领一半
	result, err := streams.ClaimStream("backer-1", stream.Id, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.ClaimedAmount)
	assert.Equal(t, int64(500), result.RemainingAmount)
	assert.Equal(t, int64(501), result.NextClaimTime)

	// 同一时刻再领，没有新增额度
	_, err = streams.ClaimStream("backer-1", stream.Id, 500)
	assert.True(t, apperr.IsKind(err, apperr.KindNothingToClaim))

	// 到期领完，收益流进入终态
	result, err = streams.ClaimStream("backer-1", stream.Id, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.ClaimedAmount)
	assert.Equal(t, int64(0), result.RemainingAmount)
	assert.Equal(t, int64(0), result.NextClaimTime)

	got, err := streams.GetStream(stream.Id)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, got.TotalAmount, got.ClaimedAmount)

	_, err = streams.ClaimStream("backer-1", stream.Id, 3000)
	assert.True(t, apperr.IsKind(err, apperr.KindStreamNotActive))
}

func TestClaimStream_CliffAndExponential(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	streams := NewStreamLogic(db)

	cliff, err := streams.CreateStream("creator-1", "backer-1", campaignId, 1000, 0, 1000, model.StreamTypeCliff)
	require.NoError(t, err)

	_, err = streams.ClaimStream("backer-1", cliff.Id, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNothingToClaim))

	result, err := streams.ClaimStream("backer-1", cliff.Id, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.ClaimedAmount)

	exp, err := streams.CreateStream("creator-1", "backer-2", campaignId, 10000, 0, 1000, model.StreamTypeExponential)
	require.NoError(t, err)

	result, err = streams.ClaimStream("backer-2", exp.Id, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), result.ClaimedAmount)

	result, err = streams.ClaimStream("backer-2", exp.Id, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), result.ClaimedAmount)
	assert.Equal(t, int64(0), result.RemainingAmount)
}

func TestClaimStream_UpdatesBackerTotalClaimed(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	vaults := NewVaultLogic(db, testProtocol(), testOracle())
	streams := NewStreamLogic(db)

	_, err := vaults.Invest("backer-1", campaignId, 5000)
	require.NoError(t, err)

	stream, err := streams.CreateStream("creator-1", "backer-1", campaignId, 1000, 0, 1000, model.StreamTypeLinear)
	require.NoError(t, err)

	_, err = streams.ClaimStream("backer-1", stream.Id, 1000)
	require.NoError(t, err)

	backer, err := vaults.GetBackerInfo(campaignId, "backer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), backer.TotalClaimed)
}

func TestPauseResumeStream(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	streams := NewStreamLogic(db)

	stream, err := streams.CreateStream("creator-1", "backer-1", campaignId, 1000, 0, 1000, model.StreamTypeLinear)
	require.NoError(t, err)

	// 无关人员不能暂停
	err = streams.PauseStream("stranger", stream.Id, false)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	require.NoError(t, streams.PauseStream("creator-1", stream.Id, false))

	_, err = streams.ClaimStream("backer-1", stream.Id, 500)
	assert.True(t, apperr.IsKind(err, apperr.KindStreamNotActive))

	// 治理成员可恢复
	require.NoError(t, streams.ResumeStream("gov-member", stream.Id, true))

	result, err := streams.ClaimStream("backer-1", stream.Id, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.ClaimedAmount)

	// 领完后不可恢复
	_, err = streams.ClaimStream("backer-1", stream.Id, 1000)
	require.NoError(t, err)
	err = streams.ResumeStream("creator-1", stream.Id, false)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestGetStreamStats(t *testing.T) {
	db := newTestDB(t)
	campaignId := newActiveCampaign(t, db, "creator-1", 10000, 2000)
	streams := NewStreamLogic(db)

	s1, err := streams.CreateStream("creator-1", "backer-1", campaignId, 1000, 0, 1000, model.StreamTypeLinear)
	require.NoError(t, err)
	_, err = streams.CreateStream("creator-1", "backer-2", campaignId, 2000, 0, 1000, model.StreamTypeLinear)
	require.NoError(t, err)

	_, err = streams.ClaimStream("backer-1", s1.Id, 1000)
	require.NoError(t, err)

	stats, err := streams.GetStreamStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalStreams)
	assert.Equal(t, int64(1), stats.ActiveStreams)
	assert.Equal(t, int64(3000), stats.TotalVolume)
	assert.Equal(t, int64(1000), stats.ClaimedVolume)
}
