package logic

import (
	"testing"

	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/database"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testProtocol() config.ProtocolConfig {
	return config.ProtocolConfig{
		InsuranceFeeBps:      200,
		InsuranceCoverageBps: 8000,
		SlashFractionBps:     5000,
		PayoutWindowSecs:     1000,
		ProposalTTLSecs:      3600,
		GovVotesRequired:     3,
		MissedReportsLimit:   3,
		MinActivePeriodDays:  30,
		DeclineThresholdBps:  7000,
	}
}

func testOracle() config.OracleConfig {
	return config.OracleConfig{
		Principal:        "oracle-aggregator",
		ReportWindowSecs: 7 * 86400,
	}
}

// newActiveCampaign 建一个募资中的活动和对应金库，返回活动ID
func newActiveCampaign(t *testing.T, db *gorm.DB, creator string, goal, shareBps int64) int64 {
	t.Helper()

	campaigns := NewCampaignLogic(db, testProtocol())
	campaign, err := campaigns.CreateCampaign(creator, &CreateCampaignRequest{
		Title:           "独立电影《浪潮》",
		Description:     "院线分账收益代币化",
		FundingGoal:     goal,
		RevenueShareBps: shareBps,
	})
	require.NoError(t, err)
	require.NoError(t, campaigns.PublishCampaign(creator, campaign.Id))
	return campaign.Id
}

// seedMembers 批量授予治理投票权
func seedMembers(t *testing.T, db *gorm.DB, members map[string]int64) *GovernanceLogic {
	t.Helper()

	gov := NewGovernanceLogic(db)
	for addr, power := range members {
		require.NoError(t, db.Create(&model.GovMemberModel{Address: addr, VotingPower: power}).Error)
	}
	return gov
}
