package model

import (
	"time"
)

// VaultModel 活动金库，与活动一一对应
type VaultModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;uniqueIndex"`
	Creator    string `json:"creator" gorm:"not null"`

	// 募资账本（最小货币单位，单调不减）
	FundingGoal     int64 `json:"funding_goal" gorm:"not null"`
	RevenueShareBps int64 `json:"revenue_share_bps" gorm:"not null"`
	CurrentFunding  int64 `json:"current_funding" gorm:"default:0"`
	TotalRevenue    int64 `json:"total_revenue" gorm:"default:0"`

	// 分配水位线：已进入分配的收益总额
	DistributedRevenue int64 `json:"distributed_revenue" gorm:"default:0"`
	// 本轮是否收到过已验证的收益上报
	PendingVerified bool `json:"pending_verified" gorm:"default:false"`

	// 保险池
	InsurancePoolBalance int64 `json:"insurance_pool_balance" gorm:"default:0"`
	InsuranceFeeBps      int64 `json:"insurance_fee_bps" gorm:"default:200"`
	InsuranceCoverageBps int64 `json:"insurance_coverage_bps" gorm:"default:8000"`

	// 收益上报监控
	MissedRevenueReports int64      `json:"missed_revenue_reports" gorm:"default:0"`
	LastVerifiedUpdateAt *time.Time `json:"last_verified_update_at"`

	// 罚没条件
	MinActivePeriodDays        int64 `json:"min_active_period_days" gorm:"default:30"`
	RevenueDeclineThresholdBps int64 `json:"revenue_decline_threshold_bps" gorm:"default:7000"`
	GovernanceVotesRequired    int64 `json:"governance_votes_required" gorm:"default:3"`
	MissedReportsThreshold     int64 `json:"missed_reports_threshold" gorm:"default:3"`
}

// TableName 自定义表名
func (VaultModel) TableName() string {
	return "vault"
}
