package model

import (
	"time"
)

// CampaignModel 收益代币化活动
type CampaignModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	Creator     string `json:"creator" gorm:"not null;index"`

	// 募资信息（最小货币单位）
	FundingGoal int64 `json:"funding_goal" gorm:"not null" binding:"required,min=1"`

	// 收益分成比例（基点，1-10000）
	RevenueShareBps int64 `json:"revenue_share_bps" gorm:"not null"`

	// 收益数据源端点（JSON数组）
	OracleEndpoints string `json:"oracle_endpoints" gorm:"type:text"`

	// 排期（可空），设置后由后台任务自动推进状态
	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'draft';index"`
}

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"     // 草稿
	CampaignStatusActive    CampaignStatus = "active"    // 募资中
	CampaignStatusFunded    CampaignStatus = "funded"    // 已达标
	CampaignStatusCompleted CampaignStatus = "completed" // 已完结
	CampaignStatusCancelled CampaignStatus = "cancelled" // 已取消
)

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}
