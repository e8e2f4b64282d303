package model

import (
	"time"
)

// RevenueUpdateModel 收益上报记录，仅追加不修改
type RevenueUpdateModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Amount     int64  `json:"amount" gorm:"not null"`
	Source     string `json:"source" gorm:"not null"`
	ReportedBy string `json:"reported_by" gorm:"not null"`

	// 是否经预言机验证，未验证的上报不触发分配
	OracleVerified bool `json:"oracle_verified" gorm:"default:false"`

	// 去重键，防止同一窗口重复上报
	DedupeKey string `json:"dedupe_key" gorm:"uniqueIndex"`
}

// TableName 自定义表名
func (RevenueUpdateModel) TableName() string {
	return "revenue_update"
}
