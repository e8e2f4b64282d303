package model

import (
	"time"
)

// OracleSourceModel 活动的收益数据源配置
type OracleSourceModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Platform   string `json:"platform" gorm:"not null"`
	Url        string `json:"url" gorm:"not null"`

	// JSON响应中收益字段的点分路径，如 data.revenue.amount
	DataPath   string `json:"data_path" gorm:"not null"`
	AuthHeader string `json:"auth_header"`

	// 拉取周期（秒）
	UpdateFrequencySecs int64      `json:"update_frequency_secs" gorm:"default:3600"`
	LastPolledAt        *time.Time `json:"last_polled_at"`
	IsActive            bool       `json:"is_active" gorm:"default:true"`
}

// TableName 自定义表名
func (OracleSourceModel) TableName() string {
	return "oracle_source"
}
