package model

import (
	"time"
)

// StreamType 释放曲线类型
type StreamType string

const (
	StreamTypeLinear      StreamType = "linear"      // 线性匀速释放
	StreamTypeCliff       StreamType = "cliff"       // 到期一次性释放
	StreamTypeExponential StreamType = "exponential" // 释放速率递增
)

// StreamModel 收益释放流
type StreamModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Recipient  string `json:"recipient" gorm:"not null;index"`

	// 金额（最小货币单位）
	TotalAmount     int64 `json:"total_amount" gorm:"not null"`
	ClaimedAmount   int64 `json:"claimed_amount" gorm:"default:0"`
	AmountPerSecond int64 `json:"amount_per_second" gorm:"default:0"`

	// 释放窗口（Unix秒）
	StartAt int64 `json:"start_at" gorm:"not null"`
	EndAt   int64 `json:"end_at" gorm:"not null"`

	StreamType StreamType `json:"stream_type" gorm:"not null"`

	// 暂停或领完后置为false；领完为终态
	IsActive bool `json:"is_active" gorm:"default:true"`

	// 是否为分配任务自动开设的收益流
	IsPayout bool `json:"is_payout" gorm:"default:false"`
}

// Exhausted 是否已全部领取
func (s *StreamModel) Exhausted() bool {
	return s.ClaimedAmount >= s.TotalAmount
}

// TableName 自定义表名
func (StreamModel) TableName() string {
	return "stream"
}
