package model

import (
	"time"
)

// BackerModel 活动出资人
type BackerModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;uniqueIndex:idx_backer_campaign_address"`
	Address    string `json:"address" gorm:"not null;uniqueIndex:idx_backer_campaign_address"`

	// 出资金额（最小货币单位）与分成比例（基点），投资时点确定
	AmountInvested int64     `json:"amount_invested" gorm:"not null"`
	ShareBps       int64     `json:"share_bps" gorm:"not null"`
	InvestedAt     time.Time `json:"invested_at" gorm:"not null"`

	// 收益流累计已领取金额
	TotalClaimed int64 `json:"total_claimed" gorm:"default:0"`

	// NFT凭证，铸造完成后回填
	NftTokenId *int64 `json:"nft_token_id"`
}

// TableName 自定义表名
func (BackerModel) TableName() string {
	return "backer"
}
