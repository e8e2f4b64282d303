package model

import (
	"time"
)

// MintStatus 铸造任务状态
type MintStatus string

const (
	MintStatusPending MintStatus = "pending" // 待铸造
	MintStatusMinted  MintStatus = "minted"  // 已铸造
	MintStatusStale   MintStatus = "stale"   // 超时待人工重试
)

// PendingMintModel NFT铸造任务。投资成功后登记，由后台任务异步提交，
// 铸造失败不回滚投资账本。
type PendingMintModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RequestId  string `json:"request_id" gorm:"not null;uniqueIndex"`
	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Backer     string `json:"backer" gorm:"not null"`

	Amount   int64 `json:"amount" gorm:"not null"`
	ShareBps int64 `json:"share_bps" gorm:"not null"`

	Status        MintStatus `json:"status" gorm:"default:'pending';index"`
	Attempts      int64      `json:"attempts" gorm:"default:0"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	LastError     string     `json:"last_error" gorm:"type:text"`
	TokenId       *int64     `json:"token_id"`
}

// TableName 自定义表名
func (PendingMintModel) TableName() string {
	return "pending_mint"
}
