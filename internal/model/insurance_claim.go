package model

import (
	"time"
)

// ClaimStatus 理赔状态
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"  // 待审核
	ClaimStatusApproved ClaimStatus = "approved" // 已批准
	ClaimStatusRejected ClaimStatus = "rejected" // 已驳回
	ClaimStatusPaid     ClaimStatus = "paid"     // 已赔付
)

// InsuranceClaimModel 保险理赔申请
type InsuranceClaimModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Claimer    string `json:"claimer" gorm:"not null;index"`

	// 理赔金额（已按承保比例封顶）
	Amount   int64  `json:"amount" gorm:"not null"`
	Reason   string `json:"reason" gorm:"type:text"`
	Evidence string `json:"evidence" gorm:"type:text"` // JSON数组

	Status     ClaimStatus `json:"status" gorm:"default:'pending';index"`
	FiledAt    time.Time   `json:"filed_at" gorm:"not null"`
	Approver   *string     `json:"approver"`
	ResolvedAt *time.Time  `json:"resolved_at"`
	Note       string      `json:"note" gorm:"type:text"`
}

// TableName 自定义表名
func (InsuranceClaimModel) TableName() string {
	return "insurance_claim"
}
