package model

import (
	"time"
)

// SlashReason 罚没原因
type SlashReason string

const (
	SlashReasonMissedRevenueReports SlashReason = "missed_revenue_reports" // 漏报收益
	SlashReasonRevenueFraud         SlashReason = "revenue_fraud"          // 收益造假
	SlashReasonProjectAbandonment   SlashReason = "project_abandonment"    // 项目弃置
	SlashReasonGovernanceDecision   SlashReason = "governance_decision"    // 治理决议
	SlashReasonOther                SlashReason = "other"                  // 其他
)

// SlashProposalStatus 罚没提案状态
type SlashProposalStatus string

const (
	SlashProposalStatusProposed SlashProposalStatus = "proposed" // 等待审批
	SlashProposalStatusExecuted SlashProposalStatus = "executed" // 已执行
	SlashProposalStatusExpired  SlashProposalStatus = "expired"  // 已过期
)

// SlashProposalModel 罚没提案
type SlashProposalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId    int64       `json:"campaign_id" gorm:"not null;index"`
	TargetCreator string      `json:"target_creator" gorm:"not null"`
	Reason        SlashReason `json:"reason" gorm:"not null"`
	ReasonDetail  string      `json:"reason_detail" gorm:"type:text"`
	Evidence      string      `json:"evidence" gorm:"type:text"` // JSON数组

	ProposedBy string              `json:"proposed_by" gorm:"not null"`
	Status     SlashProposalStatus `json:"status" gorm:"default:'proposed';index"`
	ExpiresAt  time.Time           `json:"expires_at" gorm:"not null"`
}

// TableName 自定义表名
func (SlashProposalModel) TableName() string {
	return "slash_proposal"
}

// SlashApprovalModel 罚没提案审批记录，每个成员一票
type SlashApprovalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProposalId int64  `json:"proposal_id" gorm:"not null;uniqueIndex:idx_slash_approval_proposal_approver"`
	Approver   string `json:"approver" gorm:"not null;uniqueIndex:idx_slash_approval_proposal_approver"`
}

// TableName 自定义表名
func (SlashApprovalModel) TableName() string {
	return "slash_approval"
}

// SlashEventModel 罚没执行记录，仅追加不修改
type SlashEventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignId    int64       `json:"campaign_id" gorm:"not null;index"`
	ProposalId    int64       `json:"proposal_id" gorm:"not null"`
	Creator       string      `json:"creator" gorm:"not null"`
	Reason        SlashReason `json:"reason" gorm:"not null"`
	AmountSlashed int64       `json:"amount_slashed" gorm:"not null"`
	ApprovedBy    string      `json:"approved_by" gorm:"type:text"`    // JSON数组
	Beneficiaries string      `json:"beneficiaries" gorm:"type:text"`  // JSON数组
	ExecutedAt    time.Time   `json:"executed_at" gorm:"not null"`
}

// TableName 自定义表名
func (SlashEventModel) TableName() string {
	return "slash_event"
}
