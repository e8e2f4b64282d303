package model

import (
	"time"
)

// GovMemberModel 治理成员及其投票权
type GovMemberModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address     string `json:"address" gorm:"not null;uniqueIndex"`
	VotingPower int64  `json:"voting_power" gorm:"default:0"`
}

// TableName 自定义表名
func (GovMemberModel) TableName() string {
	return "gov_member"
}

// GovProposalKind 治理提案类型
type GovProposalKind string

const (
	GovProposalKindParameterChange GovProposalKind = "parameter_change" // 参数变更
	GovProposalKindTreasury        GovProposalKind = "treasury"         // 金库支出
	GovProposalKindText            GovProposalKind = "text"             // 文本提案
)

// GovProposalModel 治理提案
type GovProposalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Proposer    string          `json:"proposer" gorm:"not null"`
	Title       string          `json:"title" gorm:"not null"`
	Description string          `json:"description" gorm:"type:text"`
	Kind        GovProposalKind `json:"kind" gorm:"not null"`

	VotesFor     int64     `json:"votes_for" gorm:"default:0"`
	VotesAgainst int64     `json:"votes_against" gorm:"default:0"`
	Deadline     time.Time `json:"deadline" gorm:"not null"`
	Executed     bool      `json:"executed" gorm:"default:false"`
}

// TableName 自定义表名
func (GovProposalModel) TableName() string {
	return "gov_proposal"
}

// GovVoteModel 投票记录，每个成员每提案一票
type GovVoteModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProposalId int64  `json:"proposal_id" gorm:"not null;uniqueIndex:idx_gov_vote_proposal_voter"`
	Voter      string `json:"voter" gorm:"not null;uniqueIndex:idx_gov_vote_proposal_voter"`
	Support    bool   `json:"support" gorm:"not null"`
	Power      int64  `json:"power" gorm:"not null"`
}

// TableName 自定义表名
func (GovVoteModel) TableName() string {
	return "gov_vote"
}
