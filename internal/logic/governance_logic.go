package logic

import (
	"errors"
	"time"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// GovernanceLogic 治理业务逻辑：成员投票权、提案与投票
type GovernanceLogic struct {
	db *gorm.DB
}

// NewGovernanceLogic 创建治理业务逻辑
func NewGovernanceLogic(db *gorm.DB) *GovernanceLogic {
	return &GovernanceLogic{db: db}
}

// Bootstrap 初始化创始成员，幂等
func (l *GovernanceLogic) Bootstrap(member string, power int64) error {
	if member == "" || power <= 0 {
		return nil
	}
	var existing model.GovMemberModel
	err := l.db.Where("address = ?", member).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Info("Bootstrapping governance member %s with power %d", member, power)
		return l.db.Create(&model.GovMemberModel{Address: member, VotingPower: power}).Error
	}
	return err
}

// VotingPower 查询成员投票权，非成员为0
func (l *GovernanceLogic) VotingPower(address string) (int64, error) {
	var member model.GovMemberModel
	err := l.db.Where("address = ?", address).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return member.VotingPower, nil
}

// IsMember 是否为持有投票权的治理成员
func (l *GovernanceLogic) IsMember(address string) (bool, error) {
	power, err := l.VotingPower(address)
	if err != nil {
		return false, err
	}
	return power > 0, nil
}

// GrantVotingPower 授予投票权，授予者需持有至少50票
func (l *GovernanceLogic) GrantVotingPower(caller, member string, power int64) error {
	callerPower, err := l.VotingPower(caller)
	if err != nil {
		return err
	}
	if callerPower < 50 {
		return apperr.New(apperr.KindUnauthorized, "caller", "投票权不足，无法授予他人投票权")
	}
	if power < 0 {
		return apperr.New(apperr.KindInvalidAmount, "power", "投票权不能为负数")
	}

	var existing model.GovMemberModel
	err = l.db.Where("address = ?", member).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return l.db.Create(&model.GovMemberModel{Address: member, VotingPower: power}).Error
	}
	if err != nil {
		return err
	}
	return l.db.Model(&existing).Update("voting_power", power).Error
}

// CreateProposal 创建治理提案
func (l *GovernanceLogic) CreateProposal(caller, title, description string, kind model.GovProposalKind, votingPeriod time.Duration) (*model.GovProposalModel, error) {
	power, err := l.VotingPower(caller)
	if err != nil {
		return nil, err
	}
	if power <= 0 {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "没有投票权，不能发起提案")
	}
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidState, "title", "提案标题不能为空")
	}
	if votingPeriod <= 0 {
		return nil, apperr.New(apperr.KindInvalidWindow, "voting_period", "投票期必须大于0")
	}

	proposal := &model.GovProposalModel{
		Proposer:    caller,
		Title:       title,
		Description: description,
		Kind:        kind,
		Deadline:    time.Now().Add(votingPeriod),
	}
	if err := l.db.Create(proposal).Error; err != nil {
		return nil, err
	}
	return proposal, nil
}

// Vote 投票，每个成员每提案一票
func (l *GovernanceLogic) Vote(caller string, proposalId int64, support bool) error {
	power, err := l.VotingPower(caller)
	if err != nil {
		return err
	}
	if power <= 0 {
		return apperr.New(apperr.KindUnauthorized, "caller", "没有投票权")
	}

	proposal, err := l.GetProposal(proposalId)
	if err != nil {
		return err
	}
	if time.Now().After(proposal.Deadline) {
		return apperr.New(apperr.KindInvalidState, "deadline", "投票期已结束")
	}

	var count int64
	l.db.Model(&model.GovVoteModel{}).
		Where("proposal_id = ? AND voter = ?", proposalId, caller).
		Count(&count)
	if count > 0 {
		return apperr.New(apperr.KindInvalidState, "voter", "已经投过票")
	}

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	vote := model.GovVoteModel{
		ProposalId: proposalId,
		Voter:      caller,
		Support:    support,
		Power:      power,
	}
	if err := tx.Create(&vote).Error; err != nil {
		tx.Rollback()
		return err
	}

	column := "votes_against"
	if support {
		column = "votes_for"
	}
	if err := tx.Model(proposal).Update(column, gorm.Expr(column+" + ?", power)).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// ExecuteProposal 投票期结束后执行提案，简单多数通过
func (l *GovernanceLogic) ExecuteProposal(caller string, proposalId int64) (bool, error) {
	proposal, err := l.GetProposal(proposalId)
	if err != nil {
		return false, err
	}
	if time.Now().Before(proposal.Deadline) {
		return false, apperr.New(apperr.KindInvalidState, "deadline", "投票期尚未结束")
	}
	if proposal.Executed {
		return false, apperr.New(apperr.KindInvalidState, "executed", "提案已执行")
	}

	passed := proposal.VotesFor > proposal.VotesAgainst
	if err := l.db.Model(proposal).Update("executed", true).Error; err != nil {
		return false, err
	}

	logger.Info("Governance proposal %d executed by %s: passed=%v for=%d against=%d",
		proposalId, caller, passed, proposal.VotesFor, proposal.VotesAgainst)
	return passed, nil
}

// GetProposal 获取提案
func (l *GovernanceLogic) GetProposal(proposalId int64) (*model.GovProposalModel, error) {
	var proposal model.GovProposalModel
	if err := l.db.First(&proposal, proposalId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "proposal_id", "提案不存在: %d", proposalId)
		}
		return nil, err
	}
	return &proposal, nil
}

// GetProposals 获取提案列表
func (l *GovernanceLogic) GetProposals(activeOnly bool) ([]model.GovProposalModel, error) {
	var proposals []model.GovProposalModel
	query := l.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("deadline > ? AND executed = ?", time.Now(), false)
	}
	if err := query.Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}
