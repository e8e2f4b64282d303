package logic

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// SlashingLogic 罚没业务逻辑。提案累积治理审批，达到阈值后可执行，
// 执行把创建者名下资金划入保险池，不可逆。
type SlashingLogic struct {
	db               *gorm.DB
	governance       *GovernanceLogic
	slashFractionBps int64
	proposalTTL      time.Duration
}

// NewSlashingLogic 创建罚没业务逻辑
func NewSlashingLogic(db *gorm.DB, governance *GovernanceLogic, protocol config.ProtocolConfig) *SlashingLogic {
	return &SlashingLogic{
		db:               db,
		governance:       governance,
		slashFractionBps: protocol.SlashFractionBps,
		proposalTTL:      time.Duration(protocol.ProposalTTLSecs) * time.Second,
	}
}

// ProposeSlashing 发起罚没提案。除治理决议外，各原因需满足对应的自动阈值。
func (s *SlashingLogic) ProposeSlashing(caller string, campaignId int64, targetCreator string, reason model.SlashReason, reasonDetail string, evidence []string) (*model.SlashProposalModel, error) {
	isMember, err := s.governance.IsMember(caller)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "仅治理成员可发起罚没提案")
	}

	unlock := lockCampaign(campaignId)
	defer unlock()

	vault, err := s.getVault(campaignId)
	if err != nil {
		return nil, err
	}
	if vault.Creator != targetCreator {
		return nil, apperr.New(apperr.KindInvalidState, "target_creator",
			"%s 不是该活动的创建者", targetCreator)
	}

	if err := s.checkThreshold(vault, reason, evidence); err != nil {
		return nil, err
	}

	evidenceJson, _ := json.Marshal(evidence)

	proposal := &model.SlashProposalModel{
		CampaignId:    campaignId,
		TargetCreator: targetCreator,
		Reason:        reason,
		ReasonDetail:  reasonDetail,
		Evidence:      string(evidenceJson),
		ProposedBy:    caller,
		Status:        model.SlashProposalStatusProposed,
		ExpiresAt:     time.Now().Add(s.proposalTTL),
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(proposal).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// 发起人的审批自动计入
	approval := model.SlashApprovalModel{ProposalId: proposal.Id, Approver: caller}
	if err := tx.Create(&approval).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Slash proposal %d created: campaign=%d reason=%s proposer=%s",
		proposal.Id, campaignId, reason, caller)
	return proposal, nil
}

// checkThreshold 按原因校验自动阈值，治理决议直接放行
func (s *SlashingLogic) checkThreshold(vault *model.VaultModel, reason model.SlashReason, evidence []string) error {
	switch reason {
	case model.SlashReasonGovernanceDecision:
		return nil

	case model.SlashReasonMissedRevenueReports:
		if vault.MissedRevenueReports < vault.MissedReportsThreshold {
			return apperr.New(apperr.KindBelowThreshold, "missed_revenue_reports",
				"漏报次数 %d 未达到阈值 %d", vault.MissedRevenueReports, vault.MissedReportsThreshold)
		}

	case model.SlashReasonRevenueFraud:
		declined, err := s.revenueDeclined(vault)
		if err != nil {
			return err
		}
		if !declined && len(evidence) == 0 {
			return apperr.New(apperr.KindBelowThreshold, "evidence",
				"收益未见异常下滑且无证据，不能以收益造假发起罚没")
		}

	case model.SlashReasonProjectAbandonment:
		minActive := time.Duration(vault.MinActivePeriodDays) * 24 * time.Hour
		if time.Since(vault.CreatedAt) < minActive {
			return apperr.New(apperr.KindBelowThreshold, "min_active_period_days",
				"活动运行未满 %d 天", vault.MinActivePeriodDays)
		}
		if vault.MissedRevenueReports < vault.MissedReportsThreshold {
			return apperr.New(apperr.KindBelowThreshold, "missed_revenue_reports",
				"漏报次数 %d 未达到阈值 %d，不足以认定弃置", vault.MissedRevenueReports, vault.MissedReportsThreshold)
		}

	case model.SlashReasonOther:
		if len(evidence) == 0 {
			return apperr.New(apperr.KindBelowThreshold, "evidence", "其他原因必须附证据")
		}

	default:
		return apperr.New(apperr.KindInvalidState, "reason", "未知的罚没原因: %s", reason)
	}
	return nil
}

// revenueDeclined 最近两次已验证上报是否出现超阈值下滑
func (s *SlashingLogic) revenueDeclined(vault *model.VaultModel) (bool, error) {
	var updates []model.RevenueUpdateModel
	err := s.db.Where("campaign_id = ? AND oracle_verified = ?", vault.CampaignId, true).
		Order("id DESC").
		Limit(2).
		Find(&updates).Error
	if err != nil {
		return false, err
	}
	if len(updates) < 2 {
		return false, nil
	}

	latest, previous := updates[0].Amount, updates[1].Amount
	if previous <= 0 {
		return false, nil
	}
	declineBps := (previous - latest) * 10000 / previous
	return declineBps >= vault.RevenueDeclineThresholdBps, nil
}

// ApproveSlashing 记录审批，每个治理成员一票
func (s *SlashingLogic) ApproveSlashing(caller string, proposalId int64) error {
	isMember, err := s.governance.IsMember(caller)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅治理成员可审批罚没提案")
	}

	proposal, err := s.GetProposal(proposalId)
	if err != nil {
		return err
	}

	unlock := lockCampaign(proposal.CampaignId)
	defer unlock()

	if err := s.ensureOpen(proposal); err != nil {
		return err
	}

	var count int64
	s.db.Model(&model.SlashApprovalModel{}).
		Where("proposal_id = ? AND approver = ?", proposalId, caller).
		Count(&count)
	if count > 0 {
		return apperr.New(apperr.KindInvalidState, "approver", "已经审批过该提案")
	}

	approval := model.SlashApprovalModel{ProposalId: proposalId, Approver: caller}
	return s.db.Create(&approval).Error
}

// ExecuteSlash 执行罚没。审批数达到金库要求后，按协议比例把创建者
// 名下剩余可罚余额划入保险池并落罚没事件，不可逆。
func (s *SlashingLogic) ExecuteSlash(caller string, proposalId int64) (*model.SlashEventModel, error) {
	proposal, err := s.GetProposal(proposalId)
	if err != nil {
		return nil, err
	}

	unlock := lockCampaign(proposal.CampaignId)
	defer unlock()

	proposal, err = s.GetProposal(proposalId)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOpen(proposal); err != nil {
		return nil, err
	}

	vault, err := s.getVault(proposal.CampaignId)
	if err != nil {
		return nil, err
	}

	var approvers []string
	err = s.db.Model(&model.SlashApprovalModel{}).
		Where("proposal_id = ?", proposalId).
		Order("id ASC").
		Pluck("approver", &approvers).Error
	if err != nil {
		return nil, err
	}
	if int64(len(approvers)) < vault.GovernanceVotesRequired {
		return nil, apperr.New(apperr.KindInsufficientApprovals, "approved_by",
			"审批数 %d 未达到要求的 %d，补足审批后可重试", len(approvers), vault.GovernanceVotesRequired)
	}

	// 创建者可罚余额 = 创建者收益份额 - 历史已罚没
	creatorShare := vault.TotalRevenue * (10000 - vault.RevenueShareBps) / 10000
	var priorSlashed int64
	s.db.Model(&model.SlashEventModel{}).
		Where("campaign_id = ?", proposal.CampaignId).
		Select("COALESCE(SUM(amount_slashed), 0)").
		Scan(&priorSlashed)

	remaining := creatorShare - priorSlashed
	amountSlashed := remaining * s.slashFractionBps / 10000
	if amountSlashed <= 0 {
		return nil, apperr.New(apperr.KindInvalidState, "amount_slashed", "创建者名下没有可罚余额")
	}

	var beneficiaries []string
	err = s.db.Model(&model.BackerModel{}).
		Where("campaign_id = ?", proposal.CampaignId).
		Pluck("address", &beneficiaries).Error
	if err != nil {
		return nil, err
	}

	approvedJson, _ := json.Marshal(approvers)
	beneficiariesJson, _ := json.Marshal(beneficiaries)

	event := &model.SlashEventModel{
		CampaignId:    proposal.CampaignId,
		ProposalId:    proposalId,
		Creator:       proposal.TargetCreator,
		Reason:        proposal.Reason,
		AmountSlashed: amountSlashed,
		ApprovedBy:    string(approvedJson),
		Beneficiaries: string(beneficiariesJson),
		ExecutedAt:    time.Now(),
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(vault).
		Update("insurance_pool_balance", gorm.Expr("insurance_pool_balance + ?", amountSlashed)).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(proposal).Update("status", model.SlashProposalStatusExecuted).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Slash executed: proposal=%d campaign=%d amount=%d approvers=%d",
		proposalId, proposal.CampaignId, amountSlashed, len(approvers))
	return event, nil
}

// ensureOpen 校验提案可审批/可执行；过期的顺手落为expired
func (s *SlashingLogic) ensureOpen(proposal *model.SlashProposalModel) error {
	switch proposal.Status {
	case model.SlashProposalStatusExecuted:
		return apperr.New(apperr.KindInvalidState, "status", "提案已执行")
	case model.SlashProposalStatusExpired:
		return apperr.New(apperr.KindInvalidState, "status", "提案已过期")
	}
	if time.Now().After(proposal.ExpiresAt) {
		if err := s.db.Model(proposal).
			Update("status", model.SlashProposalStatusExpired).Error; err != nil {
			return err
		}
		return apperr.New(apperr.KindInvalidState, "expires_at", "提案已过期")
	}
	return nil
}

// ExpireStaleProposals 批量把过期提案落为expired，返回处理数量
func (s *SlashingLogic) ExpireStaleProposals() (int64, error) {
	result := s.db.Model(&model.SlashProposalModel{}).
		Where("status = ? AND expires_at < ?", model.SlashProposalStatusProposed, time.Now()).
		Update("status", model.SlashProposalStatusExpired)
	return result.RowsAffected, result.Error
}

// GetProposal 获取罚没提案
func (s *SlashingLogic) GetProposal(proposalId int64) (*model.SlashProposalModel, error) {
	var proposal model.SlashProposalModel
	if err := s.db.First(&proposal, proposalId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "proposal_id", "罚没提案不存在: %d", proposalId)
		}
		return nil, err
	}
	return &proposal, nil
}

// GetSlashEvents 获取活动的罚没事件
func (s *SlashingLogic) GetSlashEvents(campaignId int64) ([]model.SlashEventModel, error) {
	var events []model.SlashEventModel
	if err := s.db.Where("campaign_id = ?", campaignId).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *SlashingLogic) getVault(campaignId int64) (*model.VaultModel, error) {
	var vault model.VaultModel
	if err := s.db.Where("campaign_id = ?", campaignId).First(&vault).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "金库不存在: %d", campaignId)
		}
		return nil, err
	}
	return &vault, nil
}
