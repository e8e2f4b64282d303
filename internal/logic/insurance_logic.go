package logic

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// InsuranceLogic 保险理赔业务逻辑。理赔单向流转：
// pending -> approved -> paid，或 pending -> rejected。
type InsuranceLogic struct {
	db         *gorm.DB
	governance *GovernanceLogic
}

// NewInsuranceLogic 创建保险业务逻辑
func NewInsuranceLogic(db *gorm.DB, governance *GovernanceLogic) *InsuranceLogic {
	return &InsuranceLogic{db: db, governance: governance}
}

// FileClaim 出资人申请理赔。仅被罚没或持续漏报的活动可理赔，
// 金额按承保比例对出资额封顶。
func (l *InsuranceLogic) FileClaim(caller string, campaignId int64, amount int64, reason string, evidence []string) (*model.InsuranceClaimModel, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "amount", "理赔金额必须大于0")
	}

	unlock := lockCampaign(campaignId)
	defer unlock()

	vault, err := l.getVault(campaignId)
	if err != nil {
		return nil, err
	}

	var backer model.BackerModel
	err = l.db.Where("campaign_id = ? AND address = ?", campaignId, caller).First(&backer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "仅出资人可申请理赔")
	}
	if err != nil {
		return nil, err
	}

	eligible, err := l.eligible(vault)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, apperr.New(apperr.KindInvalidState, "campaign_id",
			"活动未被罚没且无持续漏报，不满足理赔条件")
	}

	// 理赔上限 = 出资额 × 承保比例
	maxClaimable := backer.AmountInvested * vault.InsuranceCoverageBps / 10000
	if amount > maxClaimable {
		amount = maxClaimable
	}
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "amount", "承保额度为0，无法理赔")
	}

	evidenceJson, _ := json.Marshal(evidence)

	claim := &model.InsuranceClaimModel{
		CampaignId: campaignId,
		Claimer:    caller,
		Amount:     amount,
		Reason:     reason,
		Evidence:   string(evidenceJson),
		Status:     model.ClaimStatusPending,
		FiledAt:    time.Now(),
	}
	if err := l.db.Create(claim).Error; err != nil {
		return nil, err
	}

	logger.Info("Insurance claim %d filed: campaign=%d claimer=%s amount=%d",
		claim.Id, campaignId, caller, amount)
	return claim, nil
}

// eligible 理赔资格：存在罚没事件，或漏报达到阈值
func (l *InsuranceLogic) eligible(vault *model.VaultModel) (bool, error) {
	var slashCount int64
	err := l.db.Model(&model.SlashEventModel{}).
		Where("campaign_id = ?", vault.CampaignId).
		Count(&slashCount).Error
	if err != nil {
		return false, err
	}
	if slashCount > 0 {
		return true, nil
	}
	return vault.MissedRevenueReports >= vault.MissedReportsThreshold, nil
}

// ProcessClaim 审核理赔，仅创建者或治理成员。pending -> approved/rejected，
// 流转单向，非pending一律拒绝。
func (l *InsuranceLogic) ProcessClaim(caller string, claimId int64, approve bool, note string) error {
	claim, err := l.GetClaim(claimId)
	if err != nil {
		return err
	}

	unlock := lockCampaign(claim.CampaignId)
	defer unlock()

	claim, err = l.GetClaim(claimId)
	if err != nil {
		return err
	}

	if err := l.authorizeReviewer(caller, claim.CampaignId); err != nil {
		return err
	}
	if claim.Status != model.ClaimStatusPending {
		return apperr.New(apperr.KindInvalidState, "status",
			"理赔状态为 %s，仅待审核的理赔可处理", claim.Status)
	}

	now := time.Now()
	status := model.ClaimStatusRejected
	if approve {
		status = model.ClaimStatusApproved
	}

	updates := map[string]interface{}{
		"status":      status,
		"approver":    caller,
		"resolved_at": &now,
		"note":        note,
	}
	if err := l.db.Model(claim).Updates(updates).Error; err != nil {
		return err
	}

	logger.Info("Insurance claim %d processed by %s: %s", claimId, caller, status)
	return nil
}

// PayClaim 赔付。approved -> paid，从保险池划出；池余额不足时报错，
// 理赔保持approved，池补足后可重试。
func (l *InsuranceLogic) PayClaim(caller string, claimId int64) error {
	claim, err := l.GetClaim(claimId)
	if err != nil {
		return err
	}

	unlock := lockCampaign(claim.CampaignId)
	defer unlock()

	claim, err = l.GetClaim(claimId)
	if err != nil {
		return err
	}

	if err := l.authorizeReviewer(caller, claim.CampaignId); err != nil {
		return err
	}
	if claim.Status != model.ClaimStatusApproved {
		return apperr.New(apperr.KindInvalidState, "status",
			"理赔状态为 %s，仅已批准的理赔可赔付", claim.Status)
	}

	vault, err := l.getVault(claim.CampaignId)
	if err != nil {
		return err
	}
	if vault.InsurancePoolBalance < claim.Amount {
		return apperr.New(apperr.KindInsufficientPoolBalance, "insurance_pool_balance",
			"保险池余额 %d 不足以赔付 %d", vault.InsurancePoolBalance, claim.Amount)
	}

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(vault).
		Update("insurance_pool_balance", gorm.Expr("insurance_pool_balance - ?", claim.Amount)).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(claim).Update("status", model.ClaimStatusPaid).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	logger.Info("Insurance claim %d paid: campaign=%d claimer=%s amount=%d",
		claimId, claim.CampaignId, claim.Claimer, claim.Amount)
	return nil
}

// authorizeReviewer 理赔审核权限：活动创建者或治理成员
func (l *InsuranceLogic) authorizeReviewer(caller string, campaignId int64) error {
	vault, err := l.getVault(campaignId)
	if err != nil {
		return err
	}
	if vault.Creator == caller {
		return nil
	}
	isMember, err := l.governance.IsMember(caller)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅创建者或治理成员可处理理赔")
	}
	return nil
}

// GetClaim 获取理赔单
func (l *InsuranceLogic) GetClaim(claimId int64) (*model.InsuranceClaimModel, error) {
	var claim model.InsuranceClaimModel
	if err := l.db.First(&claim, claimId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "claim_id", "理赔不存在: %d", claimId)
		}
		return nil, err
	}
	return &claim, nil
}

// GetClaims 获取理赔列表，campaignId和claimer均为可选过滤条件
func (l *InsuranceLogic) GetClaims(campaignId int64, claimer string) ([]model.InsuranceClaimModel, error) {
	query := l.db.Model(&model.InsuranceClaimModel{})
	if campaignId > 0 {
		query = query.Where("campaign_id = ?", campaignId)
	}
	if claimer != "" {
		query = query.Where("claimer = ?", claimer)
	}

	var claims []model.InsuranceClaimModel
	if err := query.Order("id ASC").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (l *InsuranceLogic) getVault(campaignId int64) (*model.VaultModel, error) {
	var vault model.VaultModel
	if err := l.db.Where("campaign_id = ?", campaignId).First(&vault).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "金库不存在: %d", campaignId)
		}
		return nil, err
	}
	return &vault, nil
}
