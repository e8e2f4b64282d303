package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// VaultLogic 金库业务逻辑：投资账本、收益入账、分配
type VaultLogic struct {
	db               *gorm.DB
	payoutWindowSecs int64
	oraclePrincipals map[string]bool
}

// NewVaultLogic 创建金库业务逻辑
func NewVaultLogic(db *gorm.DB, protocol config.ProtocolConfig, oracle config.OracleConfig) *VaultLogic {
	principals := map[string]bool{}
	if oracle.Principal != "" {
		principals[oracle.Principal] = true
	}
	for _, p := range oracle.ExtraPrincipals {
		principals[p] = true
	}

	return &VaultLogic{
		db:               db,
		payoutWindowSecs: protocol.PayoutWindowSecs,
		oraclePrincipals: principals,
	}
}

// InvestmentResult 投资结果
type InvestmentResult struct {
	Success    bool   `json:"success"`
	ShareBps   int64  `json:"share_bps"`
	NftTokenId *int64 `json:"nft_token_id"`
	Message    string `json:"message"`
}

// PayoutEntry 单个出资人的分配结果
type PayoutEntry struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	StreamId  int64  `json:"stream_id"`
}

// Invest 投资。账本更新与NFT铸造解耦：铸造登记为待处理任务异步提交，
// 失败不回滚投资。
func (l *VaultLogic) Invest(caller string, campaignId int64, amount int64) (*InvestmentResult, error) {
	if caller == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "调用者身份不能为空")
	}
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "amount", "投资金额必须大于0")
	}

	unlock := lockCampaign(campaignId)
	defer unlock()

	var campaign model.CampaignModel
	if err := l.db.First(&campaign, campaignId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "活动不存在: %d", campaignId)
		}
		return nil, err
	}
	if campaign.Status != model.CampaignStatusActive {
		return nil, apperr.New(apperr.KindCampaignNotActive, "status",
			"活动状态为 %s，不接受投资", campaign.Status)
	}

	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return nil, err
	}

	remaining := vault.FundingGoal - vault.CurrentFunding
	if remaining <= 0 {
		return nil, apperr.New(apperr.KindInvalidState, "current_funding", "活动已满额")
	}

	// 超出部分截断到剩余额度
	actual := amount
	if actual > remaining {
		actual = remaining
	}

	// 保险费计入保险池；分成比例按全额投资对原始目标计算，
	// 投资时点确定后不再稀释
	insuranceFee := actual * vault.InsuranceFeeBps / 10000
	shareBps := actual * vault.RevenueShareBps / vault.FundingGoal

	now := time.Now()

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// 同一出资人重复投资累加金额与份额
	var backer model.BackerModel
	err = tx.Where("campaign_id = ? AND address = ?", campaignId, caller).First(&backer).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		backer = model.BackerModel{
			CampaignId:     campaignId,
			Address:        caller,
			AmountInvested: actual,
			ShareBps:       shareBps,
			InvestedAt:     now,
		}
		if err := tx.Create(&backer).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	case err != nil:
		tx.Rollback()
		return nil, err
	default:
		updates := map[string]interface{}{
			"amount_invested": gorm.Expr("amount_invested + ?", actual),
			"share_bps":       gorm.Expr("share_bps + ?", shareBps),
		}
		if err := tx.Model(&backer).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	vaultUpdates := map[string]interface{}{
		"current_funding":        gorm.Expr("current_funding + ?", actual),
		"insurance_pool_balance": gorm.Expr("insurance_pool_balance + ?", insuranceFee),
	}
	if err := tx.Model(vault).Updates(vaultUpdates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// 登记铸造任务，由后台任务异步提交
	mint := model.PendingMintModel{
		RequestId:  uuid.NewString(),
		CampaignId: campaignId,
		Backer:     caller,
		Amount:     actual,
		ShareBps:   shareBps,
		Status:     model.MintStatusPending,
	}
	if err := tx.Create(&mint).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// 达到目标金额后活动进入已达标
	if vault.CurrentFunding+actual >= vault.FundingGoal {
		if err := tx.Model(&campaign).Update("status", model.CampaignStatusFunded).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Investment accepted: campaign=%d backer=%s amount=%d fee=%d share_bps=%d",
		campaignId, caller, actual, insuranceFee, shareBps)

	return &InvestmentResult{
		Success:  true,
		ShareBps: shareBps,
		Message: fmt.Sprintf("投资成功: %d（其中 %d 计入保险池），NFT凭证铸造中",
			actual, insuranceFee),
	}, nil
}

// UpdateRevenue 收益入账。verified只允许注册的预言机身份上报；
// 未验证的上报照常记账但打标记，不触发分配。
func (l *VaultLogic) UpdateRevenue(caller string, campaignId int64, amount int64, source string, verified bool, dedupeKey string) error {
	if amount <= 0 {
		return apperr.New(apperr.KindInvalidAmount, "amount", "收益金额必须大于0")
	}
	if verified && !l.oraclePrincipals[caller] {
		return apperr.New(apperr.KindUnauthorized, "caller",
			"身份 %s 未注册为预言机，不能上报已验证收益", caller)
	}

	unlock := lockCampaign(campaignId)
	defer unlock()

	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return err
	}

	if dedupeKey == "" {
		dedupeKey = uuid.NewString()
	} else {
		// 同一窗口重复上报按幂等处理
		var count int64
		l.db.Model(&model.RevenueUpdateModel{}).
			Where("dedupe_key = ?", dedupeKey).
			Count(&count)
		if count > 0 {
			logger.Debug("Duplicate revenue update skipped: campaign=%d key=%s", campaignId, dedupeKey)
			return nil
		}
	}

	now := time.Now()

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	update := model.RevenueUpdateModel{
		CampaignId:     campaignId,
		Amount:         amount,
		Source:         source,
		ReportedBy:     caller,
		OracleVerified: verified,
		DedupeKey:      dedupeKey,
	}
	if err := tx.Create(&update).Error; err != nil {
		tx.Rollback()
		return err
	}

	updates := map[string]interface{}{
		"total_revenue": gorm.Expr("total_revenue + ?", amount),
	}
	if verified {
		updates["pending_verified"] = true
		updates["missed_revenue_reports"] = 0
		updates["last_verified_update_at"] = &now
	}
	if err := tx.Model(vault).Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	logger.Info("Revenue updated: campaign=%d amount=%d source=%s verified=%v",
		campaignId, amount, source, verified)
	return nil
}

// DistributePayouts 开启分配轮次：对自上次分配以来的新增收益，按份额为每个
// 出资人开设（或续期）收益流。同一轮次内重复调用返回空列表，不会重复分配；
// 本轮没有已验证的收益上报时同样不分配。
func (l *VaultLogic) DistributePayouts(campaignId int64) ([]PayoutEntry, error) {
	unlock := lockCampaign(campaignId)
	defer unlock()

	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return nil, err
	}

	newRevenue := vault.TotalRevenue - vault.DistributedRevenue
	if newRevenue <= 0 || !vault.PendingVerified {
		return []PayoutEntry{}, nil
	}

	var backers []model.BackerModel
	if err := l.db.Where("campaign_id = ?", campaignId).Find(&backers).Error; err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	endAt := now + l.payoutWindowSecs

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	payouts := make([]PayoutEntry, 0, len(backers))
	for _, backer := range backers {
		entitlement := backer.ShareBps * newRevenue / 10000
		if entitlement <= 0 {
			continue
		}

		// 已有活跃的分配流则续期，否则开新流
		var stream model.StreamModel
		err := tx.Where("campaign_id = ? AND recipient = ? AND is_payout = ? AND is_active = ?",
			campaignId, backer.Address, true, true).First(&stream).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, buildErr := buildStream(backer.Address, campaignId, entitlement, now, endAt, model.StreamTypeLinear)
			if buildErr != nil {
				tx.Rollback()
				return nil, buildErr
			}
			created.IsPayout = true
			if err := tx.Create(created).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			stream = *created
		case err != nil:
			tx.Rollback()
			return nil, err
		default:
			newTotal := stream.TotalAmount + entitlement
			newEnd := stream.EndAt
			if endAt > newEnd {
				newEnd = endAt
			}
			rate := linearRate(newTotal, stream.StartAt, newEnd)
			updates := map[string]interface{}{
				"total_amount":      newTotal,
				"end_at":            newEnd,
				"amount_per_second": rate,
			}
			if err := tx.Model(&stream).Updates(updates).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		payouts = append(payouts, PayoutEntry{
			Recipient: backer.Address,
			Amount:    entitlement,
			StreamId:  stream.Id,
		})
	}

	// 推进水位线，本轮关闭
	updates := map[string]interface{}{
		"distributed_revenue": vault.TotalRevenue,
		"pending_verified":    false,
	}
	if err := tx.Model(vault).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Payout epoch distributed: campaign=%d revenue=%d recipients=%d",
		campaignId, newRevenue, len(payouts))
	return payouts, nil
}

// FundingProgress 募资进度
type FundingProgress struct {
	CurrentFunding int64   `json:"current_funding"`
	FundingGoal    int64   `json:"funding_goal"`
	Percentage     float64 `json:"percentage"`
}

// GetFundingProgress 获取募资进度，纯读
func (l *VaultLogic) GetFundingProgress(campaignId int64) (*FundingProgress, error) {
	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return nil, err
	}

	percentage := float64(0)
	if vault.FundingGoal > 0 {
		// 百分比仅用于展示，账本内不存在浮点
		percentage = float64(vault.CurrentFunding) / float64(vault.FundingGoal) * 100
	}

	return &FundingProgress{
		CurrentFunding: vault.CurrentFunding,
		FundingGoal:    vault.FundingGoal,
		Percentage:     percentage,
	}, nil
}

// VaultState 金库完整快照
type VaultState struct {
	Vault           model.VaultModel           `json:"vault"`
	Backers         []model.BackerModel        `json:"backers"`
	RevenueHistory  []model.RevenueUpdateModel `json:"revenue_history"`
	SlashEvents     []model.SlashEventModel    `json:"slash_events"`
	InsuranceClaims []model.InsuranceClaimModel `json:"insurance_claims"`
}

// GetVaultState 获取金库完整快照
func (l *VaultLogic) GetVaultState(campaignId int64) (*VaultState, error) {
	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return nil, err
	}

	state := &VaultState{Vault: *vault}
	if err := l.db.Where("campaign_id = ?", campaignId).Find(&state.Backers).Error; err != nil {
		return nil, err
	}
	if err := l.db.Where("campaign_id = ?", campaignId).
		Order("id ASC").
		Find(&state.RevenueHistory).Error; err != nil {
		return nil, err
	}
	if err := l.db.Where("campaign_id = ?", campaignId).
		Order("id ASC").
		Find(&state.SlashEvents).Error; err != nil {
		return nil, err
	}
	if err := l.db.Where("campaign_id = ?", campaignId).Find(&state.InsuranceClaims).Error; err != nil {
		return nil, err
	}
	return state, nil
}

// GetBackerInfo 获取出资人信息
func (l *VaultLogic) GetBackerInfo(campaignId int64, address string) (*model.BackerModel, error) {
	var backer model.BackerModel
	err := l.db.Where("campaign_id = ? AND address = ?", campaignId, address).First(&backer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "address", "出资人不存在: %s", address)
		}
		return nil, err
	}
	return &backer, nil
}

// InsuranceSettingsUpdate 保险参数更新请求，nil字段不变更
type InsuranceSettingsUpdate struct {
	FeeBps                  *int64 `json:"fee_bps"`
	CoverageBps             *int64 `json:"coverage_bps"`
	GovernanceVotesRequired *int64 `json:"governance_votes_required"`
	MissedReportsThreshold  *int64 `json:"missed_reports_threshold"`
	MinActivePeriodDays     *int64 `json:"min_active_period_days"`
	DeclineThresholdBps     *int64 `json:"decline_threshold_bps"`
}

// UpdateInsuranceSettings 更新保险与罚没参数，仅创建者或治理成员可操作
func (l *VaultLogic) UpdateInsuranceSettings(caller string, campaignId int64, req *InsuranceSettingsUpdate, isGovernance bool) error {
	unlock := lockCampaign(campaignId)
	defer unlock()

	vault, err := l.getVault(l.db, campaignId)
	if err != nil {
		return err
	}
	if vault.Creator != caller && !isGovernance {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅创建者或治理成员可更新保险参数")
	}

	updates := map[string]interface{}{}
	if req.FeeBps != nil {
		if *req.FeeBps < 0 || *req.FeeBps > 2000 {
			return apperr.New(apperr.KindInvalidState, "fee_bps", "保险费率不能超过2000基点")
		}
		updates["insurance_fee_bps"] = *req.FeeBps
	}
	if req.CoverageBps != nil {
		if *req.CoverageBps < 0 || *req.CoverageBps > 10000 {
			return apperr.New(apperr.KindInvalidState, "coverage_bps", "承保比例不能超过10000基点")
		}
		updates["insurance_coverage_bps"] = *req.CoverageBps
	}
	if req.GovernanceVotesRequired != nil {
		updates["governance_votes_required"] = *req.GovernanceVotesRequired
	}
	if req.MissedReportsThreshold != nil {
		updates["missed_reports_threshold"] = *req.MissedReportsThreshold
	}
	if req.MinActivePeriodDays != nil {
		updates["min_active_period_days"] = *req.MinActivePeriodDays
	}
	if req.DeclineThresholdBps != nil {
		updates["revenue_decline_threshold_bps"] = *req.DeclineThresholdBps
	}
	if len(updates) == 0 {
		return apperr.New(apperr.KindInvalidState, "updates", "没有要更新的参数")
	}

	return l.db.Model(vault).Updates(updates).Error
}

// getVault 按活动ID加载金库
func (l *VaultLogic) getVault(db *gorm.DB, campaignId int64) (*model.VaultModel, error) {
	var vault model.VaultModel
	if err := db.Where("campaign_id = ?", campaignId).First(&vault).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "金库不存在: %d", campaignId)
		}
		return nil, err
	}
	return &vault, nil
}
