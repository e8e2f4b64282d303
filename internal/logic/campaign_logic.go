package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// CampaignLogic 活动注册表业务逻辑
type CampaignLogic struct {
	db       *gorm.DB
	protocol config.ProtocolConfig
}

// NewCampaignLogic 创建活动业务逻辑
func NewCampaignLogic(db *gorm.DB, protocol config.ProtocolConfig) *CampaignLogic {
	return &CampaignLogic{db: db, protocol: protocol}
}

// CreateCampaignRequest 创建活动请求
type CreateCampaignRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	FundingGoal     int64  `json:"funding_goal"`
	RevenueShareBps int64  `json:"revenue_share_bps"`
	OracleEndpoints string `json:"oracle_endpoints"`

	// 排期（Unix秒，可空）
	StartAt int64 `json:"start_at"`
	EndAt   int64 `json:"end_at"`
}

// CreateCampaign 创建活动，同一事务内建立一一对应的金库
func (l *CampaignLogic) CreateCampaign(caller string, req *CreateCampaignRequest) (*model.CampaignModel, error) {
	if caller == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "调用者身份不能为空")
	}
	if req.Title == "" {
		return nil, apperr.New(apperr.KindInvalidState, "title", "活动标题不能为空")
	}
	if req.FundingGoal <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "funding_goal", "目标金额必须大于0")
	}
	if req.RevenueShareBps <= 0 || req.RevenueShareBps > 10000 {
		return nil, apperr.New(apperr.KindInvalidState, "revenue_share_bps", "收益分成比例必须在1-10000基点之间")
	}

	if req.StartAt > 0 && req.EndAt > 0 && req.EndAt <= req.StartAt {
		return nil, apperr.New(apperr.KindInvalidWindow, "end_at", "结束时间必须晚于开始时间")
	}

	campaign := &model.CampaignModel{
		Title:           req.Title,
		Description:     req.Description,
		Creator:         caller,
		FundingGoal:     req.FundingGoal,
		RevenueShareBps: req.RevenueShareBps,
		OracleEndpoints: req.OracleEndpoints,
		Status:          model.CampaignStatusDraft,
	}
	if req.StartAt > 0 {
		t := time.Unix(req.StartAt, 0)
		campaign.StartAt = &t
	}
	if req.EndAt > 0 {
		t := time.Unix(req.EndAt, 0)
		campaign.EndAt = &t
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}

		// 金库继承协议级默认参数
		vault := &model.VaultModel{
			CampaignId:                 campaign.Id,
			Creator:                    caller,
			FundingGoal:                req.FundingGoal,
			RevenueShareBps:            req.RevenueShareBps,
			InsuranceFeeBps:            l.protocol.InsuranceFeeBps,
			InsuranceCoverageBps:       l.protocol.InsuranceCoverageBps,
			MinActivePeriodDays:        l.protocol.MinActivePeriodDays,
			RevenueDeclineThresholdBps: l.protocol.DeclineThresholdBps,
			GovernanceVotesRequired:    l.protocol.GovVotesRequired,
			MissedReportsThreshold:     l.protocol.MissedReportsLimit,
		}
		return tx.Create(vault).Error
	})
	if err != nil {
		return nil, fmt.Errorf("创建活动失败: %w", err)
	}

	return campaign, nil
}

// PublishCampaign 发布活动，draft -> active
func (l *CampaignLogic) PublishCampaign(caller string, campaignId int64) error {
	return l.transition(caller, campaignId, model.CampaignStatusActive,
		model.CampaignStatusDraft)
}

// CancelCampaign 取消活动，draft/active -> cancelled
func (l *CampaignLogic) CancelCampaign(caller string, campaignId int64) error {
	return l.transition(caller, campaignId, model.CampaignStatusCancelled,
		model.CampaignStatusDraft, model.CampaignStatusActive)
}

// CompleteCampaign 完结活动，funded -> completed，完结后不可再变更
func (l *CampaignLogic) CompleteCampaign(caller string, campaignId int64) error {
	return l.transition(caller, campaignId, model.CampaignStatusCompleted,
		model.CampaignStatusFunded)
}

// transition 校验并执行状态迁移，仅创建者可操作
func (l *CampaignLogic) transition(caller string, campaignId int64, to model.CampaignStatus, from ...model.CampaignStatus) error {
	unlock := lockCampaign(campaignId)
	defer unlock()

	campaign, err := l.GetCampaign(campaignId)
	if err != nil {
		return err
	}
	if campaign.Creator != caller {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅活动创建者可变更状态")
	}

	allowed := false
	for _, s := range from {
		if campaign.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperr.New(apperr.KindInvalidState, "status",
			"活动状态 %s 不允许迁移到 %s", campaign.Status, to)
	}

	return l.db.Model(campaign).Update("status", to).Error
}

// GetCampaign 获取活动详情
func (l *CampaignLogic) GetCampaign(campaignId int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := l.db.First(&campaign, campaignId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "活动不存在: %d", campaignId)
		}
		return nil, fmt.Errorf("获取活动详情失败: %w", err)
	}
	return &campaign, nil
}

// GetCampaigns 获取活动列表
func (l *CampaignLogic) GetCampaigns(status, creator string, page, pageSize int) ([]model.CampaignModel, int64, error) {
	var campaigns []model.CampaignModel
	var total int64

	query := l.db.Model(&model.CampaignModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if creator != "" {
		query = query.Where("creator = ?", creator)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// GetRegistryStats 获取注册表统计信息
func (l *CampaignLogic) GetRegistryStats() (map[string]interface{}, error) {
	var totalCampaigns int64
	l.db.Model(&model.CampaignModel{}).Count(&totalCampaigns)

	countByStatus := func(s model.CampaignStatus) int64 {
		var n int64
		l.db.Model(&model.CampaignModel{}).Where("status = ?", s).Count(&n)
		return n
	}

	var totalRaised int64
	l.db.Model(&model.VaultModel{}).
		Select("COALESCE(SUM(current_funding), 0)").
		Scan(&totalRaised)

	var totalBackers int64
	l.db.Model(&model.BackerModel{}).
		Distinct("address").
		Count(&totalBackers)

	return map[string]interface{}{
		"totalCampaigns":     totalCampaigns,
		"draftCampaigns":     countByStatus(model.CampaignStatusDraft),
		"activeCampaigns":    countByStatus(model.CampaignStatusActive),
		"fundedCampaigns":    countByStatus(model.CampaignStatusFunded),
		"completedCampaigns": countByStatus(model.CampaignStatusCompleted),
		"cancelledCampaigns": countByStatus(model.CampaignStatusCancelled),
		"totalRaised":        fmt.Sprintf("%d", totalRaised),
		"totalBackers":       totalBackers,
	}, nil
}
