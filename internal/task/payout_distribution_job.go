package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// PayoutDistributionJob 收益分配任务：对有未分配已验证收益的金库开启分配轮次
type PayoutDistributionJob struct {
	db     *gorm.DB
	vaults *logic.VaultLogic
	config *config.Config
}

// NewPayoutDistributionJob 创建收益分配任务
func NewPayoutDistributionJob(db *gorm.DB, vaults *logic.VaultLogic, cfg *config.Config) *PayoutDistributionJob {
	return &PayoutDistributionJob{db: db, vaults: vaults, config: cfg}
}

// GetName 获取任务名称
func (j *PayoutDistributionJob) GetName() string {
	return "payout_distribution"
}

// GetSchedule 获取调度配置
func (j *PayoutDistributionJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *PayoutDistributionJob) Execute() {
	var vaults []model.VaultModel
	err := j.db.
		Where("pending_verified = ? AND total_revenue > distributed_revenue", true).
		Find(&vaults).Error
	if err != nil {
		logger.Error("Failed to fetch vaults for distribution: %v", err)
		return
	}

	for _, vault := range vaults {
		payouts, err := j.vaults.DistributePayouts(vault.CampaignId)
		if err != nil {
			logger.Error("Failed to distribute payouts: campaign=%d err=%v", vault.CampaignId, err)
			continue
		}
		if len(payouts) > 0 {
			logger.Info("Scheduled distribution done: campaign=%d recipients=%d",
				vault.CampaignId, len(payouts))
		}
	}
}
