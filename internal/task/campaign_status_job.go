package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// CampaignStatusJob 活动状态推进任务：排期到点的草稿自动开始募资，
// 到期或达标的募资活动转为已达标
type CampaignStatusJob struct {
	db     *gorm.DB
	config *config.Config
}

// NewCampaignStatusJob 创建活动状态推进任务
func NewCampaignStatusJob(db *gorm.DB, cfg *config.Config) *CampaignStatusJob {
	return &CampaignStatusJob{db: db, config: cfg}
}

// GetName 获取任务名称
func (j *CampaignStatusJob) GetName() string {
	return "campaign_status_updater"
}

// GetSchedule 获取调度配置
func (j *CampaignStatusJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *CampaignStatusJob) Execute() {
	now := time.Now()

	// 排期开始的草稿转为募资中
	res := j.db.Model(&model.CampaignModel{}).
		Where("status = ? AND start_at IS NOT NULL AND start_at <= ?",
			model.CampaignStatusDraft, now).
		Update("status", model.CampaignStatusActive)
	if res.Error != nil {
		logger.Error("Failed to activate scheduled campaigns: %v", res.Error)
	} else if res.RowsAffected > 0 {
		logger.Info("Campaigns activated by schedule: count=%d", res.RowsAffected)
	}

	// 到期的募资活动转为已达标（达标转换在投资路径内完成）
	res = j.db.Model(&model.CampaignModel{}).
		Where("status = ? AND end_at IS NOT NULL AND end_at <= ?",
			model.CampaignStatusActive, now).
		Update("status", model.CampaignStatusFunded)
	if res.Error != nil {
		logger.Error("Failed to close expired campaigns: %v", res.Error)
	} else if res.RowsAffected > 0 {
		logger.Info("Campaigns closed by schedule: count=%d", res.RowsAffected)
	}
}
