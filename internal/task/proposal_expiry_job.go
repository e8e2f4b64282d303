package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
)

// ProposalExpiryJob 罚没提案过期任务
type ProposalExpiryJob struct {
	slashing *logic.SlashingLogic
	config   *config.Config
}

// NewProposalExpiryJob 创建罚没提案过期任务
func NewProposalExpiryJob(slashing *logic.SlashingLogic, cfg *config.Config) *ProposalExpiryJob {
	return &ProposalExpiryJob{slashing: slashing, config: cfg}
}

// GetName 获取任务名称
func (j *ProposalExpiryJob) GetName() string {
	return "proposal_expiry"
}

// GetSchedule 获取调度配置
func (j *ProposalExpiryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *ProposalExpiryJob) Execute() {
	expired, err := j.slashing.ExpireStaleProposals()
	if err != nil {
		logger.Error("Failed to expire stale slash proposals: %v", err)
		return
	}
	if expired > 0 {
		logger.Info("Slash proposals expired: count=%d", expired)
	}
}
