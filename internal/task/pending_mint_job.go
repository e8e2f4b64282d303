package task

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/nft"
)

// PendingMintJob 凭证铸造补提任务
type PendingMintJob struct {
	reconciler *nft.Reconciler
	config     *config.Config
}

// NewPendingMintJob 创建凭证铸造补提任务
func NewPendingMintJob(reconciler *nft.Reconciler, cfg *config.Config) *PendingMintJob {
	return &PendingMintJob{reconciler: reconciler, config: cfg}
}

// GetName 获取任务名称
func (j *PendingMintJob) GetName() string {
	return "pending_mint_retry"
}

// GetSchedule 获取调度配置
func (j *PendingMintJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *PendingMintJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(j.config.Task.Interval)*time.Second)
	defer cancel()

	minted, err := j.reconciler.ProcessPending(ctx, 100)
	if err != nil {
		logger.Error("Pending mint batch failed: %v", err)
		return
	}
	if minted > 0 {
		logger.Info("Pending mint batch done: minted=%d", minted)
	}
}
