package task

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/oracle"
)

// OraclePollJob 收益数据源轮询任务，顺带累计漏报窗口
type OraclePollJob struct {
	poller *oracle.Poller
	config *config.Config
}

// NewOraclePollJob 创建收益数据源轮询任务
func NewOraclePollJob(poller *oracle.Poller, cfg *config.Config) *OraclePollJob {
	return &OraclePollJob{poller: poller, config: cfg}
}

// GetName 获取任务名称
func (j *OraclePollJob) GetName() string {
	return "oracle_poller"
}

// GetSchedule 获取调度配置
func (j *OraclePollJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *OraclePollJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(j.config.Task.Interval)*time.Second)
	defer cancel()

	reported, err := j.poller.PollDue(ctx)
	if err != nil {
		logger.Error("Oracle poll round failed: %v", err)
	} else if reported > 0 {
		logger.Info("Oracle poll round done: reported=%d", reported)
	}

	if err := j.poller.MarkMissedWindows(time.Now()); err != nil {
		logger.Error("Failed to mark missed report windows: %v", err)
	}
}
