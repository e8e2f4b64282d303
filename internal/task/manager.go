package task

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/nft"
	"github.com/ipxlabs/rts/internal/oracle"
	"gorm.io/gorm"
)

// Job 后台任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Deps 后台任务依赖
type Deps struct {
	Vaults     *logic.VaultLogic
	Slashing   *logic.SlashingLogic
	Reconciler *nft.Reconciler
	Poller     *oracle.Poller
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	deps      *Deps
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, deps *Deps, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		deps:      deps,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, deps *Deps, cfg *config.Config) *Manager {
	manager := NewManager(db, deps, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.register(NewCampaignStatusJob(m.db, m.config))
	m.register(NewPayoutDistributionJob(m.db, m.deps.Vaults, m.config))
	m.register(NewPendingMintJob(m.deps.Reconciler, m.config))
	m.register(NewOraclePollJob(m.deps.Poller, m.config))
	m.register(NewProposalExpiryJob(m.deps.Slashing, m.config))
}

func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
