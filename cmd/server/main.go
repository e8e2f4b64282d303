package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/cache"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/database"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/nft"
	"github.com/ipxlabs/rts/internal/oracle"
	"github.com/ipxlabs/rts/internal/router"
	"github.com/ipxlabs/rts/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志器
	level := logger.ParseLogLevel(cfg.Log.GetLevel())
	var appLogger *logger.Logger
	var err error
	if cfg.Log.GetOutput() == "file" {
		appLogger, err = logger.NewWithFileRotation(level, cfg.Log.GetFile())
	} else {
		appLogger, err = logger.New(level)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database: %v", err)
	}

	// 初始化查询缓存（可选）
	var cc *cache.Cache
	if cfg.Redis.Enabled {
		cc, err = cache.New(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize redis cache: %v", err)
		}
		defer cc.Close()
	}

	// 凭证登记：链上或内存
	var registry nft.Registry
	if cfg.Chain.Enabled {
		registry, err = nft.NewChainRegistry(cfg.Chain)
		if err != nil {
			logger.Fatal("Failed to initialize chain registry: %v", err)
		}
		logger.Info("Using on-chain share registry at %s", cfg.Chain.RegistryAddr)
	} else {
		registry = nft.NewMemoryRegistry()
		logger.Warn("Chain disabled, using in-memory share registry")
	}

	// 业务逻辑层
	campaignLogic := logic.NewCampaignLogic(db, cfg.Protocol)
	vaultLogic := logic.NewVaultLogic(db, cfg.Protocol, cfg.Oracle)
	streamLogic := logic.NewStreamLogic(db)
	governanceLogic := logic.NewGovernanceLogic(db)
	slashingLogic := logic.NewSlashingLogic(db, governanceLogic, cfg.Protocol)
	insuranceLogic := logic.NewInsuranceLogic(db, governanceLogic)
	oracleLogic := logic.NewOracleLogic(db)

	// 初始治理成员
	if cfg.Protocol.BootstrapMember != "" {
		if err := governanceLogic.Bootstrap(cfg.Protocol.BootstrapMember, cfg.Protocol.BootstrapPower); err != nil {
			logger.Fatal("Failed to bootstrap governance member: %v", err)
		}
	}

	// 铸造补提与数据源轮询
	reconciler := nft.NewReconciler(db, registry, cfg.Task.MintStaleAfterSecs, cfg.Task.MintMaxAttempts)
	poller, err := oracle.NewPoller(db, vaultLogic, cfg.Oracle)
	if err != nil {
		logger.Fatal("Failed to initialize oracle poller: %v", err)
	}
	defer poller.Release()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(&router.Deps{
		Campaigns:  campaignLogic,
		Vaults:     vaultLogic,
		Streams:    streamLogic,
		Slashing:   slashingLogic,
		Insurance:  insuranceLogic,
		Governance: governanceLogic,
		Oracle:     oracleLogic,
		Registry:   registry,
		Reconciler: reconciler,
		Poller:     poller,
		Cache:      cc,
	}, cfg)

	// 启动定时任务
	manager := task.Start(db, &task.Deps{
		Vaults:     vaultLogic,
		Slashing:   slashingLogic,
		Reconciler: reconciler,
		Poller:     poller,
	}, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
