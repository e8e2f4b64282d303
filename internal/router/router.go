package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/cache"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/handler"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/nft"
	"github.com/ipxlabs/rts/internal/oracle"
)

// Deps 路由依赖
type Deps struct {
	Campaigns  *logic.CampaignLogic
	Vaults     *logic.VaultLogic
	Streams    *logic.StreamLogic
	Slashing   *logic.SlashingLogic
	Insurance  *logic.InsuranceLogic
	Governance *logic.GovernanceLogic
	Oracle     *logic.OracleLogic
	Registry   nft.Registry
	Reconciler *nft.Reconciler
	Poller     *oracle.Poller
	Cache      *cache.Cache // 可为nil
}

func Setup(deps *Deps, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "revenue-tokenization-service",
		})
	})

	campaignHandler := handler.NewCampaignHandler(deps.Campaigns)
	vaultHandler := handler.NewVaultHandler(deps.Vaults, deps.Governance, deps.Cache)
	streamHandler := handler.NewStreamHandler(deps.Streams, deps.Governance, deps.Cache)
	slashingHandler := handler.NewSlashingHandler(deps.Slashing)
	insuranceHandler := handler.NewInsuranceHandler(deps.Insurance)
	governanceHandler := handler.NewGovernanceHandler(deps.Governance)
	nftHandler := handler.NewNftHandler(deps.Registry, deps.Reconciler)
	oracleHandler := handler.NewOracleHandler(deps.Oracle, deps.Poller)

	// API版本组
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.Auth))
	{
		// 活动相关路由
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.GetCampaigns)
			campaigns.GET("/stats", campaignHandler.GetRegistryStats)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.POST("/:id/publish", campaignHandler.PublishCampaign)
			campaigns.POST("/:id/cancel", campaignHandler.CancelCampaign)
			campaigns.POST("/:id/complete", campaignHandler.CompleteCampaign)

			// 金库相关路由
			campaigns.POST("/:id/invest", vaultHandler.Invest)
			campaigns.POST("/:id/revenue", vaultHandler.UpdateRevenue)
			campaigns.POST("/:id/distribute", vaultHandler.DistributePayouts)
			campaigns.GET("/:id/progress", vaultHandler.GetFundingProgress)
			campaigns.GET("/:id/vault", vaultHandler.GetVaultState)
			campaigns.GET("/:id/backers/:address", vaultHandler.GetBackerInfo)
			campaigns.PUT("/:id/insurance", vaultHandler.UpdateInsuranceSettings)

			// 数据源与罚没事件
			campaigns.GET("/:id/sources", oracleHandler.GetSources)
			campaigns.GET("/:id/slash-events", slashingHandler.GetSlashEvents)
			campaigns.POST("/:id/mints/retry", nftHandler.RetryStaleMints)
		}

		// 收益流相关路由
		streams := v1.Group("/streams")
		{
			streams.POST("", streamHandler.CreateStream)
			streams.GET("/stats", streamHandler.GetStreamStats)
			streams.GET("/expired", streamHandler.GetExpiredUnclaimed)
			streams.GET("/:id", streamHandler.GetStream)
			streams.GET("/:id/claimable", streamHandler.GetClaimableAmount)
			streams.POST("/:id/claim", streamHandler.ClaimStream)
			streams.POST("/:id/pause", streamHandler.PauseStream)
			streams.POST("/:id/resume", streamHandler.ResumeStream)
		}
		v1.GET("/recipients/:address/streams", streamHandler.GetStreamsByRecipient)

		// 罚没相关路由
		slashing := v1.Group("/slashing")
		{
			slashing.POST("/proposals", slashingHandler.ProposeSlashing)
			slashing.GET("/proposals/:id", slashingHandler.GetProposal)
			slashing.POST("/proposals/:id/approve", slashingHandler.ApproveSlashing)
			slashing.POST("/proposals/:id/execute", slashingHandler.ExecuteSlash)
		}

		// 保险理赔相关路由
		claims := v1.Group("/claims")
		{
			claims.POST("", insuranceHandler.FileClaim)
			claims.GET("", insuranceHandler.GetClaims)
			claims.GET("/:id", insuranceHandler.GetClaim)
			claims.POST("/:id/process", insuranceHandler.ProcessClaim)
			claims.POST("/:id/pay", insuranceHandler.PayClaim)
		}

		// 治理相关路由
		governance := v1.Group("/governance")
		{
			governance.POST("/members", governanceHandler.GrantVotingPower)
			governance.GET("/members/:address", governanceHandler.GetVotingPower)
			governance.POST("/proposals", governanceHandler.CreateProposal)
			governance.GET("/proposals", governanceHandler.GetProposals)
			governance.GET("/proposals/:id", governanceHandler.GetProposal)
			governance.POST("/proposals/:id/vote", governanceHandler.Vote)
			governance.POST("/proposals/:id/execute", governanceHandler.ExecuteProposal)
		}

		// 凭证相关路由
		tokens := v1.Group("/tokens")
		{
			tokens.GET("/:id", nftHandler.GetToken)
		}
		v1.GET("/owners/:address/tokens", nftHandler.GetTokensByOwner)

		// 数据源管理
		sources := v1.Group("/sources")
		{
			sources.POST("", oracleHandler.RegisterSource)
			sources.PUT("/:id/active", oracleHandler.SetSourceActive)
			sources.POST("/poll", oracleHandler.PollNow)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Caller")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
