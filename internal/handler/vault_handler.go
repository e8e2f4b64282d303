package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/cache"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
)

type VaultHandler struct {
	vaultLogic      *logic.VaultLogic
	governanceLogic *logic.GovernanceLogic
	cache           *cache.Cache // 可为nil，缓存未启用时直接查库
}

func NewVaultHandler(vaultLogic *logic.VaultLogic, governanceLogic *logic.GovernanceLogic, cc *cache.Cache) *VaultHandler {
	return &VaultHandler{
		vaultLogic:      vaultLogic,
		governanceLogic: governanceLogic,
		cache:           cc,
	}
}

// InvestRequest 投资请求
type InvestRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Invest 投资活动
func (h *VaultHandler) Invest(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.vaultLogic.Invest(Caller(c), id, req.Amount)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.invalidateProgress(c, id)
	SuccessResponse(c, http.StatusOK, result.Message, result)
}

// UpdateRevenueRequest 收益上报请求
type UpdateRevenueRequest struct {
	Amount    int64  `json:"amount" binding:"required"`
	Source    string `json:"source"`
	Verified  bool   `json:"verified"`
	DedupeKey string `json:"dedupe_key"`
}

// UpdateRevenue 上报收益。verified=true要求调用者为已注册预言机身份
func (h *VaultHandler) UpdateRevenue(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req UpdateRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err = h.vaultLogic.UpdateRevenue(Caller(c), id, req.Amount, req.Source, req.Verified, req.DedupeKey)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "收益已入账", nil)
}

// DistributePayouts 手动触发分配轮次
func (h *VaultHandler) DistributePayouts(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	payouts, err := h.vaultLogic.DistributePayouts(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "分配完成", gin.H{"payouts": payouts})
}

// GetFundingProgress 获取募资进度（带缓存）
func (h *VaultHandler) GetFundingProgress(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	key := progressKey(id)
	if h.cache != nil {
		var cached logic.FundingProgress
		if err := h.cache.GetJSON(c.Request.Context(), key, &cached); err == nil {
			SuccessResponse(c, http.StatusOK, "获取成功", &cached)
			return
		}
	}

	progress, err := h.vaultLogic.GetFundingProgress(id)
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), key, progress); err != nil {
			logger.Debug("Failed to cache funding progress: campaign=%d err=%v", id, err)
		}
	}
	SuccessResponse(c, http.StatusOK, "获取成功", progress)
}

// GetVaultState 获取金库完整快照
func (h *VaultHandler) GetVaultState(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	state, err := h.vaultLogic.GetVaultState(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", state)
}

// GetBackerInfo 获取出资人信息
func (h *VaultHandler) GetBackerInfo(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	backer, err := h.vaultLogic.GetBackerInfo(id, c.Param("address"))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", backer)
}

// UpdateInsuranceSettings 更新保险与罚没参数
func (h *VaultHandler) UpdateInsuranceSettings(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req logic.InsuranceSettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	caller := Caller(c)
	isGovernance, err := h.governanceLogic.IsMember(caller)
	if err != nil {
		RespondError(c, err)
		return
	}

	if err := h.vaultLogic.UpdateInsuranceSettings(caller, id, &req, isGovernance); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "保险参数已更新", nil)
}

func (h *VaultHandler) invalidateProgress(c *gin.Context, campaignId int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(c.Request.Context(), progressKey(campaignId)); err != nil {
		logger.Debug("Failed to invalidate progress cache: campaign=%d err=%v", campaignId, err)
	}
}

func progressKey(campaignId int64) string {
	return fmt.Sprintf("rts:progress:%d", campaignId)
}
