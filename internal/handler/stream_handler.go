package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/cache"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/model"
)

type StreamHandler struct {
	streamLogic     *logic.StreamLogic
	governanceLogic *logic.GovernanceLogic
	cache           *cache.Cache
}

func NewStreamHandler(streamLogic *logic.StreamLogic, governanceLogic *logic.GovernanceLogic, cc *cache.Cache) *StreamHandler {
	return &StreamHandler{
		streamLogic:     streamLogic,
		governanceLogic: governanceLogic,
		cache:           cc,
	}
}

// CreateStreamRequest 创建收益流请求
type CreateStreamRequest struct {
	CampaignId  int64  `json:"campaign_id" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	TotalAmount int64  `json:"total_amount" binding:"required"`
	StartAt     int64  `json:"start_at" binding:"required"`
	EndAt       int64  `json:"end_at" binding:"required"`
	StreamType  string `json:"stream_type"`
}

// CreateStream 创建收益流
func (h *StreamHandler) CreateStream(c *gin.Context) {
	var req CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	streamType := model.StreamType(req.StreamType)
	if streamType == "" {
		streamType = model.StreamTypeLinear
	}

	stream, err := h.streamLogic.CreateStream(Caller(c), req.Recipient,
		req.CampaignId, req.TotalAmount, req.StartAt, req.EndAt, streamType)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "收益流已创建", stream)
}

// GetStream 获取收益流详情
func (h *StreamHandler) GetStream(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	stream, err := h.streamLogic.GetStream(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", stream)
}

// GetClaimableAmount 查询当前可领取金额
func (h *StreamHandler) GetClaimableAmount(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	claimable, err := h.streamLogic.GetClaimableAmount(id, time.Now().Unix())
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"claimable": claimable})
}

// ClaimStream 领取已释放的收益
func (h *StreamHandler) ClaimStream(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	result, err := h.streamLogic.ClaimStream(Caller(c), id, time.Now().Unix())
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "领取成功", result)
}

// PauseStream 暂停收益流
func (h *StreamHandler) PauseStream(c *gin.Context) {
	h.control(c, true)
}

// ResumeStream 恢复收益流
func (h *StreamHandler) ResumeStream(c *gin.Context) {
	h.control(c, false)
}

func (h *StreamHandler) control(c *gin.Context, pause bool) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	caller := Caller(c)
	isGovernance, err := h.governanceLogic.IsMember(caller)
	if err != nil {
		RespondError(c, err)
		return
	}

	if pause {
		err = h.streamLogic.PauseStream(caller, id, isGovernance)
	} else {
		err = h.streamLogic.ResumeStream(caller, id, isGovernance)
	}
	if err != nil {
		RespondError(c, err)
		return
	}

	msg := "收益流已暂停"
	if !pause {
		msg = "收益流已恢复"
	}
	SuccessResponse(c, http.StatusOK, msg, nil)
}

// GetStreamsByRecipient 查询某地址的全部收益流
func (h *StreamHandler) GetStreamsByRecipient(c *gin.Context) {
	streams, err := h.streamLogic.GetStreamsByRecipient(c.Param("address"))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"streams": streams})
}

// GetExpiredUnclaimed 查询已到期但未领完的收益流，供运营侧巡检
func (h *StreamHandler) GetExpiredUnclaimed(c *gin.Context) {
	streams, err := h.streamLogic.GetExpiredUnclaimed(time.Now().Unix())
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"streams": streams})
}

// GetStreamStats 获取收益流全局统计（带缓存）
func (h *StreamHandler) GetStreamStats(c *gin.Context) {
	const key = "rts:stream_stats"

	if h.cache != nil {
		var cached logic.StreamStats
		if err := h.cache.GetJSON(c.Request.Context(), key, &cached); err == nil {
			SuccessResponse(c, http.StatusOK, "获取成功", &cached)
			return
		}
	}

	stats, err := h.streamLogic.GetStreamStats()
	if err != nil {
		RespondError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), key, stats); err != nil {
			logger.Debug("Failed to cache stream stats: err=%v", err)
		}
	}
	SuccessResponse(c, http.StatusOK, "获取成功", stats)
}
