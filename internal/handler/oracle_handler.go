package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/oracle"
)

type OracleHandler struct {
	oracleLogic *logic.OracleLogic
	poller      *oracle.Poller
}

func NewOracleHandler(oracleLogic *logic.OracleLogic, poller *oracle.Poller) *OracleHandler {
	return &OracleHandler{oracleLogic: oracleLogic, poller: poller}
}

// RegisterSourceRequest 数据源登记请求
type RegisterSourceRequest struct {
	CampaignId    int64  `json:"campaign_id" binding:"required"`
	Platform      string `json:"platform" binding:"required"`
	Url           string `json:"url" binding:"required"`
	DataPath      string `json:"data_path" binding:"required"`
	AuthHeader    string `json:"auth_header"`
	FrequencySecs int64  `json:"frequency_secs"`
}

// RegisterSource 登记收益数据源
func (h *OracleHandler) RegisterSource(c *gin.Context) {
	var req RegisterSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	source, err := h.oracleLogic.RegisterSource(Caller(c), req.CampaignId,
		req.Platform, req.Url, req.DataPath, req.AuthHeader, req.FrequencySecs)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "数据源已登记", source)
}

// GetSources 查询活动的数据源列表
func (h *OracleHandler) GetSources(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	sources, err := h.oracleLogic.GetSources(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"sources": sources})
}

// SetSourceActiveRequest 数据源启停请求
type SetSourceActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetSourceActive 启停数据源
func (h *OracleHandler) SetSourceActive(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req SetSourceActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.oracleLogic.SetSourceActive(Caller(c), id, *req.Active); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "数据源已更新", nil)
}

// PollNow 立即触发一轮数据源拉取
func (h *OracleHandler) PollNow(c *gin.Context) {
	reported, err := h.poller.PollDue(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "拉取完成", gin.H{"reported": reported})
}
