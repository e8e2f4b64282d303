package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/logic"
)

type CampaignHandler struct {
	campaignLogic *logic.CampaignLogic
}

func NewCampaignHandler(campaignLogic *logic.CampaignLogic) *CampaignHandler {
	return &CampaignHandler{campaignLogic: campaignLogic}
}

// CreateCampaign 创建活动
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req logic.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.campaignLogic.CreateCampaign(Caller(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "活动创建成功", campaign)
}

// PublishCampaign 发布活动（draft -> active）
func (h *CampaignHandler) PublishCampaign(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	if err := h.campaignLogic.PublishCampaign(Caller(c), id); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "活动已发布", nil)
}

// CancelCampaign 取消活动
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	if err := h.campaignLogic.CancelCampaign(Caller(c), id); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "活动已取消", nil)
}

// CompleteCampaign 结束活动（funded -> completed）
func (h *CampaignHandler) CompleteCampaign(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	if err := h.campaignLogic.CompleteCampaign(Caller(c), id); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "活动已结束", nil)
}

// GetCampaign 获取活动详情
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	campaign, err := h.campaignLogic.GetCampaign(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", campaign)
}

// GetCampaigns 获取活动列表
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	status := c.Query("status")
	creator := c.Query("creator")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	campaigns, total, err := h.campaignLogic.GetCampaigns(status, creator, page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	totalPage := (total + int64(pageSize) - 1) / int64(pageSize)
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{
		"campaigns": campaigns,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}

// GetRegistryStats 获取全局统计
func (h *CampaignHandler) GetRegistryStats(c *gin.Context) {
	stats, err := h.campaignLogic.GetRegistryStats()
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", stats)
}

// parseId 解析路径中的数字ID，解析失败时已写回400响应
func parseId(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的ID")
		return 0, err
	}
	return id, nil
}

// parseQueryId 解析查询参数中的数字ID，缺省返回0
func parseQueryId(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
