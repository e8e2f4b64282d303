package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/model"
)

type SlashingHandler struct {
	slashingLogic *logic.SlashingLogic
}

func NewSlashingHandler(slashingLogic *logic.SlashingLogic) *SlashingHandler {
	return &SlashingHandler{slashingLogic: slashingLogic}
}

// ProposeSlashingRequest 罚没提案请求
type ProposeSlashingRequest struct {
	CampaignId   int64    `json:"campaign_id" binding:"required"`
	TargetCreator string  `json:"target_creator" binding:"required"`
	Reason       string   `json:"reason" binding:"required"`
	ReasonDetail string   `json:"reason_detail"`
	Evidence     []string `json:"evidence"`
}

// ProposeSlashing 发起罚没提案，仅治理成员可操作
func (h *SlashingHandler) ProposeSlashing(c *gin.Context) {
	var req ProposeSlashingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	proposal, err := h.slashingLogic.ProposeSlashing(Caller(c), req.CampaignId,
		req.TargetCreator, model.SlashReason(req.Reason), req.ReasonDetail, req.Evidence)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "罚没提案已发起", proposal)
}

// ApproveSlashing 审批罚没提案
func (h *SlashingHandler) ApproveSlashing(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	if err := h.slashingLogic.ApproveSlashing(Caller(c), id); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "审批已记录", nil)
}

// ExecuteSlash 执行罚没，要求审批数达到阈值
func (h *SlashingHandler) ExecuteSlash(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	event, err := h.slashingLogic.ExecuteSlash(Caller(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "罚没已执行", event)
}

// GetProposal 获取罚没提案详情
func (h *SlashingHandler) GetProposal(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	proposal, err := h.slashingLogic.GetProposal(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", proposal)
}

// GetSlashEvents 获取活动的罚没事件列表
func (h *SlashingHandler) GetSlashEvents(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	events, err := h.slashingLogic.GetSlashEvents(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"events": events})
}
