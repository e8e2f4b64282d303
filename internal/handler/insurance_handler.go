package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/logic"
)

type InsuranceHandler struct {
	insuranceLogic *logic.InsuranceLogic
}

func NewInsuranceHandler(insuranceLogic *logic.InsuranceLogic) *InsuranceHandler {
	return &InsuranceHandler{insuranceLogic: insuranceLogic}
}

// FileClaimRequest 理赔申请请求
type FileClaimRequest struct {
	CampaignId int64    `json:"campaign_id" binding:"required"`
	Amount     int64    `json:"amount" binding:"required"`
	Reason     string   `json:"reason" binding:"required"`
	Evidence   []string `json:"evidence"`
}

// FileClaim 出资人提交理赔申请
func (h *InsuranceHandler) FileClaim(c *gin.Context) {
	var req FileClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := h.insuranceLogic.FileClaim(Caller(c), req.CampaignId, req.Amount, req.Reason, req.Evidence)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "理赔申请已提交", claim)
}

// ProcessClaimRequest 理赔审核请求
type ProcessClaimRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// ProcessClaim 审核理赔申请，仅活动创建者或治理成员可操作
func (h *InsuranceHandler) ProcessClaim(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ProcessClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.insuranceLogic.ProcessClaim(Caller(c), id, req.Approve, req.Note); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "审核已记录", nil)
}

// PayClaim 支付已批准的理赔
func (h *InsuranceHandler) PayClaim(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	if err := h.insuranceLogic.PayClaim(Caller(c), id); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "理赔已支付", nil)
}

// GetClaim 获取理赔详情
func (h *InsuranceHandler) GetClaim(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	claim, err := h.insuranceLogic.GetClaim(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", claim)
}

// GetClaims 按活动或申请人筛选理赔列表
func (h *InsuranceHandler) GetClaims(c *gin.Context) {
	campaignId, _ := parseQueryId(c, "campaign_id")
	claimer := c.Query("claimer")

	claims, err := h.insuranceLogic.GetClaims(campaignId, claimer)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"claims": claims})
}
