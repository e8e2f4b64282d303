package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/model"
)

type GovernanceHandler struct {
	governanceLogic *logic.GovernanceLogic
}

func NewGovernanceHandler(governanceLogic *logic.GovernanceLogic) *GovernanceHandler {
	return &GovernanceHandler{governanceLogic: governanceLogic}
}

// GrantPowerRequest 授予投票权请求
type GrantPowerRequest struct {
	Member string `json:"member" binding:"required"`
	Power  int64  `json:"power" binding:"required"`
}

// GrantVotingPower 授予投票权，要求调用者自身投票权达到门槛
func (h *GovernanceHandler) GrantVotingPower(c *gin.Context) {
	var req GrantPowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.governanceLogic.GrantVotingPower(Caller(c), req.Member, req.Power); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "投票权已授予", nil)
}

// GetVotingPower 查询某地址的投票权
func (h *GovernanceHandler) GetVotingPower(c *gin.Context) {
	power, err := h.governanceLogic.VotingPower(c.Param("address"))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"power": power})
}

// CreateProposalRequest 创建治理提案请求
type CreateProposalRequest struct {
	Title             string `json:"title" binding:"required"`
	Description       string `json:"description"`
	Kind              string `json:"kind" binding:"required"`
	VotingPeriodHours int64  `json:"voting_period_hours"`
}

// CreateProposal 创建治理提案
func (h *GovernanceHandler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	period := time.Duration(req.VotingPeriodHours) * time.Hour
	if period <= 0 {
		period = 7 * 24 * time.Hour
	}

	proposal, err := h.governanceLogic.CreateProposal(Caller(c), req.Title,
		req.Description, model.GovProposalKind(req.Kind), period)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "提案已创建", proposal)
}

// VoteRequest 投票请求
type VoteRequest struct {
	Support *bool `json:"support" binding:"required"`
}

// Vote 对提案投票，每个成员一票，按投票权计权
func (h *GovernanceHandler) Vote(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.governanceLogic.Vote(Caller(c), id, *req.Support); err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "投票已记录", nil)
}

// ExecuteProposal 截止后执行提案，返回是否通过
func (h *GovernanceHandler) ExecuteProposal(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	passed, err := h.governanceLogic.ExecuteProposal(Caller(c), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "提案已执行", gin.H{"passed": passed})
}

// GetProposal 获取提案详情
func (h *GovernanceHandler) GetProposal(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	proposal, err := h.governanceLogic.GetProposal(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", proposal)
}

// GetProposals 获取提案列表
func (h *GovernanceHandler) GetProposals(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	proposals, err := h.governanceLogic.GetProposals(activeOnly)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"proposals": proposals})
}
