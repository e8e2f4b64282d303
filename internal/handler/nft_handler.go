package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/nft"
)

type NftHandler struct {
	registry   nft.Registry
	reconciler *nft.Reconciler
}

func NewNftHandler(registry nft.Registry, reconciler *nft.Reconciler) *NftHandler {
	return &NftHandler{registry: registry, reconciler: reconciler}
}

// GetToken 查询凭证元数据
func (h *NftHandler) GetToken(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	meta, err := h.registry.GetMetadata(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", meta)
}

// GetTokensByOwner 查询某地址持有的全部凭证
func (h *NftHandler) GetTokensByOwner(c *gin.Context) {
	tokens, err := h.registry.TokensOf(c.Request.Context(), c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "获取成功", gin.H{"tokens": tokens})
}

// RetryStaleMints 重置活动下超时的铸造任务，供人工触发重试
func (h *NftHandler) RetryStaleMints(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	count, err := h.reconciler.RetryStale(id)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "铸造任务已重置", gin.H{"reset": count})
}
