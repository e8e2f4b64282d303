package nft

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRegistry 内存版凭证登记，重启后数据丢失，仅用于本地联调和测试
type MemoryRegistry struct {
	mu       sync.RWMutex
	nextId   int64
	tokens   map[int64]*Metadata // tokenId -> 元数据
	byOwner  map[string][]int64  // owner -> tokenId列表
	requests map[string]int64    // requestId -> tokenId，幂等去重
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		nextId:   1,
		tokens:   make(map[int64]*Metadata),
		byOwner:  make(map[string][]int64),
		requests: make(map[string]int64),
	}
}

// Mint 铸造凭证。相同requestId重复提交直接返回首次铸造的tokenId
func (r *MemoryRegistry) Mint(_ context.Context, req MintRequest) (int64, error) {
	if req.Owner == "" {
		return 0, fmt.Errorf("mint request missing owner")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.RequestId != "" {
		if tokenId, ok := r.requests[req.RequestId]; ok {
			return tokenId, nil
		}
	}

	tokenId := r.nextId
	r.nextId++

	r.tokens[tokenId] = &Metadata{
		TokenId:    tokenId,
		CampaignId: req.CampaignId,
		Owner:      req.Owner,
		Amount:     req.Amount,
		ShareBps:   req.ShareBps,
		MintedAt:   time.Now(),
	}
	r.byOwner[req.Owner] = append(r.byOwner[req.Owner], tokenId)
	if req.RequestId != "" {
		r.requests[req.RequestId] = tokenId
	}

	return tokenId, nil
}

// OwnerOf 查询凭证持有人
func (r *MemoryRegistry) OwnerOf(_ context.Context, tokenId int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.tokens[tokenId]
	if !ok {
		return "", fmt.Errorf("token %d not found", tokenId)
	}
	return meta.Owner, nil
}

// TokensOf 查询某地址持有的全部凭证
func (r *MemoryRegistry) TokensOf(_ context.Context, owner string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := r.byOwner[owner]
	out := make([]int64, len(tokens))
	copy(out, tokens)
	return out, nil
}

// GetMetadata 查询凭证元数据
func (r *MemoryRegistry) GetMetadata(_ context.Context, tokenId int64) (*Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.tokens[tokenId]
	if !ok {
		return nil, fmt.Errorf("token %d not found", tokenId)
	}
	cp := *meta
	return &cp, nil
}
