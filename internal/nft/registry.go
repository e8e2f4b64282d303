package nft

import (
	"context"
	"time"
)

// MintRequest 份额凭证铸造请求
type MintRequest struct {
	RequestId  string `json:"request_id"`  // 幂等键，同一请求重复提交不会重复铸造
	CampaignId int64  `json:"campaign_id"` // 活动ID
	Owner      string `json:"owner"`       // 凭证持有人地址
	Amount     int64  `json:"amount"`      // 投资金额（最小单位）
	ShareBps   int64  `json:"share_bps"`   // 收益份额（基点）
}

// Metadata 份额凭证元数据
type Metadata struct {
	TokenId    int64     `json:"token_id"`
	CampaignId int64     `json:"campaign_id"`
	Owner      string    `json:"owner"`
	Amount     int64     `json:"amount"`
	ShareBps   int64     `json:"share_bps"`
	MintedAt   time.Time `json:"minted_at"`
}

// Registry 份额凭证登记接口。链上实现提交真实交易，
// 内存实现用于本地联调和测试。
type Registry interface {
	// Mint 铸造一枚份额凭证，返回tokenId
	Mint(ctx context.Context, req MintRequest) (int64, error)

	// OwnerOf 查询凭证持有人
	OwnerOf(ctx context.Context, tokenId int64) (string, error)

	// TokensOf 查询某地址持有的全部凭证
	TokensOf(ctx context.Context, owner string) ([]int64, error)

	// GetMetadata 查询凭证元数据
	GetMetadata(ctx context.Context, tokenId int64) (*Metadata, error)
}
