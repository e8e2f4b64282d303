package nft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_MintAndQuery(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	tokenId, err := r.Mint(ctx, MintRequest{
		RequestId:  "req-1",
		CampaignId: 7,
		Owner:      "backer-1",
		Amount:     25000,
		ShareBps:   1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tokenId)

	owner, err := r.OwnerOf(ctx, tokenId)
	require.NoError(t, err)
	assert.Equal(t, "backer-1", owner)

	meta, err := r.GetMetadata(ctx, tokenId)
	require.NoError(t, err)
	assert.Equal(t, int64(7), meta.CampaignId)
	assert.Equal(t, int64(25000), meta.Amount)
	assert.Equal(t, int64(1000), meta.ShareBps)
	assert.False(t, meta.MintedAt.IsZero())

	tokens, err := r.TokensOf(ctx, "backer-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{tokenId}, tokens)
}

func TestMemoryRegistry_RequestIdIdempotent(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	req := MintRequest{RequestId: "req-1", CampaignId: 1, Owner: "backer-1", Amount: 100, ShareBps: 10}

	first, err := r.Mint(ctx, req)
	require.NoError(t, err)
	second, err := r.Mint(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	tokens, err := r.TokensOf(ctx, "backer-1")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestMemoryRegistry_Validation(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	_, err := r.Mint(ctx, MintRequest{RequestId: "req-1", CampaignId: 1})
	assert.Error(t, err)

	_, err = r.OwnerOf(ctx, 999)
	assert.Error(t, err)

	_, err = r.GetMetadata(ctx, 999)
	assert.Error(t, err)

	tokens, err := r.TokensOf(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
