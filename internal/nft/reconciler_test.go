package nft

import (
	"context"
	"errors"
	"testing"

	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/database"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// failingRegistry 始终铸造失败，用于验证失败分支
type failingRegistry struct{}

func (failingRegistry) Mint(context.Context, MintRequest) (int64, error) {
	return 0, errors.New("rpc unavailable")
}
func (failingRegistry) OwnerOf(context.Context, int64) (string, error) { return "", nil }
func (failingRegistry) TokensOf(context.Context, string) ([]int64, error) {
	return nil, nil
}
func (failingRegistry) GetMetadata(context.Context, int64) (*Metadata, error) {
	return nil, nil
}

func newReconcilerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedPendingMint(t *testing.T, db *gorm.DB, requestId string) *model.PendingMintModel {
	t.Helper()
	pm := &model.PendingMintModel{
		RequestId:  requestId,
		CampaignId: 1,
		Backer:     "backer-1",
		Amount:     25000,
		ShareBps:   1000,
		Status:     model.MintStatusPending,
	}
	require.NoError(t, db.Create(pm).Error)
	return pm
}

func TestProcessPending_MintsAndBackfillsBacker(t *testing.T) {
	db := newReconcilerDB(t)
	require.NoError(t, db.Create(&model.BackerModel{
		CampaignId: 1, Address: "backer-1", AmountInvested: 25000, ShareBps: 1000,
	}).Error)
	seedPendingMint(t, db, "req-1")

	r := NewReconciler(db, NewMemoryRegistry(), 3600, 3)
	minted, err := r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, minted)

	var pm model.PendingMintModel
	require.NoError(t, db.Where("request_id = ?", "req-1").First(&pm).Error)
	assert.Equal(t, model.MintStatusMinted, pm.Status)
	require.NotNil(t, pm.TokenId)
	assert.Equal(t, int64(1), *pm.TokenId)

	var backer model.BackerModel
	require.NoError(t, db.Where("campaign_id = ? AND address = ?", 1, "backer-1").First(&backer).Error)
	require.NotNil(t, backer.NftTokenId)
	assert.Equal(t, int64(1), *backer.NftTokenId)

	// 再跑一轮不应有新的待处理任务
	minted, err = r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, minted)
}

func TestProcessPending_FailureGoesStaleAfterMaxAttempts(t *testing.T) {
	db := newReconcilerDB(t)
	seedPendingMint(t, db, "req-1")

	r := NewReconciler(db, failingRegistry{}, 3600, 2)

	minted, err := r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, minted)

	var pm model.PendingMintModel
	require.NoError(t, db.Where("request_id = ?", "req-1").First(&pm).Error)
	assert.Equal(t, model.MintStatusPending, pm.Status)
	assert.Equal(t, int64(1), pm.Attempts)
	assert.Equal(t, "rpc unavailable", pm.LastError)
	require.NotNil(t, pm.LastAttemptAt)

	// 第二次失败达到上限，转stale
	minted, err = r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, minted)

	require.NoError(t, db.Where("request_id = ?", "req-1").First(&pm).Error)
	assert.Equal(t, model.MintStatusStale, pm.Status)
	assert.Equal(t, int64(2), pm.Attempts)

	// stale任务不再被处理
	minted, err = r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, minted)
}

func TestRetryStale_ResetsToPending(t *testing.T) {
	db := newReconcilerDB(t)
	seedPendingMint(t, db, "req-1")

	r := NewReconciler(db, failingRegistry{}, 3600, 1)
	_, err := r.ProcessPending(context.Background(), 100)
	require.NoError(t, err)

	var pm model.PendingMintModel
	require.NoError(t, db.Where("request_id = ?", "req-1").First(&pm).Error)
	require.Equal(t, model.MintStatusStale, pm.Status)

	reset, err := r.RetryStale(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	require.NoError(t, db.Where("request_id = ?", "req-1").First(&pm).Error)
	assert.Equal(t, model.MintStatusPending, pm.Status)
	assert.Equal(t, int64(0), pm.Attempts)
	assert.Empty(t, pm.LastError)

	// 恢复后换可用登记处即可补铸成功
	ok := NewReconciler(db, NewMemoryRegistry(), 3600, 3)
	minted, err := ok.ProcessPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, minted)
}
