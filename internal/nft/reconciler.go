package nft

import (
	"context"
	"time"

	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// Reconciler 铸造任务对账器。投资成功时只登记pending_mint记录，
// 由后台任务周期性调用ProcessPending补提铸造，失败不影响投资账本。
type Reconciler struct {
	db          *gorm.DB
	registry    Registry
	staleAfter  time.Duration
	maxAttempts int64
}

func NewReconciler(db *gorm.DB, registry Registry, staleAfterSecs, maxAttempts int64) *Reconciler {
	return &Reconciler{
		db:          db,
		registry:    registry,
		staleAfter:  time.Duration(staleAfterSecs) * time.Second,
		maxAttempts: maxAttempts,
	}
}

// ProcessPending 处理一批待铸造任务，返回成功铸造数量
func (r *Reconciler) ProcessPending(ctx context.Context, batchSize int) (int, error) {
	var pending []model.PendingMintModel
	err := r.db.Where("status = ?", model.MintStatusPending).
		Order("id ASC").Limit(batchSize).Find(&pending).Error
	if err != nil {
		return 0, err
	}

	minted := 0
	for i := range pending {
		if ctx.Err() != nil {
			return minted, ctx.Err()
		}
		if r.processOne(ctx, &pending[i]) {
			minted++
		}
	}
	return minted, nil
}

// processOne 单条铸造。成功回填tokenId并更新出资人记录，
// 失败累计attempts，超过上限或超时则转stale待人工处理。
func (r *Reconciler) processOne(ctx context.Context, pm *model.PendingMintModel) bool {
	now := time.Now()

	tokenId, err := r.registry.Mint(ctx, MintRequest{
		RequestId:  pm.RequestId,
		CampaignId: pm.CampaignId,
		Owner:      pm.Backer,
		Amount:     pm.Amount,
		ShareBps:   pm.ShareBps,
	})
	if err != nil {
		logger.Warn("Mint attempt failed: request=%s campaign=%d backer=%s err=%v",
			pm.RequestId, pm.CampaignId, pm.Backer, err)

		updates := map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": now,
			"last_error":      err.Error(),
		}
		if pm.Attempts+1 >= r.maxAttempts || now.Sub(pm.CreatedAt) > r.staleAfter {
			updates["status"] = model.MintStatusStale
		}
		if dbErr := r.db.Model(&model.PendingMintModel{}).Where("id = ?", pm.Id).Updates(updates).Error; dbErr != nil {
			logger.Error("Failed to record mint failure: request=%s err=%v", pm.RequestId, dbErr)
		}
		return false
	}

	tx := r.db.Begin()
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
		}
	}()

	err = tx.Model(&model.PendingMintModel{}).Where("id = ?", pm.Id).Updates(map[string]interface{}{
		"status":          model.MintStatusMinted,
		"token_id":        tokenId,
		"last_attempt_at": now,
		"last_error":      "",
	}).Error
	if err != nil {
		tx.Rollback()
		logger.Error("Failed to mark mint done: request=%s err=%v", pm.RequestId, err)
		return false
	}

	err = tx.Model(&model.BackerModel{}).
		Where("campaign_id = ? AND address = ?", pm.CampaignId, pm.Backer).
		Update("nft_token_id", tokenId).Error
	if err != nil {
		tx.Rollback()
		logger.Error("Failed to backfill backer token: request=%s err=%v", pm.RequestId, err)
		return false
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit mint result: request=%s err=%v", pm.RequestId, err)
		return false
	}

	logger.Info("Share token minted: campaign=%d backer=%s token=%d", pm.CampaignId, pm.Backer, tokenId)
	return true
}

// RetryStale 把stale任务重置为pending，供人工触发重试
func (r *Reconciler) RetryStale(campaignId int64) (int64, error) {
	res := r.db.Model(&model.PendingMintModel{}).
		Where("campaign_id = ? AND status = ?", campaignId, model.MintStatusStale).
		Updates(map[string]interface{}{
			"status":     model.MintStatusPending,
			"attempts":   0,
			"last_error": "",
		})
	return res.RowsAffected, res.Error
}
