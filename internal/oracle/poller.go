package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/logic"
	"github.com/ipxlabs/rts/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Poller 收益数据源轮询器。到期的数据源投递到协程池并发拉取，
// 拉取结果以预言机身份写入收益账本。
type Poller struct {
	db           *gorm.DB
	vaults       *logic.VaultLogic
	fetcher      *Fetcher
	pool         *ants.Pool
	principal    string
	reportWindow time.Duration
}

func NewPoller(db *gorm.DB, vaults *logic.VaultLogic, cfg config.OracleConfig) (*Poller, error) {
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle worker pool: %w", err)
	}

	return &Poller{
		db:           db,
		vaults:       vaults,
		fetcher:      NewFetcher(cfg.TimeoutSecs),
		pool:         pool,
		principal:    cfg.Principal,
		reportWindow: time.Duration(cfg.ReportWindowSecs) * time.Second,
	}, nil
}

// PollDue 拉取所有到期数据源，返回成功上报的数量
func (p *Poller) PollDue(ctx context.Context) (int, error) {
	now := time.Now()

	var sources []model.OracleSourceModel
	err := p.db.Where("is_active = ?", true).Find(&sources).Error
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	reported := 0

	for i := range sources {
		source := sources[i]
		if !due(&source, now) {
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if p.pollOne(ctx, &source, now) {
				mu.Lock()
				reported++
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			logger.Warn("Failed to submit oracle poll task: source=%d err=%v", source.Id, err)
		}
	}

	wg.Wait()
	return reported, nil
}

// due 判断数据源是否到达下一次拉取时间
func due(source *model.OracleSourceModel, now time.Time) bool {
	if source.LastPolledAt == nil {
		return true
	}
	freq := time.Duration(source.UpdateFrequencySecs) * time.Second
	return now.Sub(*source.LastPolledAt) >= freq
}

// pollOne 拉取单个数据源并上报。去重键按拉取周期分桶，
// 同一周期内重复拉取不会重复入账。
func (p *Poller) pollOne(ctx context.Context, source *model.OracleSourceModel, now time.Time) bool {
	amount, err := p.fetcher.FetchRevenue(ctx, source)

	// 无论成败都推进拉取水位，避免坏数据源阻塞轮询
	if dbErr := p.db.Model(&model.OracleSourceModel{}).
		Where("id = ?", source.Id).
		Update("last_polled_at", now).Error; dbErr != nil {
		logger.Error("Failed to update poll watermark: source=%d err=%v", source.Id, dbErr)
	}

	if err != nil {
		logger.Warn("Oracle fetch failed: source=%d platform=%s err=%v", source.Id, source.Platform, err)
		return false
	}
	if amount <= 0 {
		logger.Debug("Oracle fetch returned no revenue: source=%d platform=%s", source.Id, source.Platform)
		return false
	}

	freq := source.UpdateFrequencySecs
	if freq <= 0 {
		freq = 3600
	}
	dedupeKey := fmt.Sprintf("oracle:%d:%d", source.Id, now.Unix()/freq)

	err = p.vaults.UpdateRevenue(p.principal, source.CampaignId, amount, source.Platform, true, dedupeKey)
	if err != nil {
		logger.Warn("Oracle revenue report rejected: source=%d campaign=%d err=%v",
			source.Id, source.CampaignId, err)
		return false
	}
	return true
}

// MarkMissedWindows 为超过上报窗口仍未收到已验证收益的金库累计漏报次数。
// 按窗口数对齐，重复调用不会重复累计。
func (p *Poller) MarkMissedWindows(now time.Time) error {
	if p.reportWindow <= 0 {
		return nil
	}

	var vaults []model.VaultModel
	err := p.db.
		Joins("JOIN campaign ON campaign.id = vault.campaign_id").
		Where("campaign.status IN ?", []model.CampaignStatus{model.CampaignStatusFunded, model.CampaignStatusCompleted}).
		Find(&vaults).Error
	if err != nil {
		return err
	}

	for i := range vaults {
		vault := &vaults[i]

		base := vault.CreatedAt
		if vault.LastVerifiedUpdateAt != nil {
			base = *vault.LastVerifiedUpdateAt
		}

		elapsed := int64(now.Sub(base) / p.reportWindow)
		if elapsed <= vault.MissedRevenueReports {
			continue
		}

		err := p.db.Model(&model.VaultModel{}).
			Where("id = ? AND missed_revenue_reports < ?", vault.Id, elapsed).
			Update("missed_revenue_reports", elapsed).Error
		if err != nil {
			logger.Error("Failed to record missed report: campaign=%d err=%v", vault.CampaignId, err)
			continue
		}
		logger.Warn("Revenue report window missed: campaign=%d missed=%d", vault.CampaignId, elapsed)
	}
	return nil
}

// Release 释放协程池
func (p *Poller) Release() {
	p.pool.Release()
}
