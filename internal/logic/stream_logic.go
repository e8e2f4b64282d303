package logic

import (
	"errors"
	"math/big"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// StreamLogic 收益流业务逻辑
type StreamLogic struct {
	db *gorm.DB
}

// NewStreamLogic 创建收益流业务逻辑
func NewStreamLogic(db *gorm.DB) *StreamLogic {
	return &StreamLogic{db: db}
}

// ClaimResult 领取结果
type ClaimResult struct {
	StreamId        int64 `json:"stream_id"`
	ClaimedAmount   int64 `json:"claimed_amount"`
	RemainingAmount int64 `json:"remaining_amount"`
	NextClaimTime   int64 `json:"next_claim_time"`
}

// buildStream 构造收益流，校验释放窗口
func buildStream(recipient string, campaignId, totalAmount, startAt, endAt int64, streamType model.StreamType) (*model.StreamModel, error) {
	if totalAmount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "total_amount", "释放总额必须大于0")
	}
	if endAt <= startAt {
		return nil, apperr.New(apperr.KindInvalidWindow, "end_at",
			"结束时间 %d 必须晚于开始时间 %d", endAt, startAt)
	}

	var rate int64
	switch streamType {
	case model.StreamTypeLinear:
		rate = linearRate(totalAmount, startAt, endAt)
	case model.StreamTypeCliff, model.StreamTypeExponential:
		// cliff到期一次性释放；exponential初始速率为0，速率单调递增
		rate = 0
	default:
		return nil, apperr.New(apperr.KindInvalidState, "stream_type", "未知的释放曲线类型: %s", streamType)
	}

	return &model.StreamModel{
		CampaignId:      campaignId,
		Recipient:       recipient,
		TotalAmount:     totalAmount,
		AmountPerSecond: rate,
		StartAt:         startAt,
		EndAt:           endAt,
		StreamType:      streamType,
		IsActive:        true,
	}, nil
}

// linearRate 线性释放速率（每秒）
func linearRate(totalAmount, startAt, endAt int64) int64 {
	duration := endAt - startAt
	if duration <= 0 {
		return 0
	}
	return totalAmount / duration
}

// CreateStream 创建收益流
func (l *StreamLogic) CreateStream(caller, recipient string, campaignId, totalAmount, startAt, endAt int64, streamType model.StreamType) (*model.StreamModel, error) {
	if caller == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "调用者身份不能为空")
	}

	stream, err := buildStream(recipient, campaignId, totalAmount, startAt, endAt, streamType)
	if err != nil {
		return nil, err
	}

	if err := l.db.Create(stream).Error; err != nil {
		return nil, err
	}

	logger.Info("Stream %d created: recipient=%s amount=%d type=%s",
		stream.Id, recipient, totalAmount, streamType)
	return stream, nil
}

// vestedAmount 到now为止的累计释放额。账本只用整数，大数乘法走big.Int防溢出。
// 曲线：
//   - linear:      total * elapsed / duration
//   - cliff:       到期前为0，到期后全额
//   - exponential: total * elapsed^2 / duration^2，速率随时间递增，
//     到期恰好等于total，不会超发
func vestedAmount(stream *model.StreamModel, now int64) int64 {
	if now < stream.StartAt {
		return 0
	}
	if now >= stream.EndAt {
		return stream.TotalAmount
	}

	elapsed := now - stream.StartAt
	duration := stream.EndAt - stream.StartAt

	switch stream.StreamType {
	case model.StreamTypeCliff:
		return 0
	case model.StreamTypeExponential:
		v := new(big.Int).SetInt64(stream.TotalAmount)
		v.Mul(v, big.NewInt(elapsed))
		v.Mul(v, big.NewInt(elapsed))
		v.Div(v, big.NewInt(duration))
		v.Div(v, big.NewInt(duration))
		return v.Int64()
	default: // linear
		v := new(big.Int).SetInt64(stream.TotalAmount)
		v.Mul(v, big.NewInt(elapsed))
		v.Div(v, big.NewInt(duration))
		return v.Int64()
	}
}

// claimableAmount 当前可领取金额
func claimableAmount(stream *model.StreamModel, now int64) int64 {
	vested := vestedAmount(stream, now)
	if vested > stream.TotalAmount {
		vested = stream.TotalAmount
	}
	claimable := vested - stream.ClaimedAmount
	if claimable < 0 {
		return 0
	}
	return claimable
}

// GetClaimableAmount 查询当前可领取金额，纯读
func (l *StreamLogic) GetClaimableAmount(streamId, now int64) (int64, error) {
	stream, err := l.GetStream(streamId)
	if err != nil {
		return 0, err
	}
	return claimableAmount(stream, now), nil
}

// ClaimStream 领取。从金库划转到出资人，claimed_amount单调递增，
// 领完后收益流进入终态。
func (l *StreamLogic) ClaimStream(caller string, streamId, now int64) (*ClaimResult, error) {
	stream, err := l.GetStream(streamId)
	if err != nil {
		return nil, err
	}

	unlock := lockCampaign(stream.CampaignId)
	defer unlock()

	// 加锁后重读，避免与其他变更竞争
	stream, err = l.GetStream(streamId)
	if err != nil {
		return nil, err
	}

	if stream.Recipient != caller {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "仅收款人可领取")
	}
	if !stream.IsActive {
		return nil, apperr.New(apperr.KindStreamNotActive, "is_active", "收益流已暂停或已领完")
	}

	claimable := claimableAmount(stream, now)
	if claimable <= 0 {
		return nil, apperr.New(apperr.KindNothingToClaim, "claimable", "当前没有可领取金额")
	}

	newClaimed := stream.ClaimedAmount + claimable
	exhausted := newClaimed >= stream.TotalAmount

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{
		"claimed_amount": newClaimed,
	}
	if exhausted {
		updates["is_active"] = false
	}
	if err := tx.Model(stream).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// 同步出资人累计已领取金额
	err = tx.Model(&model.BackerModel{}).
		Where("campaign_id = ? AND address = ?", stream.CampaignId, stream.Recipient).
		Update("total_claimed", gorm.Expr("total_claimed + ?", claimable)).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	nextClaimTime := int64(0)
	if !exhausted {
		nextClaimTime = now + 1
	}

	logger.Info("Stream %d claimed: recipient=%s amount=%d remaining=%d",
		streamId, caller, claimable, stream.TotalAmount-newClaimed)

	return &ClaimResult{
		StreamId:        streamId,
		ClaimedAmount:   claimable,
		RemainingAmount: stream.TotalAmount - newClaimed,
		NextClaimTime:   nextClaimTime,
	}, nil
}

// PauseStream 暂停收益流，仅金库创建者或治理成员可操作
func (l *StreamLogic) PauseStream(caller string, streamId int64, isGovernance bool) error {
	stream, err := l.GetStream(streamId)
	if err != nil {
		return err
	}

	unlock := lockCampaign(stream.CampaignId)
	defer unlock()

	if err := l.authorizeControl(caller, stream, isGovernance); err != nil {
		return err
	}
	if stream.Exhausted() {
		return apperr.New(apperr.KindInvalidState, "claimed_amount", "收益流已领完")
	}

	return l.db.Model(stream).Update("is_active", false).Error
}

// ResumeStream 恢复收益流，已领完的不可恢复
func (l *StreamLogic) ResumeStream(caller string, streamId int64, isGovernance bool) error {
	stream, err := l.GetStream(streamId)
	if err != nil {
		return err
	}

	unlock := lockCampaign(stream.CampaignId)
	defer unlock()

	if err := l.authorizeControl(caller, stream, isGovernance); err != nil {
		return err
	}
	if stream.Exhausted() {
		return apperr.New(apperr.KindInvalidState, "claimed_amount", "收益流已领完，不可恢复")
	}

	return l.db.Model(stream).Update("is_active", true).Error
}

// authorizeControl 暂停/恢复权限校验
func (l *StreamLogic) authorizeControl(caller string, stream *model.StreamModel, isGovernance bool) error {
	if isGovernance {
		return nil
	}
	var vault model.VaultModel
	if err := l.db.Where("campaign_id = ?", stream.CampaignId).First(&vault).Error; err != nil {
		return err
	}
	if vault.Creator != caller {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅金库创建者或治理成员可控制收益流")
	}
	return nil
}

// GetStream 获取收益流
func (l *StreamLogic) GetStream(streamId int64) (*model.StreamModel, error) {
	var stream model.StreamModel
	if err := l.db.First(&stream, streamId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "stream_id", "收益流不存在: %d", streamId)
		}
		return nil, err
	}
	return &stream, nil
}

// GetStreamsByRecipient 获取收款人的全部收益流
func (l *StreamLogic) GetStreamsByRecipient(recipient string) ([]model.StreamModel, error) {
	var streams []model.StreamModel
	if err := l.db.Where("recipient = ?", recipient).
		Order("created_at DESC").
		Find(&streams).Error; err != nil {
		return nil, err
	}
	return streams, nil
}

// StreamStats 收益流汇总统计
type StreamStats struct {
	TotalStreams  int64 `json:"total_streams"`
	ActiveStreams int64 `json:"active_streams"`
	TotalVolume   int64 `json:"total_volume"`
	ClaimedVolume int64 `json:"claimed_volume"`
}

// GetStreamStats 获取收益流汇总统计
func (l *StreamLogic) GetStreamStats() (*StreamStats, error) {
	var stats StreamStats

	if err := l.db.Model(&model.StreamModel{}).Count(&stats.TotalStreams).Error; err != nil {
		return nil, err
	}
	if err := l.db.Model(&model.StreamModel{}).
		Where("is_active = ?", true).
		Count(&stats.ActiveStreams).Error; err != nil {
		return nil, err
	}
	if err := l.db.Model(&model.StreamModel{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalVolume).Error; err != nil {
		return nil, err
	}
	if err := l.db.Model(&model.StreamModel{}).
		Select("COALESCE(SUM(claimed_amount), 0)").
		Scan(&stats.ClaimedVolume).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

// 过了结束时间仍未领完的收益流不自动关闭，出资人可随时补领剩余额度。
// 这里仅提供查询，供运营侧巡检。
func (l *StreamLogic) GetExpiredUnclaimed(now int64) ([]model.StreamModel, error) {
	var streams []model.StreamModel
	err := l.db.Where("end_at < ? AND claimed_amount < total_amount AND is_active = ?", now, true).
		Find(&streams).Error
	return streams, err
}
