package logic

import (
	"errors"
	"net/url"

	"github.com/ipxlabs/rts/internal/apperr"
	"github.com/ipxlabs/rts/internal/logger"
	"github.com/ipxlabs/rts/internal/model"
	"gorm.io/gorm"
)

// OracleLogic 收益数据源管理
type OracleLogic struct {
	db *gorm.DB
}

func NewOracleLogic(db *gorm.DB) *OracleLogic {
	return &OracleLogic{db: db}
}

// RegisterSource 为活动登记收益数据源，仅活动创建者可操作
func (l *OracleLogic) RegisterSource(caller string, campaignId int64, platform, rawUrl, dataPath, authHeader string, frequencySecs int64) (*model.OracleSourceModel, error) {
	if platform == "" {
		return nil, apperr.New(apperr.KindInvalidAmount, "platform", "平台名称不能为空")
	}
	if dataPath == "" {
		return nil, apperr.New(apperr.KindInvalidAmount, "data_path", "收益字段路径不能为空")
	}
	parsed, err := url.Parse(rawUrl)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, apperr.New(apperr.KindInvalidAmount, "url", "数据源URL必须是http(s)地址")
	}
	if frequencySecs <= 0 {
		frequencySecs = 3600
	}

	var campaign model.CampaignModel
	if err := l.db.Where("id = ?", campaignId).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "campaign_id", "活动 %d 不存在", campaignId)
		}
		return nil, err
	}
	if campaign.Creator != caller {
		return nil, apperr.New(apperr.KindUnauthorized, "caller", "仅活动创建者可以登记数据源")
	}

	source := model.OracleSourceModel{
		CampaignId:          campaignId,
		Platform:            platform,
		Url:                 rawUrl,
		DataPath:            dataPath,
		AuthHeader:          authHeader,
		UpdateFrequencySecs: frequencySecs,
		IsActive:            true,
	}
	if err := l.db.Create(&source).Error; err != nil {
		return nil, err
	}

	logger.Info("Oracle source registered: campaign=%d platform=%s freq=%ds", campaignId, platform, frequencySecs)
	return &source, nil
}

// GetSources 查询活动的全部数据源
func (l *OracleLogic) GetSources(campaignId int64) ([]model.OracleSourceModel, error) {
	var sources []model.OracleSourceModel
	err := l.db.Where("campaign_id = ?", campaignId).Order("id ASC").Find(&sources).Error
	return sources, err
}

// SetSourceActive 启停数据源，仅活动创建者可操作
func (l *OracleLogic) SetSourceActive(caller string, sourceId int64, active bool) error {
	var source model.OracleSourceModel
	if err := l.db.Where("id = ?", sourceId).First(&source).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "source_id", "数据源 %d 不存在", sourceId)
		}
		return err
	}

	var campaign model.CampaignModel
	if err := l.db.Where("id = ?", source.CampaignId).First(&campaign).Error; err != nil {
		return err
	}
	if campaign.Creator != caller {
		return apperr.New(apperr.KindUnauthorized, "caller", "仅活动创建者可以启停数据源")
	}

	return l.db.Model(&model.OracleSourceModel{}).
		Where("id = ?", sourceId).
		Update("is_active", active).Error
}
