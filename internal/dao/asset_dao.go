package dao

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reconpipe/internal/models"
)

// AssetStats is the per-scan count summary across every asset table.
type AssetStats struct {
	Subdomains int64 `json:"subdomains"`
	LiveHosts  int64 `json:"live_hosts"`
	OpenPorts  int64 `json:"open_ports"`
	URLs       int64 `json:"urls"`
	JSAssets   int64 `json:"js_assets"`
}

// AssetDAO is the dedup engine. Each Record* call attempts an atomic
// identity-unique insert per record (ON CONFLICT DO NOTHING) and returns
// only the records never seen before. A conflict is "already known", not an
// error, so the insert is safe under concurrent writers and is the single
// serialization point between concurrent scans.
type AssetDAO interface {
	RecordSubdomains(records []models.Subdomain) ([]models.Subdomain, error)
	RecordLiveHosts(records []models.LiveHost) ([]models.LiveHost, error)
	RecordOpenPorts(records []models.OpenPort) ([]models.OpenPort, error)
	RecordURLs(records []models.URL) ([]models.URL, error)

	GetJSAsset(url string) (*models.JSAsset, error)
	InsertJSAsset(asset *models.JSAsset) error
	MarkJSAssetChanged(url, hash string, size int, checkedAt int64) error

	SubdomainsByDomain(domain string) ([]models.Subdomain, error)
	SubdomainsByScan(scanID string) ([]models.Subdomain, error)
	LiveHostsByScan(scanID string) ([]models.LiveHost, error)
	OpenPortsByScan(scanID string) ([]models.OpenPort, error)
	URLsByScan(scanID string) ([]models.URL, error)
	CountByScan(scanID string) (*AssetStats, error)
}

type assetDAO struct {
	db *gorm.DB
}

func NewAssetDAO(db *gorm.DB) AssetDAO {
	return &assetDAO{db: db}
}

func (dao *assetDAO) RecordSubdomains(records []models.Subdomain) ([]models.Subdomain, error) {
	fresh := make([]models.Subdomain, 0, len(records))
	for i := range records {
		res := dao.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&records[i])
		if res.Error != nil {
			return fresh, res.Error
		}
		if res.RowsAffected > 0 {
			fresh = append(fresh, records[i])
		}
	}
	return fresh, nil
}

func (dao *assetDAO) RecordLiveHosts(records []models.LiveHost) ([]models.LiveHost, error) {
	fresh := make([]models.LiveHost, 0, len(records))
	for i := range records {
		res := dao.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).Create(&records[i])
		if res.Error != nil {
			return fresh, res.Error
		}
		if res.RowsAffected > 0 {
			fresh = append(fresh, records[i])
		}
	}
	return fresh, nil
}

func (dao *assetDAO) RecordOpenPorts(records []models.OpenPort) ([]models.OpenPort, error) {
	fresh := make([]models.OpenPort, 0, len(records))
	for i := range records {
		res := dao.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "host"}, {Name: "port"}, {Name: "scan_id"}},
			DoNothing: true,
		}).Create(&records[i])
		if res.Error != nil {
			return fresh, res.Error
		}
		if res.RowsAffected > 0 {
			fresh = append(fresh, records[i])
		}
	}
	return fresh, nil
}

func (dao *assetDAO) RecordURLs(records []models.URL) ([]models.URL, error) {
	fresh := make([]models.URL, 0, len(records))
	for i := range records {
		res := dao.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).Create(&records[i])
		if res.Error != nil {
			return fresh, res.Error
		}
		if res.RowsAffected > 0 {
			fresh = append(fresh, records[i])
		}
	}
	return fresh, nil
}

func (dao *assetDAO) GetJSAsset(url string) (*models.JSAsset, error) {
	var asset models.JSAsset
	if err := dao.db.Where("url = ?", url).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (dao *assetDAO) InsertJSAsset(asset *models.JSAsset) error {
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(asset).Error
}

// MarkJSAssetChanged updates the stored hash and sets the sticky changed
// flag; the flag stays set until an operator clears it.
func (dao *assetDAO) MarkJSAssetChanged(url, hash string, size int, checkedAt int64) error {
	return dao.db.Model(&models.JSAsset{}).
		Where("url = ?", url).
		Updates(map[string]interface{}{
			"hash":         hash,
			"size":         size,
			"changed":      true,
			"last_checked": checkedAt,
		}).Error
}

func (dao *assetDAO) SubdomainsByDomain(domain string) ([]models.Subdomain, error) {
	var subs []models.Subdomain
	if err := dao.db.Where("parent_domain = ?", domain).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (dao *assetDAO) SubdomainsByScan(scanID string) ([]models.Subdomain, error) {
	var subs []models.Subdomain
	if err := dao.db.Where("scan_id = ?", scanID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (dao *assetDAO) LiveHostsByScan(scanID string) ([]models.LiveHost, error) {
	var hosts []models.LiveHost
	if err := dao.db.Where("scan_id = ?", scanID).Find(&hosts).Error; err != nil {
		return nil, err
	}
	return hosts, nil
}

func (dao *assetDAO) OpenPortsByScan(scanID string) ([]models.OpenPort, error) {
	var ports []models.OpenPort
	if err := dao.db.Where("scan_id = ?", scanID).Find(&ports).Error; err != nil {
		return nil, err
	}
	return ports, nil
}

func (dao *assetDAO) URLsByScan(scanID string) ([]models.URL, error) {
	var urls []models.URL
	if err := dao.db.Where("scan_id = ?", scanID).Find(&urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

func (dao *assetDAO) CountByScan(scanID string) (*AssetStats, error) {
	stats := &AssetStats{}
	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&models.Subdomain{}, &stats.Subdomains},
		{&models.LiveHost{}, &stats.LiveHosts},
		{&models.OpenPort{}, &stats.OpenPorts},
		{&models.URL{}, &stats.URLs},
		{&models.JSAsset{}, &stats.JSAssets},
	}
	for _, c := range counts {
		if err := dao.db.Model(c.model).Where("scan_id = ?", scanID).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}
