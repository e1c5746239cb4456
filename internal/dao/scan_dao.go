package dao

import (
	"gorm.io/gorm"

	"reconpipe/internal/models"
)

type ScanDAO interface {
	SaveScan(scan *models.Scan) error
	GetScanByUUID(uuid string) (*models.Scan, error)
	ListScansWithPagination(page, limit int) ([]models.Scan, int64, error)
	UpdateScan(scan *models.Scan) error
	DeleteScan(uuid string) error
}

type scanDAO struct {
	db *gorm.DB
}

func NewScanDAO(db *gorm.DB) ScanDAO {
	return &scanDAO{db: db}
}

func (dao *scanDAO) SaveScan(scan *models.Scan) error {
	return dao.db.Create(scan).Error
}

func (dao *scanDAO) UpdateScan(scan *models.Scan) error {
	return dao.db.Save(scan).Error
}

// GetScanByUUID returns (nil, nil) for an unknown id; callers translate
// that into their own not-found error.
func (dao *scanDAO) GetScanByUUID(uuid string) (*models.Scan, error) {
	var scan models.Scan
	if err := dao.db.Where("uuid = ?", uuid).First(&scan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &scan, nil
}

func (dao *scanDAO) ListScansWithPagination(page, limit int) ([]models.Scan, int64, error) {
	var scans []models.Scan
	var total int64

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit

	if err := dao.db.Model(&models.Scan{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := dao.db.Order("start_time desc").
		Limit(limit).
		Offset(offset).
		Find(&scans).Error; err != nil {
		return nil, 0, err
	}

	return scans, total, nil
}

// DeleteScan removes a scan and cascades to every asset it discovered.
func (dao *scanDAO) DeleteScan(uuid string) error {
	return dao.db.Transaction(func(tx *gorm.DB) error {
		var scan models.Scan
		if err := tx.Where("uuid = ?", uuid).First(&scan).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{
			&models.Subdomain{}, &models.LiveHost{}, &models.OpenPort{},
			&models.URL{}, &models.JSAsset{},
		} {
			if err := tx.Where("scan_id = ?", uuid).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&scan).Error
	})
}
