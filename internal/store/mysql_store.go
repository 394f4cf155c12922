package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/evyataryagoni/geolookup/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GeoRecordModel is the GORM model for the geo_records table
type GeoRecordModel struct {
	IP          string  `gorm:"column:ip;primaryKey;size:45"`
	CountryCode string  `gorm:"column:country_code;size:2"`
	CountryName string  `gorm:"column:country_name"`
	RegionCode  string  `gorm:"column:region_code"`
	RegionName  string  `gorm:"column:region_name"`
	City        string  `gorm:"column:city"`
	ZipCode     string  `gorm:"column:zipcode"`
	Latitude    float64 `gorm:"column:latitude"`
	Longitude   float64 `gorm:"column:longitude"`
	MetroCode   string  `gorm:"column:metro_code"`
	AreaCode    string  `gorm:"column:areacode"`
}

// TableName overrides GORM's pluralized default
func (GeoRecordModel) TableName() string {
	return "geo_records"
}

func (m GeoRecordModel) toRecord() *models.GeoRecord {
	return &models.GeoRecord{
		IP:          m.IP,
		CountryCode: m.CountryCode,
		CountryName: m.CountryName,
		RegionCode:  m.RegionCode,
		RegionName:  m.RegionName,
		City:        m.City,
		ZipCode:     m.ZipCode,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		MetroCode:   m.MetroCode,
		AreaCode:    m.AreaCode,
	}
}

// MySQLStore implements Store on MySQL through GORM
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore connects to MySQL.
// dsn format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// FindByIP implements the Store interface.
// Query: SELECT * FROM geo_records WHERE ip = ? ORDER BY ip LIMIT 1
func (s *MySQLStore) FindByIP(ip string) (*models.GeoRecord, error) {
	var record GeoRecordModel

	result := s.db.Where("ip = ?", ip).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", result.Error)
	}

	return record.toRecord(), nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
