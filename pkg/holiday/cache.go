package holiday

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
)

// HolidayRow holidays 表
type HolidayRow struct {
	ID        uint   `gorm:"primaryKey"`
	Country   string `gorm:"uniqueIndex:idx_holiday_day;size:8;not null"`
	Date      string `gorm:"uniqueIndex:idx_holiday_day;size:10;not null"`
	Year      int    `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	LocalName string
}

// TableName 表名
func (HolidayRow) TableName() string { return "holidays" }

// FetchedYear holiday_years 表，记录已缓存的国家与年份（包括没有任何假日的年份）
type FetchedYear struct {
	ID        uint      `gorm:"primaryKey"`
	Country   string    `gorm:"uniqueIndex:idx_holiday_year;size:8;not null"`
	Year      int       `gorm:"uniqueIndex:idx_holiday_year;not null"`
	Count     int       `gorm:"default:0"`
	FetchedAt time.Time `gorm:"not null"`
}

// TableName 表名
func (FetchedYear) TableName() string { return "holiday_years" }

// OpenDB 按 DSN 打开缓存数据库：postgres:// 开头使用 PostgreSQL，否则视为 SQLite 文件路径
func OpenDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	default:
		if dsn == "" {
			dsn = "holidays.db"
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "打开节假日缓存失败")
	}
	if err := db.AutoMigrate(&HolidayRow{}, &FetchedYear{}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "迁移节假日缓存失败")
	}
	return db, nil
}

// Cache 包装上游 Provider，每个国家和年份只向上游查询一次。
// 同一进程内并发的未命中共享一次上游请求；多个进程共用一个库时写入按唯一索引去重。
type Cache struct {
	db       *gorm.DB
	upstream Provider
	flight   singleflight.Group
}

// NewCache 创建缓存
func NewCache(db *gorm.DB, upstream Provider) *Cache {
	return &Cache{db: db, upstream: upstream}
}

// Holidays 实现 Provider
func (c *Cache) Holidays(ctx context.Context, country string, year int) ([]Holiday, error) {
	country = normalizeCountry(country)
	db := c.db.WithContext(ctx)

	var fetched FetchedYear
	err := db.Where("country = ? AND year = ?", country, year).Limit(1).Find(&fetched).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询节假日缓存失败")
	}
	if fetched.ID != 0 {
		return c.load(ctx, country, year)
	}

	v, err, _ := c.flight.Do(country+"/"+strconv.Itoa(year), func() (interface{}, error) {
		hs, err := c.upstream.Holidays(ctx, country, year)
		if err != nil {
			return nil, err
		}
		if err := c.store(ctx, country, year, hs); err != nil {
			return nil, err
		}
		logger.Info().Str("country", country).Int("year", year).Int("count", len(hs)).Msg("节假日已缓存")
		return hs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Holiday), nil
}

// Invalidate 删除某国某年的缓存，下一次查询会重新请求上游
func (c *Cache) Invalidate(ctx context.Context, country string, year int) error {
	country = normalizeCountry(country)
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("country = ? AND year = ?", country, year).Delete(&HolidayRow{}).Error; err != nil {
			return err
		}
		return tx.Where("country = ? AND year = ?", country, year).Delete(&FetchedYear{}).Error
	})
}

func (c *Cache) load(ctx context.Context, country string, year int) ([]Holiday, error) {
	var rows []HolidayRow
	err := c.db.WithContext(ctx).
		Where("country = ? AND year = ?", country, year).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取节假日缓存失败")
	}

	out := make([]Holiday, 0, len(rows))
	for _, r := range rows {
		date, err := model.ParseDate(r.Date)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "缓存中的日期无效")
		}
		out = append(out, Holiday{Date: date, Name: r.Name, LocalName: r.LocalName, Country: r.Country})
	}
	return out, nil
}

func (c *Cache) store(ctx context.Context, country string, year int, hs []Holiday) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range hs {
			row := HolidayRow{
				Country:   country,
				Date:      h.DateString(),
				Year:      year,
				Name:      h.Name,
				LocalName: h.LocalName,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		// 另一个进程可能已写入同一年份
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&FetchedYear{Country: country, Year: year, Count: len(hs), FetchedAt: time.Now()}).Error
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "写入节假日缓存失败")
	}
	return nil
}
