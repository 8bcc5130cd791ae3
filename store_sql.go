package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLDialector returns the gorm dialector of a supported sql driver
func SQLDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case StoreDriverPostgres:
		return postgres.Open(dsn), nil
	case StoreDriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
}

type SQLImageStore struct {
	db *gorm.DB

	now func() time.Time
}

// NewSQLImageStore opens a relational image store and migrates its schema
func NewSQLImageStore(dialector gorm.Dialector, logLevel logger.LogLevel) (*SQLImageStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(50)
	sqldb.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&sqlImage{}); err != nil {
		return nil, fmt.Errorf("fail to migrate image schema: %w", err)
	}

	return &SQLImageStore{
		db:  db,
		now: time.Now,
	}, nil
}

// CreateImage inserts a new image record. Ids are version 7 uuids, so they sort
// in creation order and break ties between equal upload times.
func (s *SQLImageStore) CreateImage(ctx context.Context, image NewImage) (ImageRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return ImageRecord{}, err
	}

	row := sqlImage{
		ID:         id.String(),
		Name:       ImageName(image.Name),
		URL:        image.URL,
		PublicID:   image.PublicID,
		UploadedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ImageRecord{}, err
	}

	return row.record(), nil
}

// GetImage returns an image record by id
func (s *SQLImageStore) GetImage(ctx context.Context, id string) (ImageRecord, error) {
	var row sqlImage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ImageRecord{}, ErrImageNotFound
		}
		return ImageRecord{}, err
	}

	return row.record(), nil
}

// ListImages returns all image records, the most recent upload first
func (s *SQLImageStore) ListImages(ctx context.Context) ([]ImageRecord, error) {
	var rows []sqlImage
	if err := s.db.WithContext(ctx).Order("uploaded_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}

	images := make([]ImageRecord, 0, len(rows))
	for _, row := range rows {
		images = append(images, row.record())
	}

	return images, nil
}

// RenameImage updates the name of an existing row inside a transaction
func (s *SQLImageStore) RenameImage(ctx context.Context, id, name string) (*ImageRecord, error) {
	var row sqlImage
	var found bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Model(&row).Update("name", name).Error; err != nil {
			return err
		}

		row.Name = name
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	record := row.record()
	return &record, nil
}

// DeleteImage removes an image record by id
func (s *SQLImageStore) DeleteImage(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&sqlImage{})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrImageNotFound
	}

	return nil
}

func (s *SQLImageStore) Close(_ context.Context) error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}
