package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

type gormReceiptRepository struct {
	db     *gorm.DB
	logger application.AppLogger
}

// OpenPostgres connects to dsn and migrates the receipts table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&domain.Receipt{}); err != nil {
		return nil, err
	}
	return db, nil
}

func NewGormReceiptRepository(db *gorm.DB, logger application.AppLogger) domain.ReceiptRepository {
	return &gormReceiptRepository{db: db, logger: logger}
}

func (r *gormReceiptRepository) Save(ctx context.Context, receipt domain.Receipt) error {
	if err := r.db.WithContext(ctx).Create(&receipt).Error; err != nil {
		application.LogError(ctx, r.logger, "failed to save receipt", err, map[string]interface{}{
			"receipt_id": receipt.ID,
		})
		return err
	}

	application.LogDebug(ctx, r.logger, "receipt saved", map[string]interface{}{
		"receipt_id": receipt.ID,
		"status":     receipt.Status,
	})
	return nil
}

func (r *gormReceiptRepository) Update(ctx context.Context, receipt domain.Receipt) error {
	result := r.db.WithContext(ctx).Model(&domain.Receipt{}).Where("id = ?", receipt.ID).Updates(map[string]interface{}{
		"status":     receipt.Status,
		"message":    receipt.Message,
		"updated_at": receipt.UpdatedAt,
	})
	if result.Error != nil {
		application.LogError(ctx, r.logger, "failed to update receipt", result.Error, map[string]interface{}{
			"receipt_id": receipt.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("receipt %s: %w", receipt.ID, domain.ErrNotFound)
	}

	application.LogDebug(ctx, r.logger, "receipt updated", map[string]interface{}{
		"receipt_id": receipt.ID,
		"status":     receipt.Status,
	})
	return nil
}

func (r *gormReceiptRepository) FindByID(ctx context.Context, id string) (domain.Receipt, error) {
	var receipt domain.Receipt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Receipt{}, fmt.Errorf("receipt %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		application.LogError(ctx, r.logger, "failed to find receipt", err, map[string]interface{}{
			"receipt_id": id,
		})
		return domain.Receipt{}, err
	}
	return receipt, nil
}

func (r *gormReceiptRepository) FindByUsername(ctx context.Context, username string) ([]domain.Receipt, error) {
	var receipts []domain.Receipt
	if err := r.db.WithContext(ctx).Where("username = ?", username).Order("created_at desc").Find(&receipts).Error; err != nil {
		application.LogError(ctx, r.logger, "failed to find receipts", err, map[string]interface{}{
			"username": username,
		})
		return nil, err
	}
	return receipts, nil
}
