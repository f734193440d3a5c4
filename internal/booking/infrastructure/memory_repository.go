package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

type InMemoryReceiptRepository struct {
	mu     sync.RWMutex
	data   map[string]domain.Receipt
	logger application.AppLogger
}

func NewInMemoryReceiptRepository(logger application.AppLogger) *InMemoryReceiptRepository {
	return &InMemoryReceiptRepository{
		data:   make(map[string]domain.Receipt),
		logger: logger,
	}
}

func (r *InMemoryReceiptRepository) Save(ctx context.Context, receipt domain.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[receipt.ID]; exists {
		return fmt.Errorf("receipt %s already exists", receipt.ID)
	}
	r.data[receipt.ID] = cloneReceipt(receipt)

	application.LogDebug(ctx, r.logger, "receipt saved", map[string]interface{}{
		"receipt_id": receipt.ID,
		"status":     receipt.Status,
	})
	return nil
}

func (r *InMemoryReceiptRepository) Update(ctx context.Context, receipt domain.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[receipt.ID]; !exists {
		return fmt.Errorf("receipt %s: %w", receipt.ID, domain.ErrNotFound)
	}
	r.data[receipt.ID] = cloneReceipt(receipt)

	application.LogDebug(ctx, r.logger, "receipt updated", map[string]interface{}{
		"receipt_id": receipt.ID,
		"status":     receipt.Status,
	})
	return nil
}

func (r *InMemoryReceiptRepository) FindByID(_ context.Context, id string) (domain.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	receipt, exists := r.data[id]
	if !exists {
		return domain.Receipt{}, fmt.Errorf("receipt %s: %w", id, domain.ErrNotFound)
	}
	return cloneReceipt(receipt), nil
}

// FindByUsername returns the user's receipts, newest first.
func (r *InMemoryReceiptRepository) FindByUsername(_ context.Context, username string) ([]domain.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var receipts []domain.Receipt
	for _, receipt := range r.data {
		if receipt.Username == username {
			receipts = append(receipts, cloneReceipt(receipt))
		}
	}
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

func cloneReceipt(r domain.Receipt) domain.Receipt {
	r.Seats = append([]int(nil), r.Seats...)
	return r
}
