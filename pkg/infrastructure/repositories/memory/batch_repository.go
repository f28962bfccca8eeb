package memory

import (
	"fmt"
	"sort"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// BatchRepository provides in-memory batch storage
type BatchRepository struct {
	batches map[string]*entities.Batch
}

// NewBatchRepository creates a new in-memory batch repository
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{
		batches: make(map[string]*entities.Batch),
	}
}

// Verify interface compliance
var _ repositories.BatchRepository = (*BatchRepository)(nil)

// GetBatch returns the batch with the given ID
func (r *BatchRepository) GetBatch(batchID string) (*entities.Batch, error) {
	b, exists := r.batches[batchID]
	if !exists {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}
	return b, nil
}

// GetAllBatches returns all batches sorted by creation time then ID
func (r *BatchRepository) GetAllBatches() ([]*entities.Batch, error) {
	var batches []*entities.Batch
	for _, b := range r.batches {
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.Before(batches[j].CreatedAt)
		}
		return batches[i].ID < batches[j].ID
	})
	return batches, nil
}

// GetInProgressBatches returns batches still open on the floor
func (r *BatchRepository) GetInProgressBatches() ([]*entities.Batch, error) {
	all, err := r.GetAllBatches()
	if err != nil {
		return nil, err
	}
	var open []*entities.Batch
	for _, b := range all {
		if b.Status == entities.BatchInProgress {
			open = append(open, b)
		}
	}
	return open, nil
}

// GetBatchesByOrder returns every batch containing work for an order
func (r *BatchRepository) GetBatchesByOrder(orderID string) ([]*entities.Batch, error) {
	all, err := r.GetAllBatches()
	if err != nil {
		return nil, err
	}
	var out []*entities.Batch
	for _, b := range all {
		for _, e := range b.Entries {
			if e.OrderID == orderID {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

// SaveBatch stores or replaces a batch
func (r *BatchRepository) SaveBatch(batch *entities.Batch) error {
	if batch == nil || batch.ID == "" {
		return fmt.Errorf("cannot save batch without an ID")
	}
	r.batches[batch.ID] = batch
	return nil
}
