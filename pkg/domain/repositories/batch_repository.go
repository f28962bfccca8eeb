package repositories

import "github.com/quadica/batchplan/pkg/domain/entities"

// BatchRepository provides access to manufacturing batches
type BatchRepository interface {
	GetBatch(batchID string) (*entities.Batch, error)
	GetAllBatches() ([]*entities.Batch, error)
	GetInProgressBatches() ([]*entities.Batch, error)
	GetBatchesByOrder(orderID string) ([]*entities.Batch, error)
	SaveBatch(batch *entities.Batch) error
}
