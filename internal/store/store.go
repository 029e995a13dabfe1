package store

import (
	"context"
	"errors"

	"fairshare/internal/model"
)

// Store is the dataset persistence interface used by the API server.
// Allocation runs are deliberately not persisted: durable run history is
// out of scope, so runs live in process memory only.
type Store interface {
	// SaveDataset stores a dataset and returns its assigned ID.
	SaveDataset(ctx context.Context, ds model.Dataset) (string, error)
	// GetDataset fetches a dataset by ID; ErrNotFound when absent.
	GetDataset(ctx context.Context, id string) (model.Dataset, error)
	// ListDatasets pages through stored datasets by insertion order.
	ListDatasets(ctx context.Context, cursor string, limit int) ([]model.Dataset, string, error)
}

var ErrNotFound = errors.New("not found")
