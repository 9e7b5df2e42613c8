package ports

import (
	"context"

	"dopastat/domain/dataset"
)

// DatasetLoaderPort turns a tabular source into an in-memory table
type DatasetLoaderPort interface {
	Load(ctx context.Context) (*dataset.Table, error)
}
