package repositories

import (
	"context"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// VideoCatalog exposes read access to the lesson video catalog plus the
// single write used by the asset upload command.
type VideoCatalog interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context) ([]models.Video, error)
	SetStorageKey(ctx context.Context, id, storageKey string) error
}
