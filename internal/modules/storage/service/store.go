package service

import (
	"context"
	"sort"

	"smc_bot/internal/models"
)

// Store persists signals. Implementations assign ids on Create.
type Store interface {
	Create(ctx context.Context, s models.Signal) (string, error)
	Get(ctx context.Context, id string) (models.Signal, error)
	Update(ctx context.Context, id string, patch models.SignalPatch) error
	Delete(ctx context.Context, id string) error

	// List returns the user's signals newest first; limit <= 0 means all.
	List(ctx context.Context, userID string, limit int) ([]models.Signal, error)
	// Tracked returns every tracked signal of the user, closed included.
	Tracked(ctx context.Context, userID string) ([]models.Signal, error)
	// OpenTracked returns the tracked signals that are not closed yet.
	OpenTracked(ctx context.Context, userID string) ([]models.Signal, error)
}

func newestFirst(list []models.Signal) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

func limitList(list []models.Signal, limit int) []models.Signal {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
