package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/odeje/internal/model"
)

// Repository exposes the package-level queries as methods so the analytics,
// recommendation and notification engines can depend on small interfaces.
type Repository struct {
	DB *sql.DB
}

// NewRepository wraps a database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return GetItem(ctx, r.DB, id)
}

func (r *Repository) ListItems(ctx context.Context) ([]model.Item, error) {
	return ListItems(ctx, r.DB, model.ItemFilter{})
}

func (r *Repository) ListAvailableItems(ctx context.Context) ([]model.Item, error) {
	return ListAvailableItems(ctx, r.DB)
}

func (r *Repository) ListPeriods(ctx context.Context) ([]model.UsagePeriod, error) {
	return ListPeriods(ctx, r.DB)
}

func (r *Repository) ListPeriodsByItem(ctx context.Context, itemID int64) ([]model.UsagePeriod, error) {
	return ListPeriodsByItem(ctx, r.DB, itemID)
}

func (r *Repository) GetOpenUsage(ctx context.Context, itemID int64) (*model.OpenUsage, error) {
	return GetOpenUsage(ctx, r.DB, itemID)
}

func (r *Repository) ListOpenUsages(ctx context.Context) ([]model.OpenUsage, error) {
	return ListOpenUsages(ctx, r.DB)
}

func (r *Repository) LatestWeather(ctx context.Context, limit int) ([]model.WeatherReading, error) {
	return LatestWeather(ctx, r.DB, limit)
}

func (r *Repository) FindSimilarNotification(ctx context.Context, typ model.NotificationType, itemID *int64, since time.Time) (*model.Notification, error) {
	return FindSimilarNotification(ctx, r.DB, typ, itemID, since)
}

func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return CreateNotification(ctx, r.DB, n)
}

func (r *Repository) LatestTwoWeather(ctx context.Context) (*model.WeatherReading, *model.WeatherReading, error) {
	return LatestTwoWeather(ctx, r.DB)
}
