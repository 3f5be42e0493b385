package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

func TestUpdatePeriod(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, winterQuilt("A"))
	StartUsage(ctx, database, item.ID, StartUsageInput{StartedAt: jan(1)})
	period, _ := EndUsage(ctx, database, item.ID, EndUsageInput{EndedAt: jan(8), Notes: "first"})

	score := 5
	updated, err := UpdatePeriod(ctx, database, period.ID, PeriodEdit{Satisfaction: &score})
	if err != nil {
		t.Fatalf("UpdatePeriod: %v", err)
	}
	if updated.Satisfaction == nil || *updated.Satisfaction != 5 {
		t.Errorf("expected satisfaction 5, got %v", updated.Satisfaction)
	}
	if updated.Notes != "first" {
		t.Errorf("expected untouched notes, got %q", updated.Notes)
	}
	if updated.DurationDays != 7 {
		t.Errorf("expected duration preserved, got %d", updated.DurationDays)
	}

	bad := 0
	if _, err := UpdatePeriod(ctx, database, period.ID, PeriodEdit{Satisfaction: &bad}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := UpdatePeriod(ctx, database, 999, PeriodEdit{}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeletePeriodRefreshesSnapshot(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, winterQuilt("A"))
	StartUsage(ctx, database, item.ID, StartUsageInput{StartedAt: jan(1)})
	period, _ := EndUsage(ctx, database, item.ID, EndUsageInput{EndedAt: jan(8)})

	if err := DeletePeriod(ctx, database, period.ID); err != nil {
		t.Fatalf("DeletePeriod: %v", err)
	}

	periods, _ := ListPeriodsByItem(ctx, database, item.ID)
	if len(periods) != 0 {
		t.Errorf("expected no periods, got %d", len(periods))
	}
	snap, _ := GetSnapshot(ctx, database, "2024-01-08")
	if snap == nil || snap.UsageEnded != 0 {
		t.Errorf("expected end-day snapshot refreshed to 0 ended, got %+v", snap)
	}
}
