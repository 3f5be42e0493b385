package analytics

import (
	"context"
	"log/slog"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
)

// Source is the read side of the store the statistics are computed from.
type Source interface {
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	ListPeriods(ctx context.Context) ([]model.UsagePeriod, error)
	ListPeriodsByItem(ctx context.Context, itemID int64) ([]model.UsagePeriod, error)
	GetOpenUsage(ctx context.Context, itemID int64) (*model.OpenUsage, error)
	ListOpenUsages(ctx context.Context) ([]model.OpenUsage, error)
}

// Service fetches usage history from a Source and runs the pure aggregators
// over it. Read failures are returned as *model.AggregationError.
type Service struct {
	Source Source
	Clock  clock.Clock
	Log    *slog.Logger
}

// NewService creates a statistics service.
func NewService(src Source, clk clock.Clock, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{Source: src, Clock: clk, Log: log}
}

func aggErr(component string, err error) error {
	return &model.AggregationError{Component: component, Err: err}
}

// ItemUsage bundles the statistics shown next to a single item.
type ItemUsage struct {
	Stats     ItemStats           `json:"stats"`
	Frequency Frequency           `json:"frequency"`
	Open      *model.OpenUsage    `json:"open_usage"`
	Periods   []model.UsagePeriod `json:"periods"`
}

// ItemUsage returns an item's statistics, frequency buckets, open usage and
// history. A missing item is a *model.NotFoundError.
func (s *Service) ItemUsage(ctx context.Context, itemID int64) (*ItemUsage, error) {
	item, err := s.Source.GetItem(ctx, itemID)
	if err != nil {
		return nil, aggErr("item stats", err)
	}
	if item == nil || item.DeletedAt != nil {
		return nil, &model.NotFoundError{Resource: "item", ID: itemID}
	}
	periods, err := s.Source.ListPeriodsByItem(ctx, itemID)
	if err != nil {
		return nil, aggErr("item stats", err)
	}
	open, err := s.Source.GetOpenUsage(ctx, itemID)
	if err != nil {
		return nil, aggErr("item stats", err)
	}

	now := s.Clock.Now()
	if periods == nil {
		periods = []model.UsagePeriod{}
	}
	return &ItemUsage{
		Stats:     StatsForItem(*item, periods, open, now),
		Frequency: FrequencyBuckets(periods, open, now),
		Open:      open,
		Periods:   periods,
	}, nil
}

// Overview returns fleet-wide totals.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, aggErr("overview", err)
	}
	periods, err := s.Source.ListPeriods(ctx)
	if err != nil {
		return nil, aggErr("overview", err)
	}
	open, err := s.Source.ListOpenUsages(ctx)
	if err != nil {
		return nil, aggErr("overview", err)
	}
	o := FleetOverview(items, periods, open)
	return &o, nil
}

// StatusDistribution counts items per status.
func (s *Service) StatusDistribution(ctx context.Context) ([]StatusCount, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, aggErr("status distribution", err)
	}
	return StatusDistribution(items), nil
}

// SeasonDistribution counts items per season.
func (s *Service) SeasonDistribution(ctx context.Context) ([]SeasonCount, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, aggErr("season distribution", err)
	}
	return SeasonDistribution(items), nil
}

// UsageBySeason counts usage periods per nominal item season.
func (s *Service) UsageBySeason(ctx context.Context) ([]SeasonCount, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, aggErr("usage by season", err)
	}
	periods, err := s.Source.ListPeriods(ctx)
	if err != nil {
		return nil, aggErr("usage by season", err)
	}
	return UsageBySeason(items, periods), nil
}

// MostUsed ranks items by usage.
func (s *Service) MostUsed(ctx context.Context, limit int) ([]MostUsedItem, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, aggErr("most used", err)
	}
	periods, err := s.Source.ListPeriods(ctx)
	if err != nil {
		return nil, aggErr("most used", err)
	}
	out := MostUsed(items, periods, limit)
	if out == nil {
		out = []MostUsedItem{}
	}
	return out, nil
}

// livePeriods returns the usage periods of items that are not deleted.
func (s *Service) livePeriods(ctx context.Context) ([]model.UsagePeriod, error) {
	items, err := s.Source.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	periods, err := s.Source.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	return PeriodsOf(items, periods), nil
}

// UsageByYear counts usage periods per start year.
func (s *Service) UsageByYear(ctx context.Context) ([]YearCount, error) {
	periods, err := s.livePeriods(ctx)
	if err != nil {
		return nil, aggErr("usage by year", err)
	}
	return UsageByYear(periods), nil
}

// UsageByMonth counts usage periods per month over the trailing year.
func (s *Service) UsageByMonth(ctx context.Context) ([]MonthCount, error) {
	periods, err := s.livePeriods(ctx)
	if err != nil {
		return nil, aggErr("usage by month", err)
	}
	return UsageByMonth(periods, s.Clock.Now()), nil
}

// Dashboard holds every fleet statistic. A statistic whose inputs could not
// be read is left empty and its error is listed in Errors.
type Dashboard struct {
	Overview           *Overview      `json:"overview"`
	StatusDistribution []StatusCount  `json:"status_distribution"`
	SeasonDistribution []SeasonCount  `json:"season_distribution"`
	UsageBySeason      []SeasonCount  `json:"usage_by_season"`
	MostUsed           []MostUsedItem `json:"most_used"`
	UsageByYear        []YearCount    `json:"usage_by_year"`
	UsageByMonth       []MonthCount   `json:"usage_by_month"`
	Errors             []string       `json:"errors,omitempty"`
}

// Dashboard computes every fleet statistic. One failing statistic does not
// stop the others.
func (s *Service) Dashboard(ctx context.Context, mostUsedLimit int) *Dashboard {
	d := &Dashboard{}
	record := func(err error) {
		if err != nil {
			s.Log.Error("computing statistic", "error", err)
			d.Errors = append(d.Errors, err.Error())
		}
	}

	var err error
	d.Overview, err = s.Overview(ctx)
	record(err)
	d.StatusDistribution, err = s.StatusDistribution(ctx)
	record(err)
	d.SeasonDistribution, err = s.SeasonDistribution(ctx)
	record(err)
	d.UsageBySeason, err = s.UsageBySeason(ctx)
	record(err)
	d.MostUsed, err = s.MostUsed(ctx, mostUsedLimit)
	record(err)
	d.UsageByYear, err = s.UsageByYear(ctx)
	record(err)
	d.UsageByMonth, err = s.UsageByMonth(ctx)
	record(err)
	return d
}
