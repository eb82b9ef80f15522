package services

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

// AnalyticsPipes names the three remote queries. Empty fields take the defaults.
type AnalyticsPipes struct {
	Fast     string
	Fallback string
	Country  string
}

type AnalyticsService struct {
	querier ports.AnalyticsQuerier
	pipes   AnalyticsPipes
}

func NewAnalyticsService(querier ports.AnalyticsQuerier, pipes AnalyticsPipes) *AnalyticsService {
	if pipes.Fast == "" {
		pipes.Fast = "fast_link_analytics"
	}
	if pipes.Fallback == "" {
		pipes.Fallback = "link_analytics"
	}
	if pipes.Country == "" {
		pipes.Country = "link_country_analytics"
	}
	return &AnalyticsService{querier: querier, pipes: pipes}
}

// LinkAnalytics never fails: every upstream problem degrades to the
// placeholder, the no-data state or an empty country breakdown.
func (s *AnalyticsService) LinkAnalytics(ctx context.Context, principalID, linkID string, daysBack int) domain.LinkAnalytics {
	if s.querier == nil || !s.querier.Configured() {
		return domain.LinkAnalytics{State: domain.AnalyticsUnconfigured, Summary: domain.PlaceholderSummary(linkID)}
	}

	q := domain.AnalyticsQuery{PrincipalID: principalID, LinkID: linkID, DaysBack: domain.ClampDaysBack(daysBack)}

	countries := make(chan []domain.CountryPoint, 1)
	go func() {
		countries <- s.countryBreakdown(ctx, q)
	}()

	rows, ok := s.dailyRows(ctx, q)
	countryData := <-countries

	if !ok || len(rows) == 0 {
		return domain.LinkAnalytics{State: domain.AnalyticsNoData}
	}

	summary := assembleSummary(linkID, rows)
	summary.CountryData = countryData
	return domain.LinkAnalytics{State: domain.AnalyticsReady, Summary: summary}
}

// dailyRows tries the fast pipe, then the fallback. ok is false when both fail.
func (s *AnalyticsService) dailyRows(ctx context.Context, q domain.AnalyticsQuery) ([]domain.DailyStatsRow, bool) {
	var rows []domain.DailyStatsRow
	err := s.querier.QueryPipe(ctx, s.pipes.Fast, q, &rows)
	if err == nil {
		return rows, true
	}
	slog.Warn("fast link analytics failed, falling back", "pipe", s.pipes.Fast, "link_id", q.LinkID, "error", err)

	rows = nil
	if err := s.querier.QueryPipe(ctx, s.pipes.Fallback, q, &rows); err != nil {
		slog.Error("link analytics failed", "pipe", s.pipes.Fallback, "link_id", q.LinkID, "error", err)
		return nil, false
	}
	return rows, true
}

func (s *AnalyticsService) countryBreakdown(ctx context.Context, q domain.AnalyticsQuery) []domain.CountryPoint {
	var rows []domain.CountryStatsRow
	if err := s.querier.QueryPipe(ctx, s.pipes.Country, q, &rows); err != nil {
		slog.Warn("country analytics unavailable", "pipe", s.pipes.Country, "link_id", q.LinkID, "error", err)
		return []domain.CountryPoint{}
	}

	points := make([]domain.CountryPoint, 0, len(rows))
	for _, row := range rows {
		country := row.Country
		if country == "" {
			country = "Unknown"
		}
		points = append(points, domain.CountryPoint{Country: country, Clicks: row.TotalClicks, Percentage: row.Percentage})
	}
	return points
}

// assembleSummary builds the ascending daily series and its totals. Link
// metadata comes from the first row as returned, which is the newest day.
func assembleSummary(linkID string, rows []domain.DailyStatsRow) *domain.AnalyticsSummary {
	first := rows[0]
	summary := &domain.AnalyticsSummary{
		LinkID:      linkID,
		LinkTitle:   first.LinkTitle,
		LinkURL:     first.LinkURL,
		DailyData:   make([]domain.DailyPoint, 0, len(rows)),
		CountryData: []domain.CountryPoint{},
	}
	if summary.LinkTitle == "" {
		summary.LinkTitle = "Unknown Link"
	}

	for _, row := range rows {
		summary.DailyData = append(summary.DailyData, domain.DailyPoint{
			Date:        row.Date,
			Clicks:      row.TotalClicks,
			UniqueUsers: row.UniqueUsers,
			Countries:   row.CountriesReached,
		})
		summary.TotalClicks += row.TotalClicks
		summary.UniqueUsers = max(summary.UniqueUsers, row.UniqueUsers)
		summary.CountriesReached = max(summary.CountriesReached, row.CountriesReached)
	}

	slices.SortStableFunc(summary.DailyData, func(a, b domain.DailyPoint) int {
		return strings.Compare(a.Date, b.Date)
	})
	return summary
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
