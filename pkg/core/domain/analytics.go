package domain

// AnalyticsState tells the caller which terminal state the aggregation reached.
type AnalyticsState string

const (
	// AnalyticsUnconfigured means no analytics service is wired; Summary is a zero placeholder.
	AnalyticsUnconfigured AnalyticsState = "unconfigured"
	// AnalyticsNoData means the query succeeded (or degraded) without rows; Summary is nil.
	AnalyticsNoData       AnalyticsState = "no_data"
	AnalyticsReady        AnalyticsState = "ready"
)

const (
	DefaultDaysBack = 30
	MaxDaysBack     = 365
)

// AnalyticsQuery scopes every pipe call.
type AnalyticsQuery struct {
	PrincipalID string
	LinkID      string
	DaysBack    int
}

type LinkAnalytics struct {
	State   AnalyticsState    `json:"state"`
	Summary *AnalyticsSummary `json:"summary,omitempty"`
}

// AnalyticsSummary is recomputed on every request.
//
// UniqueUsers and CountriesReached are the peak single-day values of the
// series, not deduplicated totals; the pipes do not expose the latter.
type AnalyticsSummary struct {
	LinkID           string         `json:"linkId"`
	LinkTitle        string         `json:"linkTitle"`
	LinkURL          string         `json:"linkUrl"`
	TotalClicks      int64          `json:"totalClicks"`
	UniqueUsers      int64          `json:"uniqueUsers"`
	CountriesReached int64          `json:"countriesReached"`
	DailyData        []DailyPoint   `json:"dailyData"`
	CountryData      []CountryPoint `json:"countryData"`
}

type DailyPoint struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Clicks      int64  `json:"clicks"`
	UniqueUsers int64  `json:"uniqueUsers"`
	Countries   int64  `json:"countries"`
}

type CountryPoint struct {
	Country    string  `json:"country"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

// DailyStatsRow is one row of the daily link analytics pipes.
type DailyStatsRow struct {
	Date             string `json:"date"`
	LinkTitle        string `json:"linkTitle"`
	LinkURL          string `json:"linkUrl"`
	TotalClicks      int64  `json:"total_clicks"`
	UniqueUsers      int64  `json:"unique_users"`
	CountriesReached int64  `json:"countries_reached"`
}

// CountryStatsRow is one row of the country breakdown pipe.
type CountryStatsRow struct {
	Country     string  `json:"country"`
	TotalClicks int64   `json:"total_clicks"`
	UniqueUsers int64   `json:"unique_users"`
	Percentage  float64 `json:"percentage"`
}

// PlaceholderSummary is served when analytics is not configured.
func PlaceholderSummary(linkID string) *AnalyticsSummary {
	return &AnalyticsSummary{
		LinkID:      linkID,
		LinkTitle:   "Sample Link",
		LinkURL:     "https://example.com",
		DailyData:   []DailyPoint{},
		CountryData: []CountryPoint{},
	}
}

// ClampDaysBack maps zero or negative values to the default window.
func ClampDaysBack(days int) int {
	switch {
	case days <= 0:
		return DefaultDaysBack
	case days > MaxDaysBack:
		return MaxDaysBack
	}
	return days
}
