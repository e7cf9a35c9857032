// Package analytics is the advanced-analytics dashboard of the CRM: six independent
// data sources, each cached on its own and loaded through a multiload.Orchestrator.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Source names. They double as the last segment of each cache key.
const (
	SourceCompany = "company_performance"
	SourcePending = "pending_matches"
	SourceBrokers = "broker_rankings"
	SourceChurn   = "churn_analysis"
	SourceFunnel  = "conversion_funnel"
	SourceCapture = "capture_stats"
)

// AllSources in dashboard order.
var AllSources = []string{SourceCompany, SourcePending, SourceBrokers, SourceChurn, SourceFunnel, SourceCapture}

const dateLayout = "2006-01-02"

var periods = map[string]bool{"7d": true, "30d": true, "90d": true, "12m": true, "ytd": true}

// Filters scope one load of every source. Either Period or a date range is used.
type Filters struct {
	Period    string `form:"period" json:"period,omitempty"`
	StartDate string `form:"start_date" json:"start_date,omitempty"`
	EndDate   string `form:"end_date" json:"end_date,omitempty"`
	UserID    string `form:"user_id" json:"user_id,omitempty"`
	TeamID    string `form:"team_id" json:"team_id,omitempty"`
}

func (f Filters) Validate() error {
	if f.Period != "" && !periods[f.Period] {
		return fmt.Errorf("unknown period %q", f.Period)
	}
	if f.Period != "" && (f.StartDate != "" || f.EndDate != "") {
		return errors.New("period and date range are mutually exclusive")
	}
	var start, end time.Time
	var err error
	if f.StartDate != "" {
		if start, err = time.Parse(dateLayout, f.StartDate); err != nil {
			return fmt.Errorf("invalid start_date %q", f.StartDate)
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(dateLayout, f.EndDate); err != nil {
			return fmt.Errorf("invalid end_date %q", f.EndDate)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return errors.New("end_date is before start_date")
	}
	return nil
}

// Query renders the non-empty filters as URL query parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("period", f.Period)
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	set("user_id", f.UserID)
	set("team_id", f.TeamID)
	return q
}

type CompanyPerformance struct {
	TotalProperties int            `json:"totalProperties"`
	ActiveListings  int            `json:"activeListings"`
	ClosedDeals     int            `json:"closedDeals"`
	Revenue         float64        `json:"revenue"`
	AvgDaysOnMarket float64        `json:"avgDaysOnMarket"`
	ConversionRate  float64        `json:"conversionRate"`
	MonthlyTrend    []MonthlyPoint `json:"monthlyTrend"`
}

type MonthlyPoint struct {
	Month   string  `json:"month"`
	Deals   int     `json:"deals"`
	Revenue float64 `json:"revenue"`
}

type PendingMatch struct {
	MatchID       string    `json:"matchId"`
	ClientID      string    `json:"clientId"`
	ClientName    string    `json:"clientName"`
	PropertyID    string    `json:"propertyId"`
	PropertyTitle string    `json:"propertyTitle"`
	BrokerID      string    `json:"brokerId"`
	Score         float64   `json:"score"`
	CreatedAt     time.Time `json:"createdAt"`
}

type BrokerRanking struct {
	BrokerID       string  `json:"brokerId"`
	Name           string  `json:"name"`
	Rank           int     `json:"rank"`
	Deals          int     `json:"deals"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversionRate"`
}

type ChurnAnalysis struct {
	ChurnRate     float64        `json:"churnRate"`
	ChurnedCount  int            `json:"churnedCount"`
	AtRiskClients []AtRiskClient `json:"atRiskClients"`
	Reasons       []ChurnReason  `json:"reasons"`
}

type AtRiskClient struct {
	ClientID      string    `json:"clientId"`
	Name          string    `json:"name"`
	LastContactAt time.Time `json:"lastContactAt"`
	RiskScore     float64   `json:"riskScore"`
}

type ChurnReason struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type ConversionFunnel struct {
	Stages      []FunnelStage `json:"stages"`
	OverallRate float64       `json:"overallRate"`
}

type FunnelStage struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

type CaptureStats struct {
	TotalCaptured int               `json:"totalCaptured"`
	BySource      []CaptureBySource `json:"bySource"`
	ByBroker      []CaptureByBroker `json:"byBroker"`
}

type CaptureBySource struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type CaptureByBroker struct {
	BrokerID string `json:"brokerId"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// API fetches each source from the analytics backend.
type API interface {
	CompanyPerformance(ctx context.Context, f Filters) (CompanyPerformance, error)
	PendingMatches(ctx context.Context, f Filters) ([]PendingMatch, error)
	BrokerRankings(ctx context.Context, f Filters) ([]BrokerRanking, error)
	ChurnAnalysis(ctx context.Context, f Filters) (ChurnAnalysis, error)
	ConversionFunnel(ctx context.Context, f Filters) (ConversionFunnel, error)
	CaptureStats(ctx context.Context, f Filters) (CaptureStats, error)
}
