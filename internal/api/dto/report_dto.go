package dto

import (
	"github.com/spec-kit/incident-insight/internal/domain"
)

// FleetMetricsResponse exposes aggregate metrics. Null fields mean the
// underlying data was insufficient, which the dashboard renders as a
// dash rather than a zero.
type FleetMetricsResponse struct {
	AvgResolutionSeconds *float64 `json:"avg_resolution_seconds"`
	AvgResolutionLabel   *string  `json:"avg_resolution_label"`
	AvgSatisfaction      *float64 `json:"avg_satisfaction"`
	ReopeningRate        *float64 `json:"reopening_rate"`
	ResolvedCount        int      `json:"resolved_count"`
	OpenCount            int      `json:"open_count"`
	TotalCount           int      `json:"total_count"`
}

// NewFleetMetricsResponse maps engine output.
func NewFleetMetricsResponse(metrics domain.FleetMetrics) FleetMetricsResponse {
	response := FleetMetricsResponse{
		AvgResolutionLabel: metrics.AvgResolutionLabel,
		AvgSatisfaction:    metrics.AvgSatisfaction,
		ReopeningRate:      metrics.ReopeningRate,
		ResolvedCount:      metrics.ResolvedCount,
		OpenCount:          metrics.OpenCount,
		TotalCount:         metrics.TotalCount,
	}
	if metrics.AvgResolution != nil {
		seconds := metrics.AvgResolution.Seconds()
		response.AvgResolutionSeconds = &seconds
	}
	return response
}
