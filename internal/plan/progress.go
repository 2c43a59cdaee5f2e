package plan

import "math"

// ProgressSummary is a derived view of a plan's completion state.
// It is computed on demand and never persisted.
type ProgressSummary struct {
	PlanID string `json:"plan_id"`

	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`

	// PercentComplete is count-based, rounded to two decimals.
	PercentComplete float64 `json:"percent_complete"`

	// PercentByEstimate weights completion by estimate hours,
	// rounded to two decimals.
	PercentByEstimate float64 `json:"percent_by_estimate"`

	// EstimateHoursTotal is the recursive sum over the plan's forest.
	EstimateHoursTotal float64 `json:"estimate_hours_total"`

	// EstimateHoursCompleted is the recursive sum over completed tasks.
	EstimateHoursCompleted float64 `json:"estimate_hours_completed"`

	// EstimateHoursStored is the plan-level stored estimate, zero when the
	// plan relies on the derived sum instead.
	EstimateHoursStored float64 `json:"estimate_hours_stored,omitempty"`
}

// Round2 rounds a percentage or hour value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
