// Package types contains common read shapes shared across the application.
package types

// LocalityPool summarizes one city's eligible pool for the readiness query.
type LocalityPool struct {
	City         string `json:"city"`
	EligibleSize int    `json:"eligible_size"`
	MeetsMinimum bool   `json:"meets_minimum"`
}

// ReadinessReport is the read-only summary consumed by external dashboards.
// It is derived from the eligibility filter without running formation.
type ReadinessReport struct {
	PoolSize      int            `json:"pool_size"`
	EligibleCount int            `json:"eligible_count"`
	MinGroupSize  int            `json:"min_group_size"`
	Localities    []LocalityPool `json:"localities"`
}
