package domain

import "time"

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// TaxTableStatus describes the tax table currently in use.
type TaxTableStatus struct {
	Loaded      bool      `json:"loaded"`
	Source      string    `json:"source"`
	FromCache   bool      `json:"fromCache"`
	ChicagoZIPs int       `json:"chicagoZips"`
	MappedZIPs  int       `json:"mappedZips"`
	Counties    int       `json:"counties"`
	LoadedAt    time.Time `json:"loadedAt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	TotalQuotes   int64   `json:"totalQuotes"`
	TaxLookups    int64   `json:"taxLookups"`
	EstimateRate  float64 `json:"estimateRate"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	TaxLoadErrors int64   `json:"taxLoadErrors"`
	Period        string  `json:"period"`
}
