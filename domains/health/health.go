package health

import "context"

type StoreStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// Status is the aggregate health report: per-store connectivity plus a few
// scheduler figures that make a degraded node easy to spot from the outside.
type Status struct {
	Healthy        bool          `json:"healthy"`
	Uptime         string        `json:"uptime"`
	ServerID       string        `json:"server_id"`
	Stores         []StoreStatus `json:"stores"`
	ScheduledCount int64         `json:"scheduled_count"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) (Status, error)
}
