package dto

import "time"

// WeekProgress summarizes the pipeline state of one submitted week.
type WeekProgress struct {
	WeekStart  time.Time `json:"week_start"`
	WeekEnd    time.Time `json:"week_end"`
	TotalHours float64   `json:"total_hours"`
	Status     string    `json:"status"`
	EntryCount int       `json:"entry_count"`
	HasJournal bool      `json:"has_journal"`
}

// StudentDashboardResponse aggregates placement progress for one student.
type StudentDashboardResponse struct {
	PlacementID     uint           `json:"placement_id"`
	PlacementStatus string         `json:"placement_status"`
	RequiredHours   float64        `json:"required_hours"`
	CreditedHours   float64        `json:"credited_hours"`
	PendingHours    float64        `json:"pending_hours"`
	CompletionRate  float64        `json:"completion_rate"`
	Weeks           []WeekProgress `json:"weeks"`
	CacheHit        bool           `json:"cache_hit"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
