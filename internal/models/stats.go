package models

// DailyStats is one row of per-day aggregate counters
type DailyStats struct {
	Date           string  `json:"date"`
	KeyCount       uint64  `json:"key_count"`
	ClickCount     uint64  `json:"click_count"`
	MouseDistance  float64 `json:"mouse_distance"`
	ScrollDistance float64 `json:"scroll_distance"`
}

// AppKeyCount is a per-application key count over a date range
type AppKeyCount struct {
	AppName  string `json:"app_name"`
	KeyCount uint64 `json:"key_count"`
}

// DailyKeyCount pairs a date with its key count, for history charts
type DailyKeyCount struct {
	Date     string `json:"date"`
	KeyCount uint64 `json:"key_count"`
}

// HourlyForeground is accumulated foreground seconds for one app in one
// local clock hour
type HourlyForeground struct {
	Date            string  `json:"date"`
	Hour            int     `json:"hour"`
	AppName         string  `json:"app_name"`
	DurationSeconds float64 `json:"duration_seconds"`
}
