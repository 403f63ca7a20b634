package types

// DisplayMetrics describes the physical display. It is captured once when the
// engine starts and treated as read-only afterwards.
type DisplayMetrics struct {
	Density           float64 `json:"density"`
	StatusBarHeightPx int     `json:"statusBarHeightPx"`
	ScreenWidthPx     int     `json:"screenWidthPx"`
	ScreenHeightPx    int     `json:"screenHeightPx"`
}
