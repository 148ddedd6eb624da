package domain

import "math"

// ViewportState is the committed view of a reader session.
type ViewportState struct {
	CurrentPage  int     `json:"currentPage"`
	TotalPages   int     `json:"totalPages"`
	FitScale     float64 `json:"fitScale"`
	CurrentScale float64 `json:"currentScale"`
}

// ZoomPercent is the indicator shown to the user, relative to fit-to-width.
func (v ViewportState) ZoomPercent() int {
	if v.FitScale <= 0 {
		return 100
	}
	return int(math.Round(v.CurrentScale / v.FitScale * 100))
}
