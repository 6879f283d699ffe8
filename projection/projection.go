// Package projection turns a raw detection list into what the results panel
// and the overlay show.
package projection

import (
	"fmt"
	"sort"

	iface "DetOverlay/interface"
)

// DefaultLimit is how many rows the results list shows.
const DefaultLimit = 50

// Entry is one row of the results list.
type Entry struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Placeholder bool    `json:"placeholder,omitempty"`
	Hint        string  `json:"hint,omitempty"`
}

// Score is the confidence formatted to two decimals.
func (e Entry) Score() string {
	if e.Placeholder {
		return ""
	}
	return fmt.Sprintf("%.2f", e.Confidence)
}

// NoResults is shown instead of an empty list.
var NoResults = Entry{
	Name:        "No results",
	Placeholder: true,
	Hint:        "try lowering the confidence",
}

// List sorts by descending confidence, keeping the original order on ties,
// and keeps the first limit rows. The input is not modified.
func List(detections []iface.Detection, limit int) []Entry {
	if len(detections) == 0 {
		return []Entry{NoResults}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := make([]iface.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]Entry, 0, len(sorted))
	for _, d := range sorted {
		entries = append(entries, Entry{Name: d.Name(), Confidence: d.Confidence})
	}
	return entries
}

// Visible keeps detections whose confidence reaches threshold, in input order.
func Visible(detections []iface.Detection, threshold float64) []iface.Detection {
	out := make([]iface.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
