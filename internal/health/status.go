package health

import (
	"fmt"
	"strings"
)

// Threshold is one row of the status table: percentages from Min upward get
// Label, until the next row's Min.
type Threshold struct {
	Min   int    `json:"min"`
	Label string `json:"label"`
}

// DefaultThresholds reports "OK" below 50% hydration and "Highly Hydrated"
// from 50% on.
var DefaultThresholds = []Threshold{
	{Min: 0, Label: "OK"},
	{Min: 50, Label: "Highly Hydrated"},
}

// ValidateThresholds checks that the table starts at 0, has strictly
// ascending minimums no greater than 100, and has no empty labels.
func ValidateThresholds(ts []Threshold) error {
	if len(ts) == 0 {
		return fmt.Errorf("status table is empty")
	}
	if ts[0].Min != 0 {
		return fmt.Errorf("status table must start at 0, starts at %d", ts[0].Min)
	}
	for i, t := range ts {
		if strings.TrimSpace(t.Label) == "" {
			return fmt.Errorf("status table row %d has an empty label", i)
		}
		if t.Min > 100 {
			return fmt.Errorf("status table row %d: min %d exceeds 100", i, t.Min)
		}
		if i > 0 && t.Min <= ts[i-1].Min {
			return fmt.Errorf("status table row %d: min %d is not above %d", i, t.Min, ts[i-1].Min)
		}
	}
	return nil
}

// Classify returns the label of the last row whose Min does not exceed
// percent. ts must be valid.
func Classify(ts []Threshold, percent int) string {
	label := ts[0].Label
	for _, t := range ts[1:] {
		if percent < t.Min {
			break
		}
		label = t.Label
	}
	return label
}
