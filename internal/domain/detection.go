// Package domain contains core business types and interfaces.
//
// This file defines the Detection type produced by an external Detector and
// the label grouping shared by the planner and the report formatter.
package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// =============================================================================
// Detection
// =============================================================================

// BBox is a pixel-space bounding box ordered as (x1, y1, x2, y2).
type BBox [4]float64

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b[2] - b[0] }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b[3] - b[1] }

// ErrBBoxLength is returned when a decoded bbox does not hold exactly four
// coordinates.
var ErrBBoxLength = errors.New("bbox must have exactly 4 coordinates")

// UnmarshalJSON decodes a four-element array. Shorter or longer arrays are
// rejected rather than padded or truncated.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != len(b) {
		return ErrBBoxLength
	}
	copy(b[:], coords)
	return nil
}

// Detection is one located, classified item found in an image.
// Labels come from an open vocabulary; unknown labels are valid.
type Detection struct {
	BBox  BBox    `json:"bbox"`
	Label string  `json:"label"`
	Score float64 `json:"score"`

	// faults records shape problems found while decoding JSON so Validate
	// can report them with the detection's position.
	faults decodeFault
}

type decodeFault uint8

const (
	faultMissingBBox decodeFault = 1 << iota
	faultBBoxLength
	faultMissingScore
)

// UnmarshalJSON decodes a detection, noting a missing bbox or score and a
// bbox of the wrong length instead of zero-filling them.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var wire struct {
		BBox  json.RawMessage `json:"bbox"`
		Label string          `json:"label"`
		Score *float64        `json:"score"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*d = Detection{Label: wire.Label}
	switch {
	case len(wire.BBox) == 0 || bytes.Equal(wire.BBox, []byte("null")):
		d.faults |= faultMissingBBox
	default:
		if err := d.BBox.UnmarshalJSON(wire.BBox); err != nil {
			if !errors.Is(err, ErrBBoxLength) {
				return err
			}
			d.faults |= faultBBoxLength
		}
	}
	if wire.Score == nil {
		d.faults |= faultMissingScore
	} else {
		d.Score = *wire.Score
	}
	return nil
}

// Validate checks the shape of a single detection. Field names in the
// returned error are prefixed with prefix (e.g. "detections[2]").
func (d Detection) Validate(prefix string, ve *ValidationError) {
	if d.Label == "" {
		ve.Fields[prefix+".label"] = "label is required"
	}
	switch {
	case d.faults&faultMissingScore != 0:
		ve.Fields[prefix+".score"] = "score is required"
	case math.IsNaN(d.Score) || d.Score < 0 || d.Score > 1:
		ve.Fields[prefix+".score"] = "score must be between 0 and 1"
	}
	switch {
	case d.faults&faultMissingBBox != 0:
		ve.Fields[prefix+".bbox"] = "bbox is required"
		return
	case d.faults&faultBBoxLength != 0:
		ve.Fields[prefix+".bbox"] = ErrBBoxLength.Error()
		return
	}
	for _, c := range d.BBox {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			ve.Fields[prefix+".bbox"] = "bbox coordinates must be finite"
			return
		}
	}
	if d.BBox[0] > d.BBox[2] || d.BBox[1] > d.BBox[3] {
		ve.Fields[prefix+".bbox"] = "bbox must satisfy x1<=x2 and y1<=y2"
	}
}

// ValidateDetections rejects malformed detections before they reach the
// planner or the store. An empty list is valid.
func ValidateDetections(op string, detections []Detection) error {
	ve := &ValidationError{Op: op, Fields: map[string]string{}}
	for i, d := range detections {
		d.Validate(fmt.Sprintf("detections[%d]", i), ve)
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// Detector produces detections for an image. Implementations are external
// collaborators; the pipeline only relies on the shape of their output.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// =============================================================================
// Label Grouping
// =============================================================================

// LabelCount is the number of detections sharing one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CountLabels groups detections by label, ordered by count descending with
// ties broken alphabetically.
func CountLabels(detections []Detection) []LabelCount {
	counts := make(map[string]int)
	for _, d := range detections {
		counts[d.Label]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// DistinctLabels returns the sorted set of labels present in detections.
func DistinctLabels(detections []Detection) []string {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for _, d := range detections {
		if _, ok := seen[d.Label]; ok {
			continue
		}
		seen[d.Label] = struct{}{}
		labels = append(labels, d.Label)
	}
	sort.Strings(labels)
	return labels
}
