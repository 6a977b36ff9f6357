package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// TransformRequest asks for points to be converted between two CRSs given by
// authority code. Points are ordinates in the axis order of the source CRS.
type TransformRequest struct {
	Source  string
	Target  string
	Lenient bool // accept operations without a datum shift
	Points  [][]float64
}

// Validate checks that both codes are set and that every point has the same,
// finite, non-zero dimension.
func (r TransformRequest) Validate() error {
	if r.Source == "" {
		return &ValidationError{Field: "source", Value: r.Source, Constraint: "required", Message: "source CRS code is required"}
	}
	if r.Target == "" {
		return &ValidationError{Field: "target", Value: r.Target, Constraint: "required", Message: "target CRS code is required"}
	}
	if len(r.Points) == 0 {
		return &ValidationError{Field: "points", Value: 0, Constraint: "at least one point", Message: "no points given"}
	}

	dim := len(r.Points[0])
	for i, p := range r.Points {
		if len(p) == 0 || len(p) != dim {
			return &ValidationError{
				Field:      fmt.Sprintf("points[%d]", i),
				Value:      len(p),
				Constraint: fmt.Sprintf("%d ordinates", dim),
				Message:    "points must share one non-zero dimension",
			}
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("points[%d]: %w", i, ErrInvalidCoordinate)
			}
		}
	}
	return nil
}

// Dimension returns the number of ordinates per point.
func (r TransformRequest) Dimension() int {
	if len(r.Points) == 0 {
		return 0
	}
	return len(r.Points[0])
}

// OperationInfo describes a resolved coordinate operation.
type OperationInfo struct {
	Name            string   `json:"name"`
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	SourceAxes      []string `json:"source_axes"`
	TargetAxes      []string `json:"target_axes"`
	Accuracy        []string `json:"accuracy,omitempty"`
	PositionalError float64  `json:"positional_error_m"`
	Identity        bool     `json:"identity"`
	Transform       string   `json:"transform"`
}

// TransformResult holds converted points in target axis order.
type TransformResult struct {
	Operation      OperationInfo
	Points         [][]float64
	ProcessingTime time.Duration
}

// MaxEnvelopeDensify bounds the points inserted per envelope edge.
const MaxEnvelopeDensify = 1 << 20

// BoundaryPoints returns the number of points on an envelope boundary densified
// with densify points per edge.
func BoundaryPoints(densify int) int {
	return 4 * (densify + 1)
}

// EnvelopeRequest asks for a bounding box to be reprojected. The bound's X and Y
// are the first and second ordinates of the source CRS.
type EnvelopeRequest struct {
	Source  string
	Target  string
	Lenient bool
	Bound   orb.Bound
	Densify int // points per edge, 0 selects the service default
}

// Validate checks the codes and the bound.
func (r EnvelopeRequest) Validate() error {
	if r.Source == "" || r.Target == "" {
		return &ValidationError{Field: "source/target", Value: r.Source + "/" + r.Target, Constraint: "required", Message: "source and target CRS codes are required"}
	}
	if r.Bound.Min[0] > r.Bound.Max[0] || r.Bound.Min[1] > r.Bound.Max[1] {
		return &ValidationError{Field: "bbox", Value: r.Bound, Constraint: "min <= max", Message: "bounding box is inverted"}
	}
	if r.Densify < 0 {
		return &ValidationError{Field: "densify", Value: r.Densify, Constraint: ">= 0", Message: "densify must not be negative"}
	}
	if r.Densify > MaxEnvelopeDensify {
		return &PointLimitError{Field: "densify", Requested: r.Densify, Limit: MaxEnvelopeDensify}
	}
	return nil
}

// CheckPointLimit reports a PointLimitError when the densified boundary has more
// than limit points. A non-positive limit accepts any valid request. Call it
// after Validate.
func (r EnvelopeRequest) CheckPointLimit(limit int) error {
	if limit <= 0 {
		return nil
	}
	if n := BoundaryPoints(r.Densify); n > limit {
		return &PointLimitError{Field: "densify", Requested: n, Limit: limit}
	}
	return nil
}

// EnvelopeResult is a reprojected bounding box.
type EnvelopeResult struct {
	Operation OperationInfo
	Bound     orb.Bound
}
