package transform

import (
	"fmt"
	"strings"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

// Concatenated applies a sequence of transforms in order.
type Concatenated struct {
	steps []MathTransform
}

// Concatenate composes transforms applied left to right. Nested concatenations are
// flattened and every maximal run of linear steps collapses into one matrix, so a
// fully linear chain yields a single Linear transform. A chain of one step yields that
// step itself.
func Concatenate(transforms ...MathTransform) (MathTransform, error) {
	if len(transforms) == 0 {
		return nil, &domain.MismatchedDimensionError{Context: "concatenate", Expected: 1, Actual: 0}
	}

	var flat []MathTransform
	for _, t := range transforms {
		if c, ok := t.(*Concatenated); ok {
			flat = append(flat, c.steps...)
			continue
		}
		flat = append(flat, t)
	}

	for i := 1; i < len(flat); i++ {
		if flat[i-1].TargetDimensions() != flat[i].SourceDimensions() {
			return nil, &domain.MismatchedDimensionError{
				Context:  fmt.Sprintf("concatenate step %d (%s) after %s", i, flat[i], flat[i-1]),
				Expected: flat[i-1].TargetDimensions(),
				Actual:   flat[i].SourceDimensions(),
			}
		}
	}

	var steps []MathTransform
	var run *matrix.Matrix
	flush := func() error {
		if run == nil {
			return nil
		}
		lin, err := NewLinear(run)
		if err != nil {
			return err
		}
		run = nil
		steps = append(steps, lin)
		return nil
	}
	for _, t := range flat {
		lin, ok := t.(Linear)
		if !ok {
			if err := flush(); err != nil {
				return nil, err
			}
			steps = append(steps, t)
			continue
		}
		if run == nil {
			run = lin.Matrix()
			continue
		}
		product, err := lin.Matrix().Multiply(run)
		if err != nil {
			return nil, err
		}
		run = product
	}
	if err := flush(); err != nil {
		return nil, err
	}

	// Identity steps between non-linear steps carry no information.
	pruned := steps[:0]
	for _, t := range steps {
		if _, ok := t.(*Identity); ok && len(steps) > 1 {
			continue
		}
		pruned = append(pruned, t)
	}
	if len(pruned) == 0 {
		return NewIdentity(flat[0].SourceDimensions()), nil
	}
	if len(pruned) == 1 {
		return pruned[0], nil
	}
	return &Concatenated{steps: pruned}, nil
}

// Steps returns a copy of the steps.
func (t *Concatenated) Steps() []MathTransform {
	cp := make([]MathTransform, len(t.steps))
	copy(cp, t.steps)
	return cp
}

// SourceDimensions returns the source dimension of the first step.
func (t *Concatenated) SourceDimensions() int { return t.steps[0].SourceDimensions() }

// TargetDimensions returns the target dimension of the last step.
func (t *Concatenated) TargetDimensions() int { return t.steps[len(t.steps)-1].TargetDimensions() }

// Transform applies every step in order. Intermediate results live in a buffer owned
// by the call.
func (t *Concatenated) Transform(src, dst []float64, numPts int) error {
	if _, err := checkBuffers(t, src, dst, numPts); err != nil {
		return err
	}
	maxDim := 0
	for _, s := range t.steps {
		maxDim = max(maxDim, s.SourceDimensions(), s.TargetDimensions())
	}
	buf := make([]float64, numPts*maxDim)
	copy(buf, src[:numPts*t.SourceDimensions()])
	for _, s := range t.steps {
		if err := s.Transform(buf, buf, numPts); err != nil {
			return err
		}
	}
	copy(dst[:numPts*t.TargetDimensions()], buf)
	return nil
}

// Inverse returns the concatenation of the inverted steps in reverse order.
func (t *Concatenated) Inverse() (MathTransform, error) {
	inv := make([]MathTransform, len(t.steps))
	for i, s := range t.steps {
		si, err := s.Inverse()
		if err != nil {
			return nil, fmt.Errorf("inverse of %s: %w", s, err)
		}
		inv[len(t.steps)-1-i] = si
	}
	return Concatenate(inv...)
}

// IsIdentity returns false; identity chains collapse on construction.
func (t *Concatenated) IsIdentity() bool { return false }

// String lists the steps.
func (t *Concatenated) String() string {
	parts := make([]string, len(t.steps))
	for i, s := range t.steps {
		parts[i] = s.String()
	}
	return "Concatenated[" + strings.Join(parts, " -> ") + "]"
}
