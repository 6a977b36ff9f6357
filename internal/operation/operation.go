// Package operation resolves coordinate operations between coordinate reference
// systems: it decomposes compound CRSs, bridges geodetic datums, normalizes axes and
// units, and concatenates the resulting math transforms.
package operation

import (
	"fmt"
	"strings"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/transform"
)

// Operation names.
const (
	NameIdentity             = "Identity"
	NameAxisChanges          = "Axis changes"
	NameDatumShift           = "Datum shift"
	NameEllipsoidShift       = "Ellipsoid shift"
	NameGeocentricConversion = "Geocentric conversion"
	NameMapProjection        = "Map projection"
	NameInverse              = "Inverse operation"
	NameConcatenated         = "Concatenated operation"
)

// Operation is a resolved coordinate operation. It is immutable and safe for
// concurrent use.
type Operation struct {
	name      string
	source    domain.CRS
	target    domain.CRS
	transform transform.MathTransform
	accuracy  []domain.Accuracy
}

func newOperation(name string, source, target domain.CRS, mt transform.MathTransform, accuracy ...domain.Accuracy) *Operation {
	return &Operation{
		name:      name,
		source:    source,
		target:    target,
		transform: mt,
		accuracy:  mergeAccuracy(accuracy),
	}
}

// Name returns the operation name.
func (o *Operation) Name() string { return o.name }

// Source returns the effective source CRS. It differs from the requested one when a
// compound CRS was rewritten into a 3D geographic CRS.
func (o *Operation) Source() domain.CRS { return o.source }

// Target returns the effective target CRS.
func (o *Operation) Target() domain.CRS { return o.target }

// MathTransform returns the transform from source to target coordinates.
func (o *Operation) MathTransform() transform.MathTransform { return o.transform }

// Accuracy returns a copy of the accuracy annotations.
func (o *Operation) Accuracy() []domain.Accuracy {
	cp := make([]domain.Accuracy, len(o.accuracy))
	copy(cp, o.accuracy)
	return cp
}

// HasAccuracy reports whether the operation carries the annotation a.
func (o *Operation) HasAccuracy(a domain.Accuracy) bool {
	for _, v := range o.accuracy {
		if v == a {
			return true
		}
	}
	return false
}

// PositionalError returns the largest positional error estimate of the annotations,
// in metres. Zero means no datum shift was involved.
func (o *Operation) PositionalError() float64 {
	worst := 0.0
	for _, a := range o.accuracy {
		worst = max(worst, a.PositionalError())
	}
	return worst
}

// Inverse returns the operation from target to source.
func (o *Operation) Inverse() (*Operation, error) {
	inv, err := o.transform.Inverse()
	if err != nil {
		return nil, err
	}
	return newOperation(NameInverse, o.target, o.source, inv, o.accuracy...), nil
}

// String returns a short description.
func (o *Operation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s -> %s", o.name, o.source.Name(), o.target.Name())
	if len(o.accuracy) > 0 {
		parts := make([]string, len(o.accuracy))
		for i, a := range o.accuracy {
			parts[i] = a.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	return b.String()
}

// mergeAccuracy removes duplicates. An omitted shift dominates an applied one, so an
// operation never carries both.
func mergeAccuracy(in []domain.Accuracy) []domain.Accuracy {
	var out []domain.Accuracy
	omitted := false
	for _, a := range in {
		if a == domain.DatumShiftOmitted {
			omitted = true
		}
	}
	for _, a := range in {
		if a == "" || (omitted && a == domain.DatumShiftApplied) {
			continue
		}
		dup := false
		for _, o := range out {
			dup = dup || o == a
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}

// concatenate chains steps into one operation from source to target.
func concatenate(source, target domain.CRS, steps ...*Operation) (*Operation, error) {
	transforms := make([]transform.MathTransform, 0, len(steps))
	var accuracy []domain.Accuracy
	name := NameIdentity
	named := 0
	for _, s := range steps {
		transforms = append(transforms, s.transform)
		accuracy = append(accuracy, s.accuracy...)
		if !s.transform.IsIdentity() {
			name = s.name
			named++
		}
	}
	if named > 1 {
		name = NameConcatenated
	}

	mt, err := transform.Concatenate(transforms...)
	if err != nil {
		return nil, &domain.OperationNotFoundError{
			Source: source.Name(),
			Target: target.Name(),
			Stage:  domain.StageConcatenate,
			Reason: "steps do not chain",
			Err:    err,
		}
	}
	return newOperation(name, source, target, mt, accuracy...), nil
}
