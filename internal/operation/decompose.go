package operation

import (
	"errors"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
	"github.com/jobrunner/refsys/internal/transform"
)

func (f *Factory) compoundToSingle(source *domain.CompoundCRS, target domain.SingleCRS) (*Operation, error) {
	sources := source.Components()
	if len(sources) == 1 {
		return f.createOperation(sources[0], target)
	}
	if !needsGeodetic3D(sources, target) {
		return f.matchComponents(source, sources, target, []domain.SingleCRS{target})
	}
	if source3D, ok := toGeodetic3D(source); ok {
		return f.createOperation(source3D, target)
	}
	return nil, notFound(source, target, domain.StageDecompose, "no ellipsoidal height to combine with the horizontal CRS", nil)
}

func (f *Factory) singleToCompound(source domain.SingleCRS, target *domain.CompoundCRS) (*Operation, error) {
	targets := target.Components()
	if len(targets) == 1 {
		return f.createOperation(source, targets[0])
	}
	if target3D, ok := toGeodetic3D(target); ok {
		return f.createOperation(source, target3D)
	}
	return f.matchComponents(source, []domain.SingleCRS{source}, target, targets)
}

func (f *Factory) compoundToCompound(source, target *domain.CompoundCRS) (*Operation, error) {
	sources, targets := source.Components(), target.Components()
	if len(targets) == 1 {
		return f.createOperation(source, targets[0])
	}
	if len(sources) == 1 {
		return f.createOperation(sources[0], target)
	}

	for _, t := range targets {
		if !needsGeodetic3D(sources, t) {
			continue
		}
		source3D, sourceChanged := toGeodetic3D(source)
		target3D, targetChanged := toGeodetic3D(target)
		if sourceChanged || targetChanged {
			return f.createOperation(source3D, target3D)
		}
		return nil, notFound(source, target, domain.StageDecompose, "no ellipsoidal height to combine with the horizontal CRS", nil)
	}
	return f.matchComponents(source, sources, target, targets)
}

// datumKind reports whether d is geodetic. ok is false for datums that are neither
// geodetic nor vertical.
func datumKind(d domain.Datum) (geodetic, ok bool) {
	switch d.(type) {
	case *domain.GeodeticDatum:
		return true, true
	case *domain.VerticalDatum:
		return false, true
	default:
		return false, false
	}
}

func equalDatums(a, b domain.Datum) bool {
	switch x := a.(type) {
	case *domain.GeodeticDatum:
		y, ok := b.(*domain.GeodeticDatum)
		return ok && x.Equal(y)
	case *domain.VerticalDatum:
		y, ok := b.(*domain.VerticalDatum)
		return ok && x.Equal(y)
	default:
		return a.Key() == b.Key()
	}
}

// needsGeodetic3D reports whether converting the sources to target requires the
// horizontal and vertical source components to be handled as one 3D geographic CRS:
// the sources must have both kinds and either the datum of target's kind changes or
// the target itself is 3D.
func needsGeodetic3D(sources []domain.SingleCRS, target domain.SingleCRS) bool {
	targetGeodetic, ok := datumKind(target.Datum())
	if !ok {
		return false
	}

	var horizontal, vertical, shift bool
	for _, s := range sources {
		sourceGeodetic, ok := datumKind(s.Datum())
		if !ok {
			continue
		}
		if sourceGeodetic {
			horizontal = true
		} else {
			vertical = true
		}
		if !shift && sourceGeodetic == targetGeodetic {
			shift = !equalDatums(s.Datum(), target.Datum())
		}
	}
	return horizontal && vertical && (shift || target.Dimension() >= 3)
}

// toGeodetic3D merges every 2D geographic component directly followed by an
// ellipsoidal height into one 3D geographic CRS. ok is false when nothing merged.
func toGeodetic3D(c domain.CRS) (domain.CRS, bool) {
	components := domain.Components(c)
	out := make([]domain.CRS, 0, len(components))
	changed := false

	for i := 0; i < len(components); i++ {
		if merged, ok := mergeHeight(c.Name(), components, i); ok {
			out = append(out, merged)
			changed = true
			i++
			continue
		}
		out = append(out, components[i])
	}

	if !changed {
		return c, false
	}
	if len(out) == 1 {
		return out[0], true
	}
	compound, err := domain.NewCompoundCRS(c.Name(), out...)
	if err != nil {
		return c, false
	}
	return compound, true
}

func mergeHeight(name string, components []domain.SingleCRS, i int) (*domain.GeographicCRS, bool) {
	if i+1 >= len(components) {
		return nil, false
	}
	g, ok := components[i].(*domain.GeographicCRS)
	if !ok || g.Dimension() != 2 {
		return nil, false
	}
	v, ok := components[i+1].(*domain.VerticalCRS)
	if !ok || v.VerticalDatum().Type() != domain.VerticalEllipsoidal {
		return nil, false
	}

	axes := append(g.CoordinateSystem().Axes(), v.CoordinateSystem().Axis(0))
	cs, err := domain.NewCoordinateSystem(domain.CSEllipsoidal, axes...)
	if err != nil {
		return nil, false
	}
	g3, err := domain.NewGeographicCRS(name, g.GeodeticDatum(), cs)
	if err != nil {
		return nil, false
	}
	return g3, true
}

// matchComponents converts each target component from the first unused source
// component that has an operation to it. Source ordinates are first selected and
// reordered to follow the target order; each step then acts on its own ordinate
// range through a pass-through transform.
func (f *Factory) matchComponents(source domain.CRS, sources []domain.SingleCRS, target domain.CRS, targets []domain.SingleCRS) (*Operation, error) {
	offsets := make([]int, len(sources))
	for i := 1; i < len(sources); i++ {
		offsets[i] = offsets[i-1] + sources[i-1].Dimension()
	}

	steps := make([]*Operation, len(targets))
	ordered := make([]domain.SingleCRS, len(targets))
	done := make([]bool, len(sources))
	var indices []int

	for j, t := range targets {
		var cause error
		for i, s := range sources {
			if done[i] {
				continue
			}
			op, err := f.createOperation(s, t)
			if err != nil {
				if !errors.Is(err, domain.ErrOperationNotFound) {
					return nil, err
				}
				if cause == nil || i == j {
					cause = err
				}
				continue
			}
			steps[j], ordered[j], done[i] = op, s, true
			for k := 0; k < s.Dimension(); k++ {
				indices = append(indices, offsets[i]+k)
			}
			break
		}
		if steps[j] == nil {
			return nil, notFound(source, target, domain.StageDecompose, "no source component converts to "+t.Name(), cause)
		}
	}

	dims, srcDim := len(indices), source.Dimension()
	selection := matrix.New(dims+1, srcDim+1)
	for j, idx := range indices {
		selection.Set(j, idx, 1)
	}
	selection.Set(dims, srcDim, 1)

	var chain []*Operation
	if !selection.IsIdentity() {
		lin, err := linear(source, target, selection)
		if err != nil {
			return nil, err
		}
		chain = append(chain, newOperation(NameAxisChanges, source, target, lin))
	}

	lower, trailing := 0, dims
	for j, step := range steps {
		trailing -= ordered[j].Dimension()
		mt, err := transform.NewPassThrough(lower, step.transform, trailing)
		if err != nil {
			return nil, notFound(source, target, domain.StageConcatenate, "cannot wrap component step", err)
		}
		chain = append(chain, newOperation(step.name, ordered[j], targets[j], mt, step.accuracy...))
		lower += step.transform.TargetDimensions()
	}

	return concatenate(source, target, chain...)
}
