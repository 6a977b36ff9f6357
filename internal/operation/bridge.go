package operation

import (
	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
	"github.com/jobrunner/refsys/internal/transform"
)

// bursaWolfMatrix returns the geocentric 4x4 matrix shifting source datum coordinates
// to the target datum. Parameters are searched in this order: source to target,
// target to source (inverted), then source and target to a common third datum.
func bursaWolfMatrix(source, target *domain.GeodeticDatum) (*matrix.Matrix, bool, error) {
	if bw, ok := source.BursaWolfTo(target.Name()); ok {
		return matrix.FromArray4(bw.Affine()), true, nil
	}
	if bw, ok := target.BursaWolfTo(source.Name()); ok {
		m, err := matrix.FromArray4(bw.Affine()).Inverse()
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	for _, sbw := range source.BursaWolf() {
		tbw, ok := target.BursaWolfTo(sbw.Target)
		if !ok {
			continue
		}
		toCommon := matrix.FromArray4(sbw.Affine())
		fromCommon, err := matrix.FromArray4(tbw.Affine()).Inverse()
		if err != nil {
			return nil, false, err
		}
		m, err := fromCommon.Multiply(toCommon)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	return nil, false, nil
}

// isTranslation reports whether a 4x4 geocentric matrix only translates.
func isTranslation(m *matrix.Matrix) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if m.At(i, j) != want {
				return false
			}
		}
	}
	return m.IsAffine()
}

// datumShift is the outcome of bridging two geodetic datums.
type datumShift struct {
	matrix   *matrix.Matrix  // geocentric 4x4 shift
	accuracy domain.Accuracy // DatumShiftApplied or DatumShiftOmitted
}

func (s datumShift) name() string {
	if s.accuracy == domain.DatumShiftOmitted {
		return NameEllipsoidShift
	}
	return NameDatumShift
}

// bridge finds the geocentric shift between the datums of source and target. Without
// parameters it fails, or under the lenient policy returns an identity shift tagged
// DatumShiftOmitted.
func (f *Factory) bridge(source, target domain.SingleCRS, sd, td *domain.GeodeticDatum) (datumShift, error) {
	m, found, err := bursaWolfMatrix(sd, td)
	if err != nil {
		return datumShift{}, notFound(source, target, domain.StageDatum, "cannot invert Bursa-Wolf parameters", err)
	}
	if found {
		return datumShift{matrix: m, accuracy: domain.DatumShiftApplied}, nil
	}
	if !f.hints.LenientDatumShift {
		return datumShift{}, notFound(source, target, domain.StageDatum, "no Bursa-Wolf parameters available", nil)
	}

	f.logger.Warn("datum shift omitted",
		"source", source.Name(),
		"target", target.Name(),
		"source_datum", sd.Name(),
		"target_datum", td.Name(),
	)
	return datumShift{matrix: matrix.Identity(4), accuracy: domain.DatumShiftOmitted}, nil
}

// geodeticShift builds the transform between standard geographic coordinates on the
// source and target ellipsoids. Molodenski is used for translations between equal
// dimensions unless the factory is configured for the geocentric route.
func (f *Factory) geodeticShift(shift datumShift, source, target domain.Ellipsoid, srcDim, tgtDim int) (transform.MathTransform, error) {
	if f.hints.DatumShiftMethod != MethodGeocentric && isTranslation(shift.matrix) && srcDim == tgtDim {
		if shift.matrix.IsIdentity() && source.Equal(target) {
			return transform.NewIdentity(srcDim), nil
		}
		molodenski, err := transform.NewMolodenski(source, target,
			shift.matrix.At(0, 3), shift.matrix.At(1, 3), shift.matrix.At(2, 3),
			srcDim, f.hints.DatumShiftMethod == MethodAbridgedMolodenski)
		if err != nil {
			return nil, err
		}
		return molodenski, nil
	}

	toGeocentric, err := transform.NewGeographicToGeocentric(source, srcDim)
	if err != nil {
		return nil, err
	}
	lin, err := transform.NewLinear(shift.matrix)
	if err != nil {
		return nil, err
	}
	toGeographic, err := transform.NewGeocentricToGeographic(target, tgtDim)
	if err != nil {
		return nil, err
	}
	return transform.Concatenate(toGeocentric, lin, toGeographic)
}
