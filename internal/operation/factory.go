package operation

import (
	"fmt"
	"log/slog"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
	"github.com/jobrunner/refsys/internal/transform"
)

// Authority resolves authority codes such as "EPSG:4326" to CRS definitions.
type Authority interface {
	CRS(code string) (domain.CRS, error)
}

// CacheObserver is notified of every operation cache lookup.
type CacheObserver interface {
	RecordCacheLookup(hit bool)
}

// Factory resolves coordinate operations under one set of hints. It is safe for
// concurrent use; resolved operations are cached for the lifetime of the factory.
type Factory struct {
	hints     Hints
	authority Authority
	observer  CacheObserver
	logger    *slog.Logger
	cache     cmap.ConcurrentMap[string, *Operation]
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. Factories log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithAuthority sets the authority used by CRS and CreateOperationFromCodes.
func WithAuthority(authority Authority) Option {
	return func(f *Factory) {
		f.authority = authority
	}
}

// WithCacheObserver reports cache hits and misses to o.
func WithCacheObserver(o CacheObserver) Option {
	return func(f *Factory) {
		f.observer = o
	}
}

// NewFactory creates a factory. Prefer Finder.Factory, which returns one shared
// factory per hint set.
func NewFactory(hints Hints, opts ...Option) *Factory {
	f := &Factory{
		hints:  hints.normalized(),
		logger: slog.New(slog.DiscardHandler),
		cache:  cmap.New[*Operation](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Hints returns the factory configuration.
func (f *Factory) Hints() Hints {
	return f.hints
}

// CachedOperations returns the number of cached operations.
func (f *Factory) CachedOperations() int {
	return f.cache.Count()
}

// CRS looks up code in the authority and applies the axis hints.
func (f *Factory) CRS(code string) (domain.CRS, error) {
	if f.authority == nil {
		return nil, fmt.Errorf("%s: no authority configured: %w", code, domain.ErrCRSNotFound)
	}
	c, err := f.authority.CRS(code)
	if err != nil {
		return nil, err
	}
	return f.hints.Apply(c)
}

// CreateOperationFromCodes resolves the operation between two authority codes.
func (f *Factory) CreateOperationFromCodes(source, target string) (*Operation, error) {
	src, err := f.CRS(source)
	if err != nil {
		return nil, err
	}
	tgt, err := f.CRS(target)
	if err != nil {
		return nil, err
	}
	return f.CreateOperation(src, tgt)
}

// CreateOperation returns the operation converting coordinates from source to
// target. Failures wrap domain.ErrOperationNotFound and are not cached.
func (f *Factory) CreateOperation(source, target domain.CRS) (*Operation, error) {
	if source == nil || target == nil {
		return nil, &domain.ValidationError{Field: "crs", Value: nil, Constraint: "non-nil", Message: "source and target CRS are required"}
	}

	key := source.Key() + " -> " + target.Key()
	if op, ok := f.cache.Get(key); ok {
		f.observe(true)
		f.logger.Debug("operation cache hit", "source", source.Name(), "target", target.Name())
		return op, nil
	}
	f.observe(false)

	op, err := f.createOperation(source, target)
	if err != nil {
		f.logger.Debug("operation not found", "source", source.Name(), "target", target.Name(), "error", err)
		return nil, err
	}
	if !f.cache.SetIfAbsent(key, op) {
		if cached, ok := f.cache.Get(key); ok {
			op = cached
		}
	}

	f.logger.Debug("operation resolved",
		"source", source.Name(),
		"target", target.Name(),
		"operation", op.Name(),
		"transform", op.MathTransform().String(),
		"accuracy", op.Accuracy(),
	)
	return op, nil
}

func (f *Factory) observe(hit bool) {
	if f.observer != nil {
		f.observer.RecordCacheLookup(hit)
	}
}

func notFound(source, target domain.CRS, stage domain.Stage, reason string, err error) error {
	return &domain.OperationNotFoundError{
		Source: source.Name(),
		Target: target.Name(),
		Stage:  stage,
		Reason: reason,
		Err:    err,
	}
}

func identityOperation(source, target domain.CRS) *Operation {
	return newOperation(NameIdentity, source, target, transform.NewIdentity(source.Dimension()))
}

// createOperation is the uncached resolution entry point, also used for sub-steps.
func (f *Factory) createOperation(source, target domain.CRS) (*Operation, error) {
	if domain.Equal(source, target) {
		return identityOperation(source, target), nil
	}
	if domain.IsGeneric(source) || domain.IsGeneric(target) {
		if source.Dimension() != target.Dimension() {
			return nil, notFound(source, target, domain.StageStart, "generic CRS of a different dimension", nil)
		}
		return identityOperation(source, target), nil
	}

	switch s := source.(type) {
	case *domain.CompoundCRS:
		switch t := target.(type) {
		case *domain.CompoundCRS:
			return f.compoundToCompound(s, t)
		case domain.SingleCRS:
			return f.compoundToSingle(s, t)
		}
	case domain.SingleCRS:
		switch t := target.(type) {
		case *domain.CompoundCRS:
			return f.singleToCompound(s, t)
		case domain.SingleCRS:
			return f.singleToSingle(s, t)
		}
	}
	return nil, notFound(source, target, domain.StageStart, "unsupported CRS type", nil)
}

func (f *Factory) singleToSingle(source, target domain.SingleCRS) (*Operation, error) {
	switch s := source.(type) {
	case *domain.GeographicCRS:
		switch t := target.(type) {
		case *domain.GeographicCRS:
			return f.geographicToGeographic(s, t)
		case *domain.ProjectedCRS:
			return f.toProjected(s, t)
		case *domain.GeocentricCRS:
			return f.geographicToGeocentric(s, t)
		case *domain.VerticalCRS:
			return f.geographicToVertical(s, t)
		}
	case *domain.ProjectedCRS:
		switch t := target.(type) {
		case *domain.ProjectedCRS:
			return f.projectedToProjected(s, t)
		case *domain.GeographicCRS, *domain.GeocentricCRS:
			return f.fromProjected(s, t)
		}
	case *domain.GeocentricCRS:
		switch t := target.(type) {
		case *domain.GeocentricCRS:
			return f.geocentricToGeocentric(s, t)
		case *domain.GeographicCRS:
			return f.geocentricToGeographic(s, t)
		case *domain.ProjectedCRS:
			return f.toProjected(s, t)
		}
	case *domain.VerticalCRS:
		if t, ok := target.(*domain.VerticalCRS); ok {
			return f.verticalToVertical(s, t)
		}
	case *domain.TemporalCRS:
		if t, ok := target.(*domain.TemporalCRS); ok {
			return f.temporalToTemporal(s, t)
		}
	case *domain.EngineeringCRS:
		if t, ok := target.(*domain.EngineeringCRS); ok {
			return f.engineeringToEngineering(s, t)
		}
	}
	return nil, notFound(source, target, domain.StageStart,
		fmt.Sprintf("no operation from a %s to a %s CRS", source.Kind(), target.Kind()), nil)
}

// build concatenates transforms into an operation from source to target.
func build(name string, source, target domain.CRS, accuracy domain.Accuracy, steps ...transform.MathTransform) (*Operation, error) {
	mt, err := transform.Concatenate(steps...)
	if err != nil {
		return nil, notFound(source, target, domain.StageConcatenate, "steps do not chain", err)
	}
	return newOperation(name, source, target, mt, accuracy), nil
}

func linear(source, target domain.CRS, m *matrix.Matrix) (transform.MathTransform, error) {
	lin, err := transform.NewLinear(m)
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "invalid axis matrix", err)
	}
	return lin, nil
}

// axisChanges converts between two coordinate systems of the same datum.
func axisChanges(source, target domain.SingleCRS) (*Operation, error) {
	m, err := SwapAndScaleAxes(source.CoordinateSystem().Axes(), target.CoordinateSystem().Axes())
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot map axes", err)
	}
	lin, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	return newOperation(NameAxisChanges, source, target, lin), nil
}

func (f *Factory) geographicToGeographic(source, target *domain.GeographicCRS) (*Operation, error) {
	sd, td := source.GeodeticDatum(), target.GeodeticDatum()
	if sd.EqualIgnorePrimeMeridian(td) {
		m, err := geographicAxisMatrix(source, target)
		if err != nil {
			return nil, notFound(source, target, domain.StageAxes, "cannot map axes", err)
		}
		lin, err := linear(source, target, m)
		if err != nil {
			return nil, err
		}
		return newOperation(NameAxisChanges, source, target, lin), nil
	}

	shift, err := f.bridge(source, target, sd, td)
	if err != nil {
		return nil, err
	}
	core, err := f.geodeticShift(shift, sd.Ellipsoid(), td.Ellipsoid(), source.Dimension(), target.Dimension())
	if err != nil {
		return nil, notFound(source, target, domain.StageDatum, "cannot build datum shift", err)
	}

	norm, denorm, err := geographicBoundaries(source, target)
	if err != nil {
		return nil, err
	}
	return build(shift.name(), source, target, shift.accuracy, norm, core, denorm)
}

// geographicBoundaries returns the linear steps into the standard form of source and
// out of the standard form of target.
func geographicBoundaries(source, target *domain.GeographicCRS) (transform.MathTransform, transform.MathTransform, error) {
	m, err := geographicToStandard(source)
	if err != nil {
		return nil, nil, notFound(source, target, domain.StageAxes, "cannot normalize source axes", err)
	}
	norm, err := linear(source, target, m)
	if err != nil {
		return nil, nil, err
	}
	m, err = standardToGeographic(target)
	if err != nil {
		return nil, nil, notFound(source, target, domain.StageAxes, "cannot normalize target axes", err)
	}
	denorm, err := linear(source, target, m)
	if err != nil {
		return nil, nil, err
	}
	return norm, denorm, nil
}

// projection returns the conversion from the base CRS of p to p. Projection
// parameters are relative to the prime meridian of the base CRS.
func projection(p *domain.ProjectedCRS) (*Operation, error) {
	base := p.Base()
	m, err := SwapAndScaleAxes(base.CoordinateSystem().Axes(), domain.StandardEllipsoidal2D.Axes())
	if err != nil {
		return nil, notFound(base, p, domain.StageAxes, "cannot normalize base axes", err)
	}
	norm, err := linear(base, p, m)
	if err != nil {
		return nil, err
	}

	conv := p.Conversion()
	proj, err := transform.NewProjection(conv.Method, base.GeodeticDatum().Ellipsoid(), conv.Parameters)
	if err != nil {
		return nil, notFound(base, p, domain.StageConcatenate, "cannot build map projection", err)
	}

	m, err = SwapAndScaleAxes(domain.StandardProjected.Axes(), p.CoordinateSystem().Axes())
	if err != nil {
		return nil, notFound(base, p, domain.StageAxes, "cannot map projected axes", err)
	}
	denorm, err := linear(base, p, m)
	if err != nil {
		return nil, err
	}

	name := conv.Name
	if name == "" {
		name = NameMapProjection
	}
	return build(name, base, p, "", norm, proj, denorm)
}

func inverseProjection(p *domain.ProjectedCRS) (*Operation, error) {
	op, err := projection(p)
	if err != nil {
		return nil, err
	}
	inv, err := op.Inverse()
	if err != nil {
		return nil, notFound(p, p.Base(), domain.StageConcatenate, "map projection is not invertible", err)
	}
	return inv, nil
}

// toProjected goes through the base CRS of target.
func (f *Factory) toProjected(source domain.SingleCRS, target *domain.ProjectedCRS) (*Operation, error) {
	step1, err := f.createOperation(source, target.Base())
	if err != nil {
		return nil, err
	}
	step2, err := projection(target)
	if err != nil {
		return nil, err
	}
	return concatenate(source, target, step1, step2)
}

// fromProjected goes through the base CRS of source.
func (f *Factory) fromProjected(source *domain.ProjectedCRS, target domain.SingleCRS) (*Operation, error) {
	step1, err := inverseProjection(source)
	if err != nil {
		return nil, err
	}
	step2, err := f.createOperation(source.Base(), target)
	if err != nil {
		return nil, err
	}
	return concatenate(source, target, step1, step2)
}

func (f *Factory) projectedToProjected(source, target *domain.ProjectedCRS) (*Operation, error) {
	sc, tc := source.Conversion(), target.Conversion()
	if domain.Equal(source.Base(), target.Base()) && sc.Method == tc.Method && sc.Parameters == tc.Parameters {
		return axisChanges(source, target)
	}

	step1, err := inverseProjection(source)
	if err != nil {
		return nil, err
	}
	step2, err := f.createOperation(source.Base(), target.Base())
	if err != nil {
		return nil, err
	}
	step3, err := projection(target)
	if err != nil {
		return nil, err
	}
	return concatenate(source, target, step1, step2, step3)
}

// geocentricShift bridges two geodetic datums in geocentric coordinates. Prime
// meridians do not matter here: geocentric X always points to Greenwich.
func (f *Factory) geocentricShift(source, target domain.SingleCRS, sd, td *domain.GeodeticDatum) (datumShift, error) {
	if sd.EqualIgnorePrimeMeridian(td) {
		return datumShift{matrix: matrix.Identity(4)}, nil
	}
	return f.bridge(source, target, sd, td)
}

func geocentricBoundary(c *domain.GeocentricCRS, toStandard bool) (*matrix.Matrix, error) {
	if toStandard {
		return SwapAndScaleAxes(c.CoordinateSystem().Axes(), domain.StandardGeocentric.Axes())
	}
	return SwapAndScaleAxes(domain.StandardGeocentric.Axes(), c.CoordinateSystem().Axes())
}

func shiftName(shift datumShift, fallback string) string {
	if shift.accuracy == "" {
		return fallback
	}
	return shift.name()
}

func (f *Factory) geocentricToGeocentric(source, target *domain.GeocentricCRS) (*Operation, error) {
	shift, err := f.geocentricShift(source, target, source.GeodeticDatum(), target.GeodeticDatum())
	if err != nil {
		return nil, err
	}
	norm, err := geocentricBoundary(source, true)
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize source axes", err)
	}
	denorm, err := geocentricBoundary(target, false)
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize target axes", err)
	}

	m, err := shift.matrix.Multiply(norm)
	if err == nil {
		m, err = denorm.Multiply(m)
	}
	if err != nil {
		return nil, notFound(source, target, domain.StageConcatenate, "cannot combine geocentric steps", err)
	}
	lin, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	return newOperation(shiftName(shift, NameAxisChanges), source, target, lin, shift.accuracy), nil
}

func (f *Factory) geographicToGeocentric(source *domain.GeographicCRS, target *domain.GeocentricCRS) (*Operation, error) {
	sd := source.GeodeticDatum()
	shift, err := f.geocentricShift(source, target, sd, target.GeodeticDatum())
	if err != nil {
		return nil, err
	}

	m, err := geographicToStandard(source)
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize source axes", err)
	}
	norm, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	conversion, err := transform.NewGeographicToGeocentric(sd.Ellipsoid(), source.Dimension())
	if err != nil {
		return nil, notFound(source, target, domain.StageConcatenate, "cannot build geocentric conversion", err)
	}
	m, err = geocentricBoundary(target, false)
	if err == nil {
		m, err = m.Multiply(shift.matrix)
	}
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize target axes", err)
	}
	denorm, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	return build(shiftName(shift, NameGeocentricConversion), source, target, shift.accuracy, norm, conversion, denorm)
}

func (f *Factory) geocentricToGeographic(source *domain.GeocentricCRS, target *domain.GeographicCRS) (*Operation, error) {
	td := target.GeodeticDatum()
	shift, err := f.geocentricShift(source, target, source.GeodeticDatum(), td)
	if err != nil {
		return nil, err
	}

	m, err := geocentricBoundary(source, true)
	if err == nil {
		m, err = shift.matrix.Multiply(m)
	}
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize source axes", err)
	}
	norm, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	conversion, err := transform.NewGeocentricToGeographic(td.Ellipsoid(), target.Dimension())
	if err != nil {
		return nil, notFound(source, target, domain.StageConcatenate, "cannot build geocentric conversion", err)
	}
	m, err = standardToGeographic(target)
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot normalize target axes", err)
	}
	denorm, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	return build(shiftName(shift, NameGeocentricConversion), source, target, shift.accuracy, norm, conversion, denorm)
}

// geographicToVertical selects the ellipsoidal height of a 3D geographic CRS.
func (f *Factory) geographicToVertical(source *domain.GeographicCRS, target *domain.VerticalCRS) (*Operation, error) {
	if target.VerticalDatum().Type() != domain.VerticalEllipsoidal {
		return nil, notFound(source, target, domain.StageDatum,
			fmt.Sprintf("%s height is not an ellipsoidal height", target.VerticalDatum().Type()), nil)
	}
	return axisChanges(source, target)
}

func (f *Factory) verticalToVertical(source, target *domain.VerticalCRS) (*Operation, error) {
	sd, td := source.VerticalDatum(), target.VerticalDatum()
	if !sd.Equal(td) {
		return nil, notFound(source, target, domain.StageDatum,
			fmt.Sprintf("incompatible vertical datums %s (%s) and %s (%s)", sd.Name(), sd.Type(), td.Name(), td.Type()), nil)
	}
	return axisChanges(source, target)
}

// temporalToTemporal scales units and shifts the epoch between datum origins.
func (f *Factory) temporalToTemporal(source, target *domain.TemporalCRS) (*Operation, error) {
	m, err := SwapAndScaleAxes(source.CoordinateSystem().Axes(), target.CoordinateSystem().Axes())
	if err != nil {
		return nil, notFound(source, target, domain.StageAxes, "cannot map axes", err)
	}

	so, to := source.TemporalDatum().Origin(), target.TemporalDatum().Origin()
	epoch := float64(so.Unix()-to.Unix()) + float64(so.Nanosecond()-to.Nanosecond())/1e9
	if epoch != 0 {
		axis := target.CoordinateSystem().Axis(0)
		shift := epoch / axis.Unit.ToBase
		if axis.Direction.IsReversed() {
			shift = -shift
		}
		m.Set(0, 1, m.At(0, 1)+shift)
	}

	lin, err := linear(source, target, m)
	if err != nil {
		return nil, err
	}
	return newOperation(NameAxisChanges, source, target, lin), nil
}

func (f *Factory) engineeringToEngineering(source, target *domain.EngineeringCRS) (*Operation, error) {
	if source.Datum().Key() != target.Datum().Key() {
		return nil, notFound(source, target, domain.StageDatum, "different engineering datums", nil)
	}
	return axisChanges(source, target)
}
