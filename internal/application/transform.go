package application

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/operation"
	"github.com/jobrunner/refsys/internal/ports/output"
)

// transformBatch is the number of points transformed between context checks.
const transformBatch = 4096

// TransformService resolves coordinate operations between registered CRSs and
// applies them.
type TransformService struct {
	finder  *operation.Finder
	hints   operation.Hints
	metrics output.MetricsCollector
	logger    *slog.Logger
	densify   int
	maxPoints int
}

// TransformServiceConfig holds configuration for the transform service.
type TransformServiceConfig struct {
	// Hints apply to every request; a request may additionally ask for a
	// lenient datum shift.
	Hints operation.Hints
	// Densify is the default number of points inserted per envelope edge.
	Densify int
	// MaxPoints limits the points of one transform request or envelope
	// boundary. Zero means no limit.
	MaxPoints int
}

// NewTransformService creates a new transform service. The finder's factories must
// use an authority that knows the codes passed to the service.
func NewTransformService(
	finder *operation.Finder,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg TransformServiceConfig,
) *TransformService {
	if cfg.Densify == 0 {
		cfg.Densify = 20
	}

	return &TransformService{
		finder:    finder,
		hints:     cfg.Hints,
		metrics:   metrics,
		logger:    logger,
		densify:   cfg.Densify,
		maxPoints: cfg.MaxPoints,
	}
}

// Factory returns the shared factory for a request.
func (s *TransformService) Factory(lenient bool) *operation.Factory {
	hints := s.hints
	hints.LenientDatumShift = hints.LenientDatumShift || lenient
	return s.finder.Factory(hints)
}

// Operation resolves the operation between two codes.
func (s *TransformService) Operation(ctx context.Context, source, target string, lenient bool) (*operation.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	op, err := s.Factory(lenient).CreateOperationFromCodes(source, target)
	s.metrics.ObserveResolveDuration(time.Since(start))

	switch {
	case err == nil:
		s.metrics.IncOperationsResolved("resolved")
	case errors.Is(err, domain.ErrOperationNotFound):
		s.metrics.IncOperationsResolved("not_found")
		s.logger.Debug("no operation", "source", source, "target", target, "lenient", lenient, "error", err)
		return nil, err
	default:
		s.metrics.IncOperationsResolved("error")
		s.logger.Warn("operation lookup failed", "source", source, "target", target, "error", err)
		return nil, err
	}

	if op.HasAccuracy(domain.DatumShiftOmitted) {
		s.logger.Warn("datum shift omitted", "source", source, "target", target)
	}
	return op, nil
}

// Resolve finds the operation between two CRSs without transforming anything.
func (s *TransformService) Resolve(ctx context.Context, source, target string, lenient bool) (*domain.OperationInfo, error) {
	op, err := s.Operation(ctx, source, target, lenient)
	if err != nil {
		return nil, err
	}
	info := Describe(op, source, target)
	return &info, nil
}

// Transform converts points from the source to the target CRS.
func (s *TransformService) Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.maxPoints > 0 && len(req.Points) > s.maxPoints {
		return nil, &domain.PointLimitError{Field: "points", Requested: len(req.Points), Limit: s.maxPoints}
	}

	op, err := s.Operation(ctx, req.Source, req.Target, req.Lenient)
	if err != nil {
		return nil, err
	}

	mt := op.MathTransform()
	srcDim, tgtDim := mt.SourceDimensions(), mt.TargetDimensions()
	if req.Dimension() != srcDim {
		return nil, &domain.MismatchedDimensionError{Context: "transform request", Expected: srcDim, Actual: req.Dimension()}
	}

	n := len(req.Points)
	src := make([]float64, 0, n*srcDim)
	for _, p := range req.Points {
		src = append(src, p...)
	}
	dst := make([]float64, n*tgtDim)

	for i := 0; i < n; i += transformBatch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count := min(transformBatch, n-i)
		if err := mt.Transform(src[i*srcDim:(i+count)*srcDim], dst[i*tgtDim:(i+count)*tgtDim], count); err != nil {
			return nil, err
		}
	}
	s.metrics.AddPointsTransformed(n)

	points := make([][]float64, n)
	for i := range points {
		points[i] = dst[i*tgtDim : (i+1)*tgtDim : (i+1)*tgtDim]
	}

	return &domain.TransformResult{
		Operation:      Describe(op, req.Source, req.Target),
		Points:         points,
		ProcessingTime: time.Since(start),
	}, nil
}

// ReprojectEnvelope converts a bounding box by transforming its densified boundary
// and taking the extremes. Boundary points that cannot be transformed are skipped.
func (s *TransformService) ReprojectEnvelope(ctx context.Context, req domain.EnvelopeRequest) (*domain.EnvelopeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Densify == 0 {
		req.Densify = s.densify
	}
	if err := req.CheckPointLimit(s.maxPoints); err != nil {
		return nil, err
	}

	op, err := s.Operation(ctx, req.Source, req.Target, req.Lenient)
	if err != nil {
		return nil, err
	}

	mt := op.MathTransform()
	if mt.SourceDimensions() != 2 {
		return nil, &domain.MismatchedDimensionError{Context: "envelope source", Expected: 2, Actual: mt.SourceDimensions()}
	}
	if mt.TargetDimensions() < 2 {
		return nil, &domain.MismatchedDimensionError{Context: "envelope target", Expected: 2, Actual: mt.TargetDimensions()}
	}

	densify := req.Densify
	var (
		bound orb.Bound
		found bool
		out   = make([]float64, mt.TargetDimensions())
	)
	for _, p := range boundary(req.Bound, densify) {
		if err := mt.Transform(p[:], out, 1); err != nil || math.IsNaN(out[0]) || math.IsNaN(out[1]) {
			continue
		}
		q := orb.Point{out[0], out[1]}
		if !found {
			bound = q.Bound()
			found = true
			continue
		}
		bound = bound.Extend(q)
	}
	if !found {
		return nil, domain.ErrInvalidCoordinate
	}

	s.metrics.AddPointsTransformed(domain.BoundaryPoints(densify))

	return &domain.EnvelopeResult{
		Operation: Describe(op, req.Source, req.Target),
		Bound:     bound,
	}, nil
}

// boundary returns the corners of b plus densify evenly spaced points on each edge,
// walking the ring once.
func boundary(b orb.Bound, densify int) []orb.Point {
	corners := []orb.Point{
		b.Min,
		{b.Max[0], b.Min[1]},
		b.Max,
		{b.Min[0], b.Max[1]},
	}

	points := make([]orb.Point, 0, domain.BoundaryPoints(densify))
	for i, from := range corners {
		to := corners[(i+1)%4]
		for j := 0; j <= densify; j++ {
			t := float64(j) / float64(densify+1)
			points = append(points, orb.Point{
				from[0] + t*(to[0]-from[0]),
				from[1] + t*(to[1]-from[1]),
			})
		}
	}
	return points
}

// Describe summarizes an operation. source and target are the codes it was
// requested with.
func Describe(op *operation.Operation, source, target string) domain.OperationInfo {
	info := domain.OperationInfo{
		Name:            op.Name(),
		Source:          normalizeCode(source),
		Target:          normalizeCode(target),
		SourceAxes:      axisLabels(op.Source()),
		TargetAxes:      axisLabels(op.Target()),
		PositionalError: op.PositionalError(),
		Identity:        op.MathTransform().IsIdentity(),
		Transform:       op.MathTransform().String(),
	}
	for _, a := range op.Accuracy() {
		info.Accuracy = append(info.Accuracy, a.String())
	}
	return info
}

func normalizeCode(code string) string {
	if normalized, err := domain.ParseCode(code); err == nil {
		return normalized
	}
	return code
}

func axisLabels(c domain.CRS) []string {
	axes := c.CoordinateSystem().Axes()
	labels := make([]string, len(axes))
	for i, a := range axes {
		labels[i] = a.String()
	}
	return labels
}
