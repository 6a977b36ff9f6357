package application

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/operation"
	"github.com/jobrunner/refsys/internal/registry"
)

func TestTransformServiceResolve(t *testing.T) {
	s := newTestServices(t)

	info, err := s.transform.Resolve(context.Background(), "4326", "epsg:32632", false)
	require.NoError(t, err)

	assert.Equal(t, "EPSG:4326", info.Source)
	assert.Equal(t, "EPSG:32632", info.Target)
	assert.Len(t, info.SourceAxes, 2)
	assert.Contains(t, info.SourceAxes[0], "north")
	assert.Contains(t, info.TargetAxes[0], "east")
	assert.Empty(t, info.Accuracy)
	assert.Zero(t, info.PositionalError)
	assert.False(t, info.Identity)
	assert.NotEmpty(t, info.Transform)

	assert.Equal(t, 1, s.metrics.outcomes["resolved"])
	assert.Equal(t, 1, s.metrics.durations)
}

func TestTransformServiceResolveIdentity(t *testing.T) {
	s := newTestServices(t)

	info, err := s.transform.Resolve(context.Background(), domain.CodeWGS84, domain.CodeWGS84, false)
	require.NoError(t, err)
	assert.True(t, info.Identity)
}

func TestTransformServiceTransform(t *testing.T) {
	s := newTestServices(t)

	result, err := s.transform.Transform(context.Background(), domain.TransformRequest{
		Source: domain.CodeWGS84,
		Target: domain.CodeWGS84UTM32N,
		Points: [][]float64{{48, 9}, {48, 9}},
	})
	require.NoError(t, err)

	require.Len(t, result.Points, 2)
	for _, p := range result.Points {
		assert.InDeltaSlice(t, []float64{500000, 5316300.2245}, p, 1e-3)
	}
	assert.Equal(t, 2, s.metrics.points)
}

func TestTransformServiceDatumShift(t *testing.T) {
	s := newTestServices(t)

	result, err := s.transform.Transform(context.Background(), domain.TransformRequest{
		Source: "EPSG:4267",
		Target: domain.CodeWGS84,
		Points: [][]float64{{0, 0}},
	})
	require.NoError(t, err)

	// NAD27 shifts the origin by a few metres towards north-east.
	assert.InDelta(t, 0.0016549788, result.Points[0][0], 1e-6)
	assert.InDelta(t, 0.0012755944, result.Points[0][1], 1e-6)
	assert.Equal(t, []string{domain.DatumShiftApplied.String()}, result.Operation.Accuracy)
	assert.Equal(t, 25.0, result.Operation.PositionalError)
}

func TestTransformServiceLenient(t *testing.T) {
	src := &mockSource{name: "mock", defs: []registry.Definition{tokyo}}
	s := newTestServices(t, src)
	ctx := context.Background()
	_, err := s.catalog.Load(ctx)
	require.NoError(t, err)

	req := domain.TransformRequest{
		Source: "EPSG:4301",
		Target: domain.CodeWGS84,
		Points: [][]float64{{35, 139}},
	}

	_, err = s.transform.Transform(ctx, req)
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
	assert.Equal(t, 1, s.metrics.outcomes["not_found"])

	req.Lenient = true
	result, err := s.transform.Transform(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.DatumShiftOmitted.String()}, result.Operation.Accuracy)
	assert.Equal(t, 1000.0, result.Operation.PositionalError)

	// Only the ellipsoid changes, so the point moves by well under a kilometre.
	assert.InDelta(t, 35, result.Points[0][0], 0.01)
	assert.InDelta(t, 139, result.Points[0][1], 0.01)
}

func TestTransformServiceLenientHint(t *testing.T) {
	src := &mockSource{name: "mock", defs: []registry.Definition{tokyo}}
	metrics := newMockMetrics()
	catalog := NewCatalog(builtin(t), metrics, testLogger(), src)
	_, err := catalog.Load(context.Background())
	require.NoError(t, err)

	finder := operation.NewFinder(operation.WithAuthority(catalog))
	s := NewTransformService(finder, metrics, testLogger(), TransformServiceConfig{
		Hints: operation.Hints{LenientDatumShift: true},
	})

	info, err := s.Resolve(context.Background(), "EPSG:4301", domain.CodeWGS84, false)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.DatumShiftOmitted.String()}, info.Accuracy)
}

func TestTransformServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.TransformRequest
		wantErr error
	}{
		{
			name:    "missing source",
			req:     domain.TransformRequest{Target: domain.CodeWGS84, Points: [][]float64{{0, 0}}},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "no points",
			req:     domain.TransformRequest{Source: domain.CodeWGS84, Target: domain.CodeWGS84},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "unknown source",
			req:     domain.TransformRequest{Source: "EPSG:1", Target: domain.CodeWGS84, Points: [][]float64{{0, 0}}},
			wantErr: domain.ErrCRSNotFound,
		},
		{
			name:    "dimension mismatch",
			req:     domain.TransformRequest{Source: domain.CodeWGS84, Target: domain.CodeWGS84UTM32N, Points: [][]float64{{48, 9, 100}}},
			wantErr: domain.ErrMismatchedDimension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServices(t)
			_, err := s.transform.Transform(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transform() error = %v, want %v", err, tt.wantErr)
			}
			if s.metrics.points != 0 {
				t.Errorf("points transformed = %d, want 0", s.metrics.points)
			}
		})
	}
}

func TestTransformServiceUnknownCodeMetrics(t *testing.T) {
	s := newTestServices(t)

	_, err := s.transform.Resolve(context.Background(), "EPSG:1", domain.CodeWGS84, false)
	require.ErrorIs(t, err, domain.ErrCRSNotFound)
	assert.Equal(t, 1, s.metrics.outcomes["error"])
}

func TestTransformServiceCanceled(t *testing.T) {
	s := newTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.transform.Transform(ctx, domain.TransformRequest{
		Source: domain.CodeWGS84,
		Target: domain.CodeWGS84UTM32N,
		Points: [][]float64{{48, 9}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformServiceCachesOperations(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	for range 3 {
		_, err := s.transform.Resolve(ctx, domain.CodeWGS84, domain.CodeWGS84UTM32N, false)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, s.finder.CachedOperations())
	assert.Equal(t, 2, s.metrics.cacheHits)
}

func TestReprojectEnvelope(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	// Latitude first: 47..55 N, 6..12 E.
	req := domain.EnvelopeRequest{
		Source:  domain.CodeWGS84,
		Target:  domain.CodeWGS84UTM32N,
		Bound:   orb.Bound{Min: orb.Point{47, 6}, Max: orb.Point{55, 12}},
		Densify: 1,
	}
	result, err := s.transform.ReprojectEnvelope(ctx, req)
	require.NoError(t, err)

	project := func(lat, lon float64) []float64 {
		t.Helper()
		r, err := s.transform.Transform(ctx, domain.TransformRequest{
			Source: domain.CodeWGS84,
			Target: domain.CodeWGS84UTM32N,
			Points: [][]float64{{lat, lon}},
		})
		require.NoError(t, err)
		return r.Points[0]
	}

	for _, corner := range [][2]float64{{47, 6}, {47, 12}, {55, 6}, {55, 12}} {
		p := project(corner[0], corner[1])
		assert.True(t, result.Bound.Contains(orb.Point{p[0], p[1]}), "bound should contain corner %v", corner)
	}

	// Parallels bend away from the pole towards the central meridian, so the
	// southern edge reaches its lowest northing at 9 E rather than at a corner.
	mid := project(47, 9)
	corner := project(47, 6)
	assert.InDelta(t, mid[1], result.Bound.Min[1], 1e-6)
	assert.Less(t, result.Bound.Min[1], corner[1])
	assert.Equal(t, domain.CodeWGS84UTM32N, result.Operation.Target)
}

func TestReprojectEnvelopeErrors(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.transform.ReprojectEnvelope(ctx, domain.EnvelopeRequest{
		Source: domain.CodeWGS84Geographic3D,
		Target: domain.CodeWGS84,
		Bound:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}},
	})
	assert.ErrorIs(t, err, domain.ErrMismatchedDimension)

	_, err = s.transform.ReprojectEnvelope(ctx, domain.EnvelopeRequest{
		Source: domain.CodeWGS84,
		Target: domain.CodeWGS84UTM32N,
		Bound:  orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{0, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReprojectEnvelopePointLimit(t *testing.T) {
	s := newTestServices(t)
	limited := NewTransformService(s.finder, s.metrics, testLogger(), TransformServiceConfig{MaxPoints: 100})
	ctx := context.Background()
	bound := orb.Bound{Min: orb.Point{47, 8}, Max: orb.Point{48, 9}}

	tests := []struct {
		name    string
		service *TransformService
		densify int
		wantErr bool
	}{
		{name: "default densify", service: limited, densify: 0},
		{name: "boundary at limit", service: limited, densify: 24},
		{name: "boundary over limit", service: limited, densify: 25, wantErr: true},
		{name: "huge densify", service: limited, densify: 1_000_000_000, wantErr: true},
		{name: "overflowing densify", service: limited, densify: math.MaxInt, wantErr: true},
		{name: "overflowing densify without limit", service: s.transform, densify: math.MaxInt, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.service.ReprojectEnvelope(ctx, domain.EnvelopeRequest{
				Source:  domain.CodeWGS84,
				Target:  domain.CodeWGS84UTM32N,
				Bound:   bound,
				Densify: tt.densify,
			})
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Greater(t, result.Bound.Max[0], result.Bound.Min[0])
				return
			}
			assert.ErrorIs(t, err, domain.ErrTooManyPoints)
			var limitErr *domain.PointLimitError
			assert.True(t, errors.As(err, &limitErr))
		})
	}
}

func TestTransformPointLimit(t *testing.T) {
	s := newTestServices(t)
	limited := NewTransformService(s.finder, s.metrics, testLogger(), TransformServiceConfig{MaxPoints: 2})

	points := [][]float64{{48, 9}, {49, 9}, {50, 9}}
	_, err := limited.Transform(context.Background(), domain.TransformRequest{
		Source: domain.CodeWGS84,
		Target: domain.CodeWGS84UTM32N,
		Points: points,
	})
	assert.ErrorIs(t, err, domain.ErrTooManyPoints)

	result, err := limited.Transform(context.Background(), domain.TransformRequest{
		Source: domain.CodeWGS84,
		Target: domain.CodeWGS84UTM32N,
		Points: points[:2],
	})
	require.NoError(t, err)
	assert.Len(t, result.Points, 2)
}

func TestBoundary(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 2}}

	tests := []struct {
		densify int
		want    int
	}{
		{densify: 0, want: 4},
		{densify: 1, want: 8},
		{densify: 20, want: 84},
	}

	for _, tt := range tests {
		points := boundary(b, tt.densify)
		if len(points) != tt.want {
			t.Errorf("boundary(%d) returned %d points, want %d", tt.densify, len(points), tt.want)
		}
		for _, p := range points {
			if !b.Contains(p) {
				t.Errorf("boundary(%d) point %v outside bound", tt.densify, p)
			}
		}
	}

	points := boundary(b, 1)
	if points[1] != (orb.Point{2, 0}) {
		t.Errorf("boundary(1)[1] = %v, want [2 0]", points[1])
	}
}
