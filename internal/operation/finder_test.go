package operation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinderSharesFactoriesPerHints(t *testing.T) {
	finder := NewFinder()

	strict := finder.Strict()
	assert.Same(t, strict, finder.Factory(Hints{}))
	assert.Same(t, strict, finder.Factory(Hints{DatumShiftMethod: MethodMolodenski}))

	lenient := finder.Lenient()
	assert.NotSame(t, strict, lenient)
	assert.True(t, lenient.Hints().LenientDatumShift)

	geocentric := finder.Factory(Hints{DatumShiftMethod: MethodGeocentric})
	assert.NotSame(t, strict, geocentric)

	if got := finder.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestFinderAppliesOptions(t *testing.T) {
	observer := &countingObserver{}
	finder := NewFinder(WithCacheObserver(observer))

	f := finder.Strict()
	nad27 := mustGeographic(t, "NAD27", nad27Datum(t), latLon2D)
	_, err := f.CreateOperation(nad27, wgs84(t, latLon2D))
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if got := finder.CachedOperations(); got != 1 {
		t.Errorf("CachedOperations() = %d, want 1", got)
	}
	if observer.misses != 1 {
		t.Errorf("misses = %d, want 1", observer.misses)
	}
}

func TestFinderConcurrent(t *testing.T) {
	finder := NewFinder()

	const workers = 32
	got := make([]*Factory, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = finder.Factory(Hints{LenientDatumShift: true})
		}(i)
	}
	wg.Wait()

	for i := range got {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, finder.Len())
}
