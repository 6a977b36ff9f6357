package operation

import (
	"github.com/patrickmn/go-cache"
)

// Finder hands out one Factory per distinct set of hints, so that equal hints always
// resolve to the same instance and share its operation cache.
type Finder struct {
	factories *cache.Cache
	opts      []Option
}

// NewFinder creates a finder. opts are applied to every factory it creates.
func NewFinder(opts ...Option) *Finder {
	return &Finder{
		factories: cache.New(cache.NoExpiration, 0),
		opts:      opts,
	}
}

// Factory returns the factory for hints, creating it on first use.
func (f *Finder) Factory(hints Hints) *Factory {
	key := hints.Key()
	if v, ok := f.factories.Get(key); ok {
		return v.(*Factory)
	}

	factory := NewFactory(hints, f.opts...)
	if err := f.factories.Add(key, factory, cache.NoExpiration); err != nil {
		// Another caller won the race.
		if v, ok := f.factories.Get(key); ok {
			return v.(*Factory)
		}
	}
	return factory
}

// Strict returns the factory with default hints.
func (f *Finder) Strict() *Factory {
	return f.Factory(Hints{})
}

// Lenient returns the factory that omits unknown datum shifts.
func (f *Finder) Lenient() *Factory {
	return f.Factory(Hints{LenientDatumShift: true})
}

// Len returns the number of factories created so far.
func (f *Finder) Len() int {
	return f.factories.ItemCount()
}

// CachedOperations returns the number of operations cached by all factories.
func (f *Finder) CachedOperations() int {
	total := 0
	for _, item := range f.factories.Items() {
		total += item.Object.(*Factory).CachedOperations()
	}
	return total
}
