package story

import "sync"

// Loader defers loading content until first use. Concurrent first calls
// share a single Load; every caller sees the same store or error.
type Loader struct {
	load func() (*Store, error)
}

// NewLoader returns a Loader for the content under root.
func NewLoader(root string) *Loader {
	return newLoader(func() (*Store, error) { return Load(root) })
}

func newLoader(fn func() (*Store, error)) *Loader {
	return &Loader{load: sync.OnceValues(fn)}
}

// Store returns the loaded store, loading it on the first call.
func (l *Loader) Store() (*Store, error) {
	return l.load()
}
