package api

import "sync/atomic"

// Lookups holds the title index and graph the API answers from. Both may be
// replaced while the server is running, which is how `serve --build`
// publishes a freshly built graph.
type Lookups struct {
	current  atomic.Pointer[lookupSet]
	building atomic.Bool
}

type lookupSet struct {
	titles TitleLookup
	graph  GraphLookup
}

// NewLookups returns a holder serving titles and graph. Either may be nil.
func NewLookups(titles TitleLookup, graph GraphLookup) *Lookups {
	l := &Lookups{}
	l.Swap(titles, graph)

	return l
}

// Swap replaces both lookups at once.
func (l *Lookups) Swap(titles TitleLookup, graph GraphLookup) {
	l.current.Store(&lookupSet{titles: titles, graph: graph})
}

// Titles returns the current title index, or nil.
func (l *Lookups) Titles() TitleLookup { return l.current.Load().titles }

// Graph returns the current graph, or nil.
func (l *Lookups) Graph() GraphLookup { return l.current.Load().graph }

// SetBuilding marks whether a build that will replace the lookups is running.
func (l *Lookups) SetBuilding(v bool) { l.building.Store(v) }

// Building reports whether a build is running.
func (l *Lookups) Building() bool { return l.building.Load() }
