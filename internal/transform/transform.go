// Package transform implements the ordered ingress/egress mutation
// pipeline: transforms are tagged with a stage
// and an integer priority, run lowest-priority-first with
// registration order breaking ties, and share a mutable Context for
// the lifetime of one client request including its retries.
package transform

import (
	"sort"
	"sync"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// Stage distinguishes ingress (request-mutating) from egress
// (response-mutating) transforms.
type Stage int

const (
	Ingress Stage = iota
	Egress
)

// Context is the shared mutable state transforms operate on. Request
// is always present; Response is nil until the provider adapter has
// run once.
type Context struct {
	Request  *ir.Request
	Response *ir.Response
	Attempt  int
}

// Transform mutates a Context when its predicate matches.
type Transform interface {
	Name() string
	Stage() Stage
	Priority() int
	Applies(ctx *Context) bool
	Apply(ctx *Context) error
}

var (
	mu            sync.Mutex
	registered    []Transform
	ingressSorted []Transform
	egressSorted  []Transform
	built         bool
)

// Register adds a transform to the registry. Called from package
// init() functions; safe to call after Run* has already executed
// (the sorted views are rebuilt lazily on next use).
func Register(t Transform) {
	mu.Lock()
	defer mu.Unlock()
	registered = append(registered, t)
	built = false
}

func ensureBuilt() {
	mu.Lock()
	defer mu.Unlock()
	if built {
		return
	}
	ingressSorted = filterSort(registered, Ingress)
	egressSorted = filterSort(registered, Egress)
	built = true
}

func filterSort(all []Transform, stage Stage) []Transform {
	var out []Transform
	for _, t := range all {
		if t.Stage() == stage {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// RunIngress runs every registered ingress transform whose predicate
// matches, in priority-then-registration order.
func RunIngress(ctx *Context) error {
	ensureBuilt()
	for _, t := range ingressSorted {
		if t.Applies(ctx) {
			if err := t.Apply(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunEgress runs every registered egress transform whose predicate
// matches, in priority-then-registration order.
func RunEgress(ctx *Context) error {
	ensureBuilt()
	for _, t := range egressSorted {
		if t.Applies(ctx) {
			if err := t.Apply(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
