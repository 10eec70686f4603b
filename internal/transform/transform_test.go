package transform

import (
	"errors"
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

type stubTransform struct {
	name     string
	stage    Stage
	priority int
	applies  bool
	err      error
	calls    *[]string
}

func (s stubTransform) Name() string     { return s.name }
func (s stubTransform) Stage() Stage     { return s.stage }
func (s stubTransform) Priority() int    { return s.priority }
func (s stubTransform) Applies(*Context) bool { return s.applies }
func (s stubTransform) Apply(ctx *Context) error {
	*s.calls = append(*s.calls, s.name)
	return s.err
}

func resetRegistry() {
	mu.Lock()
	registered = nil
	ingressSorted = nil
	egressSorted = nil
	built = false
	mu.Unlock()
}

func TestRunIngress_OrdersByPriorityThenRegistration(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var calls []string
	Register(stubTransform{name: "b", stage: Ingress, priority: 10, applies: true, calls: &calls})
	Register(stubTransform{name: "a", stage: Ingress, priority: 5, applies: true, calls: &calls})
	Register(stubTransform{name: "c", stage: Ingress, priority: 5, applies: true, calls: &calls})

	req := ir.NewRequest("req-1", ir.OpChat)
	if err := RunIngress(&Context{Request: req}); err != nil {
		t.Fatalf("RunIngress: %v", err)
	}
	want := []string{"a", "c", "b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestRunIngress_SkipsTransformsWhoseApplyIsFalse(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var calls []string
	Register(stubTransform{name: "skip", stage: Ingress, priority: 0, applies: false, calls: &calls})
	Register(stubTransform{name: "run", stage: Ingress, priority: 1, applies: true, calls: &calls})

	req := ir.NewRequest("req-1", ir.OpChat)
	if err := RunIngress(&Context{Request: req}); err != nil {
		t.Fatalf("RunIngress: %v", err)
	}
	if len(calls) != 1 || calls[0] != "run" {
		t.Errorf("calls = %v, want [run]", calls)
	}
}

func TestRunIngress_StopsOnFirstError(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var calls []string
	wantErr := errors.New("boom")
	Register(stubTransform{name: "first", stage: Ingress, priority: 0, applies: true, err: wantErr, calls: &calls})
	Register(stubTransform{name: "second", stage: Ingress, priority: 1, applies: true, calls: &calls})

	req := ir.NewRequest("req-1", ir.OpChat)
	err := RunIngress(&Context{Request: req})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunIngress err = %v, want %v", err, wantErr)
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Errorf("calls = %v, want [first] (second should not have run)", calls)
	}
}

func TestRunEgress_IsIndependentOfIngressRegistrations(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var calls []string
	Register(stubTransform{name: "ingress-only", stage: Ingress, priority: 0, applies: true, calls: &calls})
	Register(stubTransform{name: "egress-only", stage: Egress, priority: 0, applies: true, calls: &calls})

	req := ir.NewRequest("req-1", ir.OpChat)
	resp := &ir.Response{}
	if err := RunEgress(&Context{Request: req, Response: resp}); err != nil {
		t.Fatalf("RunEgress: %v", err)
	}
	if len(calls) != 1 || calls[0] != "egress-only" {
		t.Errorf("calls = %v, want [egress-only]", calls)
	}
}

func TestRunIngress_RerunInvokesSameMatchingTransforms(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	var calls []string
	Register(stubTransform{name: "only", stage: Ingress, priority: 0, applies: true, calls: &calls})

	req := ir.NewRequest("req-1", ir.OpChat)
	ctx := &Context{Request: req}
	if err := RunIngress(ctx); err != nil {
		t.Fatalf("first RunIngress: %v", err)
	}
	if err := RunIngress(ctx); err != nil {
		t.Fatalf("second RunIngress: %v", err)
	}
	if len(calls) != 2 || calls[0] != "only" || calls[1] != "only" {
		t.Errorf("calls = %v, want [only only] (each run invokes the same matching transforms)", calls)
	}
}
