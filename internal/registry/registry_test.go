package registry

import (
	"encoding/json"
	"os"
	"testing"
)

func TestRegistry_Resolve_WeightedRandomConverges(t *testing.T) {
	specs := []VariantSpec{
		{Name: "m", Provider: "p0", Model: "variant-0", Weight: 3},
		{Name: "m", Provider: "p1", Model: "variant-1", Weight: 1},
	}
	r, err := New(specs, StrategyWeightedRandom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 4000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		v, err := r.Resolve("m", "")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		counts[v.UpstreamModel]++
	}

	if got := counts["variant-0"]; got < 2850 || got > 3150 {
		t.Errorf("variant-0 count = %d, want in [2850,3150]", got)
	}
	if got := counts["variant-1"]; got < 850 || got > 1150 {
		t.Errorf("variant-1 count = %d, want in [850,1150]", got)
	}
}

func TestRegistry_Resolve_RoundRobinAdvancesInOrder(t *testing.T) {
	specs := []VariantSpec{
		{Name: "m", Provider: "p0", Model: "a"},
		{Name: "m", Provider: "p1", Model: "b"},
		{Name: "m", Provider: "p2", Model: "c"},
	}
	r, err := New(specs, StrategyRoundRobin)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, w := range want {
		v, err := r.Resolve("m", "")
		if err != nil {
			t.Fatalf("Resolve[%d]: %v", i, err)
		}
		if v.UpstreamModel != w {
			t.Errorf("Resolve[%d] = %q, want %q", i, v.UpstreamModel, w)
		}
	}
}

func TestRegistry_Resolve_ProfileFilterIsASoftHint(t *testing.T) {
	specs := []VariantSpec{
		{Name: "m", Provider: "p0", Model: "default-variant"},
	}
	r, err := New(specs, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := r.Resolve("m", "nonexistent-profile")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v.UpstreamModel != "default-variant" {
		t.Errorf("UpstreamModel = %q, want fallback to unfiltered set", v.UpstreamModel)
	}
}

func TestRegistry_Resolve_UnknownModel(t *testing.T) {
	r, err := New(nil, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Resolve("does-not-exist", ""); err == nil {
		t.Fatal("expected an error for an unconfigured model name")
	}
}

func TestRegistry_Resolve_ExpandsEnvAtResolveTime(t *testing.T) {
	t.Setenv("REGISTRY_TEST_KEY", "resolved-value")

	specs := []VariantSpec{
		{
			Name: "m", Provider: "p0", Model: "a",
			ProviderConfig: map[string]interface{}{"api_key": "$REGISTRY_TEST_KEY"},
		},
	}
	r, err := New(specs, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := r.Resolve("m", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := v.ProviderConfig["api_key"]; got != "resolved-value" {
		t.Errorf("api_key = %v, want resolved-value", got)
	}
}

func TestRegistry_Resolve_UnsetEnvVarErrors(t *testing.T) {
	os.Unsetenv("REGISTRY_TEST_MISSING_KEY")

	specs := []VariantSpec{
		{
			Name: "m", Provider: "p0", Model: "a",
			ProviderConfig: map[string]interface{}{"api_key": "$REGISTRY_TEST_MISSING_KEY"},
		},
	}
	r, err := New(specs, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Resolve("m", ""); err == nil {
		t.Fatal("expected an error for an unset env var referenced by provider_config")
	}
}

func TestRegistry_Swap_ReplacesTableAtomically(t *testing.T) {
	r, err := New([]VariantSpec{{Name: "m", Provider: "p0", Model: "old"}}, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := r.Swap([]VariantSpec{{Name: "m", Provider: "p1", Model: "new"}}); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	v, err := r.Resolve("m", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v.UpstreamModel != "new" {
		t.Errorf("UpstreamModel = %q, want new after swap", v.UpstreamModel)
	}
}

func TestRegistry_ListModels_SortedByName(t *testing.T) {
	r, err := New([]VariantSpec{
		{Name: "zeta", Provider: "p0", Model: "a"},
		{Name: "alpha", Provider: "p0", Model: "b"},
	}, StrategyFirst)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	models := r.ListModels()
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}
	if models[0].Name != "alpha" || models[1].Name != "zeta" {
		t.Errorf("models = %+v, want alpha before zeta", models)
	}
}

func TestModelSummary_MarshalsToDocumentedShape(t *testing.T) {
	r, err := New([]VariantSpec{
		{Name: "m", Provider: "p0", Model: "a"},
		{Name: "m", Provider: "p1", Model: "b"},
	}, StrategyWeightedRandom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw, err := json.Marshal(map[string]interface{}{
		"object": "list",
		"data":   r.ListModels(),
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Object string `json:"object"`
		Data   []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Object   string `json:"object"`
			Metadata struct {
				Strategy string `json:"strategy"`
				Variants int    `json:"variants"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Object != "list" {
		t.Errorf("object = %q, want list", decoded.Object)
	}
	if len(decoded.Data) != 1 {
		t.Fatalf("len(data) = %d, want 1", len(decoded.Data))
	}
	entry := decoded.Data[0]
	if entry.ID != "m" || entry.Name != "m" {
		t.Errorf("id/name = %q/%q, want m/m", entry.ID, entry.Name)
	}
	if entry.Object != "model" {
		t.Errorf("object = %q, want model", entry.Object)
	}
	if entry.Metadata.Strategy != string(StrategyWeightedRandom) || entry.Metadata.Variants != 2 {
		t.Errorf("metadata = %+v, want strategy=%s variants=2", entry.Metadata, StrategyWeightedRandom)
	}
}
