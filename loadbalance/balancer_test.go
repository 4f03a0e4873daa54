package loadbalance

import (
	"context"
	"fmt"
	"testing"

	"simple-rpc/registry"
)

var testInstances = []registry.ServiceInstance{
	{Addr: ":8001", Weight: 10, Version: "1.0"},
	{Addr: ":8002", Weight: 5, Version: "1.0"},
	{Addr: ":8003", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}
	ctx := context.Background()

	// Pick 3 times, should cycle through all instances
	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		inst, err := b.Pick(ctx, testInstances)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = inst.Addr
	}
	if results[0] != ":8001" || results[1] != ":8002" || results[2] != ":8003" {
		t.Fatalf("unexpected order %v", results)
	}

	// Pick again, should wrap around to first
	inst, _ := b.Pick(ctx, testInstances)
	if inst.Addr != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], inst.Addr)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	b := &RoundRobinBalancer{}
	_, err := b.Pick(context.Background(), []registry.ServiceInstance{})
	if err != ErrNoInstances {
		t.Fatalf("expect ErrNoInstances, got %v", err)
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		inst, err := b.Pick(context.Background(), testInstances)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}

	// Weight ratio is 10:5:10, so :8001 and :8003 should be ~2x of :8002
	ratio := float64(counts[":8001"]) / float64(counts[":8002"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio :8001/:8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	inst, err := b.Pick(context.Background(), []registry.ServiceInstance{{Addr: ":9000"}})
	if err != nil || inst.Addr != ":9000" {
		t.Fatalf("got %v, %v", inst, err)
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()
	pick := func(key string) string {
		inst, err := b.Pick(WithKey(context.Background(), key), testInstances)
		if err != nil {
			t.Fatal(err)
		}
		return inst.Addr
	}

	// Same key should always map to the same instance
	if a1, a2 := pick("user-123"), pick("user-123"); a1 != a2 {
		t.Fatalf("same key mapped to different instances: %s vs %s", a1, a2)
	}

	// Different keys should (likely) map to different instances
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[pick(fmt.Sprintf("key-%d", i))] = true
	}

	// With 100 different keys and 3 nodes, we should hit at least 2
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different instances, got %d", len(seen))
	}
}

func TestConsistentHashRingChange(t *testing.T) {
	b := NewConsistentHashBalancer()
	ctx := WithKey(context.Background(), "user-42")

	first, err := b.Pick(ctx, testInstances)
	if err != nil {
		t.Fatal(err)
	}

	// removing a different instance keeps the key where it was
	var rest []registry.ServiceInstance
	for _, inst := range testInstances {
		if inst.Addr != first.Addr {
			rest = append(rest, inst)
		}
	}
	survivors := append([]registry.ServiceInstance{*first}, rest[:1]...)
	again, err := b.Pick(ctx, survivors)
	if err != nil {
		t.Fatal(err)
	}
	if again.Addr != first.Addr {
		t.Fatalf("key moved from %s to %s after an unrelated removal", first.Addr, again.Addr)
	}
}

func TestNew(t *testing.T) {
	for name, want := range map[string]string{
		"":           "RoundRobin",
		"roundrobin": "RoundRobin",
		"weighted":   "WeightedRandom",
		"hash":       "ConsistentHash",
	} {
		b, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		if b.Name() != want {
			t.Errorf("New(%q) = %s, want %s", name, b.Name(), want)
		}
	}
	if _, err := New("random"); err == nil {
		t.Error("expect error for unknown balancer")
	}
}
