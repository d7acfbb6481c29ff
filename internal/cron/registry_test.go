package cron

import (
	"context"
	"reflect"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "outbox-retention"}
	jobB := &stubJob{name: "seat-reconcile"}
	registry := NewRegistry(jobA, nil, jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryReplacesSameName(t *testing.T) {
	first := &stubJob{name: "seat-reconcile"}
	second := &stubJob{name: "seat-reconcile"}
	registry := NewRegistry(&stubJob{name: "outbox-retention"}, first)
	registry.Register(second)

	if got := registry.Names(); !reflect.DeepEqual(got, []string{"outbox-retention", "seat-reconcile"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if registry.Jobs()[1] != second {
		t.Fatalf("expected replacement job")
	}
}
