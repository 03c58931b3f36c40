package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCorpus struct{ n int }

func (m mockCorpus) Len() int { return m.n }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(mockCorpus{n: 3}, &mockPinger{}, &mockChecker{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.CorpusSize != 3 {
		t.Errorf("expected corpus size 3, got %d", r.CorpusSize)
	}
	for _, name := range []string{ComponentCorpus, ComponentStore, ComponentEmbedding, ComponentGeneration} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OptionalComponentsOmitted(t *testing.T) {
	svc := New(mockCorpus{n: 1}, nil, &mockChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentStore]; ok {
		t.Error("store check must be absent without a store")
	}
	if _, ok := r.Checks[ComponentGeneration]; ok {
		t.Error("generation check must be absent without a generator")
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(mockCorpus{n: 3}, &mockPinger{err: errors.New("conn refused")}, &mockChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentStore] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks[ComponentStore])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_GenerationError(t *testing.T) {
	svc := New(mockCorpus{n: 3}, nil, &mockChecker{}, &mockChecker{err: errors.New("401")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentGeneration] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks[ComponentGeneration])
	}
}

func TestCheck_EmptyCorpusIsUnhealthy(t *testing.T) {
	svc := New(mockCorpus{}, &mockPinger{err: errors.New("down")}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentCorpus] != CheckError {
		t.Errorf("expected corpus %q, got %q", CheckError, r.Checks[ComponentCorpus])
	}
}

func TestCheck_NilCorpus(t *testing.T) {
	r := New(nil, nil, nil, nil).Check(context.Background())
	if r.Status != Unhealthy || r.CorpusSize != 0 {
		t.Errorf("expected unhealthy empty report, got %+v", r)
	}
}
