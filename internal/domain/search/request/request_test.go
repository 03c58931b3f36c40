package request

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/domain/search/filter"
)

func intPtr(i int) *int { return &i }

func TestNew_Defaults(t *testing.T) {
	r, err := New("cozy cafe", filter.Criteria{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Text() != "cozy cafe" {
		t.Errorf("Text() = %q", r.Text())
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), DefaultTopK)
	}
	if !r.Criteria().IsEmpty() {
		t.Error("expected empty criteria")
	}
}

func TestNew_TopKClamping(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, DefaultTopK},
		{1, 1},
		{MaxTopK, MaxTopK},
		{MaxTopK + 1, MaxTopK},
	}
	for _, tt := range tests {
		r, err := New("q", filter.Criteria{}, tt.in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.TopK() != tt.want {
			t.Errorf("New(topK=%d).TopK() = %d, want %d", tt.in, r.TopK(), tt.want)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"empty", "", "query is required"},
		{"whitespace", "   \t", "query is required"},
		{"too long", strings.Repeat("a", MaxQueryLength+1), "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.text, filter.Criteria{}, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_MaxLengthAccepted(t *testing.T) {
	if _, err := New(strings.Repeat("a", MaxQueryLength), filter.Criteria{}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse(t *testing.T) {
	r, err := Parse("biryani", "Koramangala", intPtr(800), 4.0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Criteria().Location() != "koramangala" {
		t.Errorf("Location() = %q", r.Criteria().Location())
	}
	if p, ok := r.Criteria().MaxPrice(); !ok || p != 800 {
		t.Errorf("MaxPrice() = %d, %v", p, ok)
	}
	if r.TopK() != 3 {
		t.Errorf("TopK() = %d", r.TopK())
	}
}

func TestParse_InvalidCriteria(t *testing.T) {
	_, err := Parse("biryani", "", intPtr(-1), 0, 0)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	_, err = Parse("biryani", "", nil, 7, 0)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	_, err = Parse("pizza", "", nil, math.NaN(), 5)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("NaN min_rating: expected ErrInvalidRequest, got %v", err)
	}
}
