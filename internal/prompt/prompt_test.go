package prompt

import (
	"strings"
	"testing"
)

func TestUser(t *testing.T) {
	got := User("spicy biryani", "1. Jalsa is great.\n")

	want := "User Query: spicy biryani\n\nAvailable Restaurants Data:\n1. Jalsa is great.\n\nPlease provide your recommendations:"
	if got != want {
		t.Errorf("User() = %q, want %q", got, want)
	}
}

func TestUser_AddsMissingNewline(t *testing.T) {
	got := User("q", "1. X")
	if !strings.Contains(got, "1. X\n\nPlease provide") {
		t.Errorf("expected evidence terminated by newline, got %q", got)
	}
}

func TestDefaultSystem_ForbidsInvention(t *testing.T) {
	if !strings.Contains(DefaultSystem, "DO NOT hallucinate") {
		t.Error("system prompt must forbid invented restaurants")
	}
}
