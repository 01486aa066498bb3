package scanner

import (
	"context"
	"testing"

	"ESOAnnouncements/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context) ([]domain.Announcement, error) { return nil, nil }

func TestRegistryResolveAllKeepsOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedScanner("forum"))
	reg.Register(namedScanner("blog"))

	got, err := reg.ResolveAll([]string{"blog", "forum"})
	if err != nil {
		t.Fatalf("ResolveAll error: %v", err)
	}
	if len(got) != 2 || got[0].Name() != "blog" || got[1].Name() != "forum" {
		t.Fatalf("unexpected scanners: %v", got)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(namedScanner("blog"))

	if _, err := reg.Resolve("forum"); err == nil {
		t.Fatal("expected error for unknown scanner")
	}
	if _, err := reg.ResolveAll([]string{"blog", "forum"}); err == nil {
		t.Fatal("expected error for unknown scanner in list")
	}
}
