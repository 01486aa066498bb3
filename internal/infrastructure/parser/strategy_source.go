package parser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
	"ESOAnnouncements/internal/scanner"
)

// DefaultSources lists the scanners in concatenation order. Blog items come
// first so they win date ties against forum items.
var DefaultSources = []string{string(domain.SourceBlog), string(domain.SourceForum)}

// StrategySource implements AnnouncementSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []string
	logger   *slog.Logger
}

var _ ports.AnnouncementSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the ordered source names.
func NewStrategySource(reg *scanner.Registry, sources []string, log *slog.Logger) *StrategySource {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchAll runs every scanner concurrently, concatenates their results in
// source order and sorts them newest first. Equal dates keep their relative
// order. Any scanner failure fails the whole call.
func (s *StrategySource) FetchAll(ctx context.Context) ([]domain.Announcement, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategies, err := s.registry.ResolveAll(s.sources)
	if err != nil {
		return nil, err
	}

	s.debug("fetch all", "sources", s.sources)

	results := make([][]domain.Announcement, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			items, err := strategy.Scan(gctx)
			if err != nil {
				return fmt.Errorf("scan %s: %w", strategy.Name(), err)
			}
			s.debug("source produced announcements", "source", strategy.Name(), "count", len(items))
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := slices.Concat(results...)
	SortNewestFirst(merged)

	s.debug("strategy source done", "total", len(merged))
	return merged, nil
}

// SortNewestFirst orders items by date, newest first, keeping ties stable.
func SortNewestFirst(items []domain.Announcement) {
	slices.SortStableFunc(items, func(a, b domain.Announcement) int {
		return b.Date.Compare(a.Date)
	})
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
