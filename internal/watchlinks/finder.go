package watchlinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults for Finder
const (
	DefaultPerDomain   = 4
	DefaultTotalLimit  = 20
	DefaultConcurrency = 8
)

// FinderConfig bounds the search and probe fan-out
type FinderConfig struct {
	PerDomain   int // results requested from the engine
	TotalLimit  int // candidates probed at most
	Concurrency int // probes in flight
}

func (c *FinderConfig) applyDefaults() {
	if c.PerDomain <= 0 {
		c.PerDomain = DefaultPerDomain
	}
	if c.TotalLimit <= 0 {
		c.TotalLimit = DefaultTotalLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// Finder returns the first working link for a title
type Finder struct {
	searcher Searcher
	prober   *Prober
	config   FinderConfig
	logger   *zap.Logger
	onProbe  func(result string)
}

// NewFinder wires a searcher and a prober
func NewFinder(searcher Searcher, prober *Prober, config FinderConfig, logger *zap.Logger) *Finder {
	config.applyDefaults()
	return &Finder{
		searcher: searcher,
		prober:   prober,
		config:   config,
		logger:   logger.Named("watchlinks"),
		onProbe:  func(string) {},
	}
}

// OnProbe registers a callback receiving every probe outcome
func (f *Finder) OnProbe(fn func(result string)) {
	if fn != nil {
		f.onProbe = fn
	}
}

// FindFirst searches candidates for title and probes them concurrently.
// The first working page wins and the remaining probes are cancelled.
// Nothing working yields a nil Link and nil error.
func (f *Finder) FindFirst(ctx context.Context, title string) (*Link, error) {
	urls, err := f.searcher.Search(ctx, title, f.config.PerDomain)
	if err != nil {
		return nil, fmt.Errorf("find watch link: %w", err)
	}

	candidates := Dedupe(urls)
	if len(candidates) > f.config.TotalLimit {
		candidates = candidates[:f.config.TotalLimit]
	}
	if len(candidates) == 0 {
		f.logger.Debug("no candidates", zap.String("title", title))
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan *Link, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Concurrency)

	for _, u := range candidates {
		if gctx.Err() != nil {
			break
		}
		u := u
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			link, result := f.prober.Probe(gctx, u)
			if gctx.Err() == nil || link != nil {
				f.onProbe(result)
			}
			f.logger.Debug("probe", zap.String("url", u), zap.String("result", result))
			if link == nil {
				return nil
			}
			select {
			case found <- link:
				cancel()
			default:
			}
			return nil
		})
	}
	_ = g.Wait()

	select {
	case link := <-found:
		return link, nil
	default:
		return nil, nil
	}
}

// Dedupe drops repeated URLs keeping the first occurrence
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
