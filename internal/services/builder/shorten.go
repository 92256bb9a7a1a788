package builder

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/comment-archive/internal/logger"
)

// shortenAll assigns a short URL to every stored comment lacking one. The
// first failure cancels outstanding requests and is returned along with how
// many comments were shortened before it.
func (b *Builder) shortenAll(ctx context.Context) (int, error) {
	log := logger.WithPhase("shorten")

	pending, err := b.deps.Store.CommentsMissingShortURL(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unshortened comments: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.ShortenConcurrency)

	for _, c := range pending {
		g.Go(func() error {
			short, err := b.deps.Shortener.ShortenURL(gctx, c.URL)
			if err != nil {
				return fmt.Errorf("failed to shorten comment %s: %w", c.RemoteID, err)
			}
			if err := b.deps.Store.SetShortURL(gctx, c.ID, short); err != nil {
				return fmt.Errorf("failed to save short url for comment %s: %w", c.RemoteID, err)
			}
			done.Add(1)
			return nil
		})
	}

	err = g.Wait()
	n := int(done.Load())
	log.Info().Int("pending", len(pending)).Int("shortened", n).Msg("shortened urls")
	return n, err
}
