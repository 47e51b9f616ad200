package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/stockrag/pkg/loader"

	"golang.org/x/sync/errgroup"
)

// IngestResult counts what an ingest run added to the store.
type IngestResult struct {
	Files    int `json:"files"`
	Units    int `json:"units"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Ingest extracts files with ex and merges the accepted triplets into the
// store. At most parallelFiles files are processed at once. Summaries are not
// rebuilt.
func (s *Store) Ingest(
	ctx context.Context,
	ex *Extractor,
	parallelFiles int,
	files ...loader.GraphFile,
) (IngestResult, error) {
	if parallelFiles <= 0 {
		parallelFiles = 1
	}

	var res IngestResult
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelFiles)
	for _, file := range files {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			out, err := ex.ExtractFile(gCtx, file)
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", file.DisplayName(), err)
			}
			added := s.AddTriplets(out.Accepted)

			mu.Lock()
			res.Files++
			res.Units += len(out.Units)
			res.Accepted += added
			res.Rejected += len(out.Rejected)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}
