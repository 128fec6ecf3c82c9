package converter

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of decoding one file in a batch
type FileResult struct {
	Path   string
	Result *tensormidi.Result
	Err    error
}

// DecodeFiles decodes many files concurrently, at most workers at a time
// (GOMAXPROCS when workers <= 0). Results come back in input order. A file
// that fails to decode records its error in its FileResult; the returned
// error is only set when ctx is cancelled.
func (c *Converter) DecodeFiles(ctx context.Context, paths []string, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.decodeFile(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (c *Converter) decodeFile(path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("failed to read input file: %w", err)}
	}
	res, err := c.Decode(data)
	if err != nil {
		c.logger.Warn("decode failed", zap.String("file", path), zap.Error(err))
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Result: res}
}
