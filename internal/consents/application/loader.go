package application

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	consents "water-usage/internal/consents/domain"
)

// ListSource names one reference list and its consent column.
type ListSource struct {
	Path   string
	Column string
}

// ListReader reads raw consent numbers from one reference list.
type ListReader interface {
	ReadList(ctx context.Context, path, column string) ([]string, error)
}

// Loader merges reference lists into one consent set.
type Loader struct {
	reader ListReader
}

// NewLoader constructs a Loader.
func NewLoader(reader ListReader) (*Loader, error) {
	if reader == nil {
		return nil, errors.New("consents: nil list reader")
	}
	return &Loader{reader: reader}, nil
}

// LoadAll reads every list concurrently and returns the merged, normalized set.
func (l *Loader) LoadAll(ctx context.Context, sources []ListSource) (consents.Set, error) {
	lists := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			values, err := l.reader.ReadList(gctx, src.Path, src.Column)
			if err != nil {
				return fmt.Errorf("consents: read %s: %w", src.Path, err)
			}
			lists[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := consents.NewSet(lists...)
	if len(set) == 0 {
		return nil, consents.ErrNoConsents
	}
	return set, nil
}
