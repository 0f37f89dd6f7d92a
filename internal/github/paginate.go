package github

import (
	"context"

	"github.com/festy23/dora_collector/internal/apperr"
)

// PageInfo is the GraphQL connection cursor state.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// Page is one decoded page of repository nodes.
type Page[N any] struct {
	Nodes    []N
	PageInfo PageInfo
}

// PageFetcher fetches the page after cursor; a nil cursor requests the first page.
type PageFetcher[N any] func(ctx context.Context, cursor *string) (Page[N], error)

// Paginate walks every page returned by fetch and hands each node to visit.
//
// It stops when the source reports no further page or returns an empty
// cursor, and fails with apperr.ErrTransport when a cursor repeats. The
// number of pages fetched is returned.
func Paginate[N any](ctx context.Context, fetch PageFetcher[N], visit func(N)) (int, error) {
	var (
		cursor *string
		pages  int
		seen   = make(map[string]struct{})
	)

	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return pages, err
		}
		pages++

		for _, node := range page.Nodes {
			visit(node)
		}

		next := page.PageInfo.EndCursor
		if !page.PageInfo.HasNextPage || next == nil || *next == "" {
			return pages, nil
		}
		if _, dup := seen[*next]; dup {
			return pages, apperr.Errorf(apperr.ErrTransport, "paginate", "cursor %q returned twice", *next)
		}
		seen[*next] = struct{}{}
		cursor = next
	}
}
