package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/platform/pagination"
)

var newestFirst = pfirestore.Sort{Field: "createdAt", Direction: firestore.Desc}

func listPage[D any, T any](ctx context.Context, coll *pfirestore.Collection[D], filter pfirestore.QueryBuilder, sort pfirestore.Sort, params pagination.Params, convert func(id string, doc D) T) (domain.Page[T], error) {
	docs, total, err := coll.Page(ctx, filter, sort, params)
	if err != nil {
		return domain.Page[T]{}, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		items = append(items, convert(doc.ID, doc.Data))
	}
	return domain.Page[T]{Items: items, Total: total}, nil
}
