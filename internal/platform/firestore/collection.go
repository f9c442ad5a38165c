package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	"github.com/campverse/api/internal/platform/pagination"
)

const countAlias = "total"

// Document is a decoded snapshot.
type Document[T any] struct {
	ID         string
	Data       T
	UpdateTime time.Time
}

// QueryBuilder narrows a collection query.
type QueryBuilder func(query firestore.Query) firestore.Query

// Sort orders a paged query.
type Sort struct {
	Field     string
	Direction firestore.Direction
}

// BulkWrite enqueues one write for ref on bw.
type BulkWrite func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error)

// Collection is typed access to one top-level collection. T is decoded with
// the SDK's struct tags.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds name on provider.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Ref returns the document reference for id, for use inside transactions.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(c.op("ref"), errors.New("firestore: document id is required"))
	}
	coll, err := c.collection(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

// Get loads and decodes id.
func (c *Collection[T]) Get(ctx context.Context, id string) (Document[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(c.op("get"), err)
	}
	return c.Decode(snap)
}

// Set upserts value under id.
func (c *Collection[T]) Set(ctx context.Context, id string, value T, opts ...firestore.SetOption) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, value, opts...)
	return WrapError(c.op("set"), err)
}

// Create writes value under id and fails with AlreadyExists if it is taken.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, value)
	return WrapError(c.op("create"), err)
}

// Update applies field updates. A missing document yields NotFound.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update, preconds ...firestore.Precondition) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, updates, preconds...)
	return WrapError(c.op("update"), err)
}

// Delete removes id. Deleting a missing document is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string, preconds ...firestore.Precondition) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx, preconds...)
	return WrapError(c.op("delete"), err)
}

// Query runs build over the collection and decodes every result.
func (c *Collection[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	query, err := c.query(ctx, build)
	if err != nil {
		return nil, err
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(c.op("query"), err)
		}
		doc, err := c.Decode(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

// Count runs a server-side count aggregation.
func (c *Collection[T]) Count(ctx context.Context, build QueryBuilder) (int64, error) {
	query, err := c.query(ctx, build)
	if err != nil {
		return 0, err
	}
	result, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, WrapError(c.op("count"), err)
	}
	value, ok := result[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, WrapError(c.op("count"), fmt.Errorf("firestore: unexpected count result %T", result[countAlias]))
	}
	return value.GetIntegerValue(), nil
}

// Page counts the filtered set and returns the requested offset page in sort order.
func (c *Collection[T]) Page(ctx context.Context, filter QueryBuilder, sort Sort, params pagination.Params) ([]Document[T], int64, error) {
	total, err := c.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}
	docs, err := c.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter != nil {
			q = filter(q)
		}
		q = q.OrderBy(sort.Field, sort.Direction)
		if offset := params.Offset(); offset > 0 {
			q = q.Offset(offset)
		}
		if params.Limit > 0 {
			q = q.Limit(params.Limit)
		}
		return q
	})
	return docs, total, err
}

// BulkApply runs write against every document matched by filter through a
// BulkWriter and reports how many writes succeeded.
func (c *Collection[T]) BulkApply(ctx context.Context, filter QueryBuilder, write BulkWrite) (int, error) {
	query, err := c.query(ctx, filter)
	if err != nil {
		return 0, err
	}
	snaps, err := query.Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, WrapError(c.op("bulk"), err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	client, err := c.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(snaps))
	for _, snap := range snaps {
		job, err := write(bw, snap.Ref)
		if err != nil {
			bw.End()
			return 0, WrapError(c.op("bulk"), err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return len(jobs) - len(errs), WrapError(c.op("bulk"), fmt.Errorf("%d of %d writes failed: %w", len(errs), len(jobs), errors.Join(errs...)))
	}
	return len(jobs), nil
}

// Decode converts a snapshot read elsewhere, typically inside a transaction.
func (c *Collection[T]) Decode(snap *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode %s/%s: %w", c.name, snap.Ref.ID, err)
	}
	return Document[T]{ID: snap.Ref.ID, Data: data, UpdateTime: snap.UpdateTime}, nil
}

func (c *Collection[T]) query(ctx context.Context, build QueryBuilder) (firestore.Query, error) {
	coll, err := c.collection(ctx)
	if err != nil {
		return firestore.Query{}, err
	}
	if build == nil {
		return coll.Query, nil
	}
	return build(coll.Query), nil
}

func (c *Collection[T]) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if c == nil || c.provider == nil {
		return nil, errors.New("firestore: collection has no provider")
	}
	if c.name == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}
