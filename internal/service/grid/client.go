package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Getter is the slice of the backend client the grid needs.
type Getter interface {
	Get(ctx context.Context, resource string, query url.Values, token string) ([]byte, error)
}

// FetchFunc loads one page for a query. Tables are driven by it.
type FetchFunc[T any] func(ctx context.Context, q model.GridQuery) (*model.Page[T], error)

// Fetch issues one GET <base>/<resource>?... and decodes {data, meta}.
// Results are never cached.
func Fetch[T any](ctx context.Context, getter Getter, resource string, q model.GridQuery, token string) (*model.Page[T], error) {
	ctx, span := otel.Tracer("console/grid").Start(ctx, "grid.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("grid.resource", resource),
		attribute.Int("grid.page_index", q.PageIndex),
		attribute.Int("grid.page_size", q.PageSize),
	)

	raw, err := getter.Get(ctx, resource, EncodeQuery(q), token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	var page model.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, fmt.Errorf("grid: decode %s page: %w", resource, err)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// Bind fixes the resource and token of Fetch.
func Bind[T any](getter Getter, resource, token string) FetchFunc[T] {
	return func(ctx context.Context, q model.GridQuery) (*model.Page[T], error) {
		return Fetch[T](ctx, getter, resource, q, token)
	}
}
