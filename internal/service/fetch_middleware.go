package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service/grid"
)

// LogFetch decorates a grid fetch with timing and outcome logging.
func LogFetch[T any](next grid.FetchFunc[T], resource string, logger *slog.Logger) grid.FetchFunc[T] {
	return func(ctx context.Context, q model.GridQuery) (*model.Page[T], error) {
		start := time.Now()

		page, err := next(ctx, q)

		// [OBSERVABILITY] Cancelled fetches were superseded, not failed
		duration := time.Since(start)
		switch {
		case err != nil && ctx.Err() != nil:
			logger.Debug("GRID_FETCH_CANCELLED",
				"resource", resource,
				"page_index", q.PageIndex,
				"duration_ms", duration.Milliseconds(),
			)
		case err != nil:
			logger.Warn("GRID_FETCH_FAILED",
				"err", err,
				"resource", resource,
				"page_index", q.PageIndex,
				"duration_ms", duration.Milliseconds(),
			)
		default:
			logger.Debug("GRID_FETCH_COMPLETED",
				"resource", resource,
				"page_index", q.PageIndex,
				"rows", len(page.Data),
				"total_items", page.Meta.TotalItems,
				"duration_ms", duration.Milliseconds(),
			)
		}

		return page, err
	}
}
