package grid

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

var (
	ErrClosed     = errors.New("grid: table closed")
	ErrSuperseded = errors.New("grid: superseded by a newer query")
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Refetching
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refetching:
		return "refetching"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// View is a detached copy of a table's state.
type View[T any] struct {
	State         State           `json:"state"`
	Query         model.GridQuery `json:"query"`
	Rows          []T             `json:"rows"`
	TotalRowCount int             `json:"totalRowCount"`
	TotalPages    int             `json:"totalPages"`
	IsError       bool            `json:"isError"`
	Err           string          `json:"error,omitempty"`
	Seq           uint64          `json:"seq"`
}

// Table drives one list page.
//
// [ORDERING]
// Every Load takes the next sequence number and cancels the fetch it supersedes.
// A response is applied only while its number is still the latest issued, so the
// visible rows always belong to the last query asked for.
type Table[T any] struct {
	fetch FetchFunc[T]

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	view     View[T]
	loadedAt uint64
	closed   bool

	stale atomic.Uint64
}

func NewTable[T any](fetch FetchFunc[T]) *Table[T] {
	return &Table[T]{fetch: fetch}
}

// Load fetches q and returns the resulting view. A fetch error is reported through
// the view (IsError) and keeps the previous rows; no retry is attempted.
func (t *Table[T]) Load(ctx context.Context, q model.GridQuery) (View[T], error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return View[T]{}, ErrClosed
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	seq := t.seq
	fctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if t.loadedAt == 0 {
		t.view.State = Loading
	} else {
		t.view.State = Refetching
	}
	t.view.Query = q
	t.mu.Unlock()

	page, err := t.fetch(fctx, q)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		t.stale.Add(1)
		return t.snapshot(), ErrClosed
	}
	if seq != t.seq {
		t.stale.Add(1)
		return t.snapshot(), ErrSuperseded
	}
	t.cancel = nil

	// The caller went away before the answer arrived.
	if ctxErr := ctx.Err(); ctxErr != nil {
		t.stale.Add(1)
		t.settle()
		return t.snapshot(), ctxErr
	}

	t.view.Seq = seq
	if err != nil {
		t.view.IsError = true
		t.view.Err = err.Error()
		t.settle()
		return t.snapshot(), nil
	}

	t.view.Rows = page.Data
	t.view.TotalRowCount = page.Meta.TotalItems
	t.view.TotalPages = page.Meta.TotalPages
	t.view.IsError = false
	t.view.Err = ""
	t.view.State = Ready
	t.loadedAt = seq
	return t.snapshot(), nil
}

// View returns the current state without fetching.
func (t *Table[T]) View() View[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Stale counts responses that were dropped because a newer query or Close won.
func (t *Table[T]) Stale() uint64 { return t.stale.Load() }

// Close stops further updates and cancels the in-flight fetch.
func (t *Table[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// settle leaves the loading states without new rows.
func (t *Table[T]) settle() {
	if t.loadedAt == 0 {
		t.view.State = Idle
	} else {
		t.view.State = Ready
	}
}

func (t *Table[T]) snapshot() View[T] {
	v := t.view
	if v.Rows != nil {
		v.Rows = append(make([]T, 0, len(v.Rows)), v.Rows...)
	}
	return v
}
