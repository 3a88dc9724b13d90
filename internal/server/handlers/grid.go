// Handles the grid endpoints: windows, page loading, sorting and grouping.

package handlers

import (
	"context"
	"errors"

	"github.com/maruel/rowgrid/internal/config"
	apierrors "github.com/maruel/rowgrid/internal/errors"
	"github.com/maruel/rowgrid/internal/grid"
	"github.com/maruel/rowgrid/internal/rows"
	"github.com/maruel/rowgrid/internal/server/dto"
	"github.com/maruel/rowgrid/internal/source"
)

// GridHandler handles grid-related HTTP requests.
type GridHandler struct {
	session *grid.Session
	view    config.ViewConfig
}

// NewGridHandler creates a grid handler. view provides the row height and
// row count of requests omitting them.
func NewGridHandler(session *grid.Session, view config.ViewConfig) *GridHandler {
	return &GridHandler{session: session, view: view}
}

// GetRows returns the slots visible in a viewport.
func (h *GridHandler) GetRows(ctx context.Context, req *dto.GetRowsRequest) (*dto.RowsResponse, error) {
	v := h.session.Window(h.window(req.ScrollTop, req.RowHeight, req.Count, req.Page))
	out := &dto.RowsResponse{
		Slots:   make([]dto.SlotResponse, 0, len(v.Slots)),
		Total:   v.Total,
		Loaded:  v.Loaded,
		Grouped: v.Grouped,
	}
	for i := range v.Slots {
		out.Slots = append(out.Slots, slotToDTO(&v.Slots[i]))
	}
	return out, nil
}

// ListPages returns the loaded pages.
func (h *GridHandler) ListPages(ctx context.Context, req *dto.ListPagesRequest) (*dto.ListPagesResponse, error) {
	return &dto.ListPagesResponse{Pages: h.session.Pages(), Stats: h.stats()}, nil
}

// LoadPage fetches one page.
func (h *GridHandler) LoadPage(ctx context.Context, req *dto.LoadPageRequest) (*dto.LoadResponse, error) {
	if err := h.session.Load(ctx, req.Page); err != nil {
		return nil, gridError("Failed to load page", err)
	}
	return &dto.LoadResponse{Pages: []int{req.Page}, Stats: h.stats()}, nil
}

// LoadWindow fetches the pages covering a viewport.
func (h *GridHandler) LoadWindow(ctx context.Context, req *dto.LoadWindowRequest) (*dto.LoadResponse, error) {
	loaded, err := h.session.LoadWindow(ctx, h.window(req.ScrollTop, req.RowHeight, req.Count, 0))
	if err != nil {
		return nil, gridError("Failed to load window", err)
	}
	if loaded == nil {
		loaded = []int{}
	}
	return &dto.LoadResponse{Pages: loaded, Stats: h.stats()}, nil
}

// Sort sorts the loaded rows and the pages loaded later.
func (h *GridHandler) Sort(ctx context.Context, req *dto.SortRequest) (*dto.SortResponse, error) {
	if err := h.session.Sort(ctx, req.Sorts); err != nil {
		return nil, gridError("Failed to sort", err)
	}
	sorts := h.session.Sorts()
	if sorts == nil {
		sorts = []rows.SortKey{}
	}
	return &dto.SortResponse{Sorts: sorts}, nil
}

// Group sets the grouping fields.
func (h *GridHandler) Group(ctx context.Context, req *dto.GroupRequest) (*dto.GroupResponse, error) {
	if err := h.session.SetGroupBy(ctx, req.Fields); err != nil {
		return nil, gridError("Failed to group", err)
	}
	fields := h.session.GroupBy()
	if fields == nil {
		fields = []string{}
	}
	return &dto.GroupResponse{Fields: fields, Total: h.session.Stats().Rows}, nil
}

// ToggleGroup collapses or expands a group.
func (h *GridHandler) ToggleGroup(ctx context.Context, req *dto.ToggleGroupRequest) (*dto.ToggleGroupResponse, error) {
	expanded, err := h.session.ToggleGroup(ctx, req.Key)
	if err != nil {
		return nil, gridError("Failed to toggle group", err)
	}
	return &dto.ToggleGroupResponse{Key: req.Key, Expanded: expanded, Total: h.session.Stats().Rows}, nil
}

// Reset drops every loaded row.
func (h *GridHandler) Reset(ctx context.Context, req *dto.ResetRequest) (*dto.OkResponse, error) {
	h.session.Reset(ctx)
	return &dto.OkResponse{Ok: true}, nil
}

func (h *GridHandler) window(scrollTop, rowHeight float64, count, page int) rows.Window {
	if rowHeight == 0 {
		rowHeight = h.view.RowHeight
	}
	if count == 0 {
		count = h.view.VisibleCount
	}
	return rows.Window{ScrollTop: scrollTop, RowHeight: rowHeight, Count: count, Page: page}
}

func (h *GridHandler) stats() dto.StatsResponse {
	st := h.session.Stats()
	return dto.StatsResponse{
		Rows:            st.Rows,
		LoadedRows:      st.LoadedRows,
		Pages:           st.Pages,
		DefaultPageSize: st.DefaultPageSize,
		LastPage:        st.LastPage,
		Grouped:         st.Grouped,
	}
}

// gridError maps session errors to API errors.
func gridError(msg string, err error) error {
	var fe *source.FetchError
	switch {
	case errors.As(err, &fe):
		return apierrors.FetchFailed(fe.Page, fe.Err)
	case errors.Is(err, rows.ErrInvariant):
		return apierrors.InvariantViolation(err)
	case errors.Is(err, grid.ErrGroupNotFound):
		return apierrors.NotFound("group")
	default:
		return apierrors.InternalWithError(msg, err)
	}
}

func slotToDTO(s *rows.Slot) dto.SlotResponse {
	out := dto.SlotResponse{
		UID:      s.UID,
		Kind:     s.Kind.String(),
		Page:     s.Page,
		Index:    s.Index,
		Expanded: s.Expanded,
		Row:      s.Row,
	}
	if g := s.Group; g != nil {
		out.Group = &dto.GroupSummary{
			Key:      g.Key,
			Level:    g.Level,
			Expanded: g.Expanded,
			Keys:     g.Keys,
			Count:    g.Count(),
		}
	}
	return out
}
