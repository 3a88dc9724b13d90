package dto

import (
	"fmt"
	"math"

	"github.com/maruel/rowgrid/internal/config"
	apierrors "github.com/maruel/rowgrid/internal/errors"
	"github.com/maruel/rowgrid/internal/rows"
)

const (
	// MaxWindowRows bounds the rows a single window request may ask for.
	MaxWindowRows = 1000
	// MaxPage bounds page numbers accepted by the API.
	MaxPage = 100000
)

// --- Health ---

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// Validate implements Validatable.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Rows ---

// GetRowsRequest is a request for the rows visible in a viewport.
//
// Zero RowHeight and Count use the configured view.
type GetRowsRequest struct {
	ScrollTop float64 `query:"scroll_top"`
	RowHeight float64 `query:"row_height"`
	Count     int     `query:"count"`
	// Page makes ScrollTop relative to the start of this page.
	Page int `query:"page"`
}

// Validate implements Validatable.
func (r *GetRowsRequest) Validate() error {
	if err := validateViewport(r.ScrollTop, r.RowHeight, r.Count); err != nil {
		return err
	}
	if r.Page < 0 || r.Page > MaxPage {
		return apierrors.BadRequest(fmt.Sprintf("page must be between 0 and %d", MaxPage))
	}
	return nil
}

// LoadWindowRequest is a request to load the pages covering a viewport.
type LoadWindowRequest struct {
	ScrollTop float64 `json:"scroll_top"`
	RowHeight float64 `json:"row_height"`
	Count     int     `json:"count"`
}

// Validate implements Validatable.
func (r *LoadWindowRequest) Validate() error {
	return validateViewport(r.ScrollTop, r.RowHeight, r.Count)
}

func validateViewport(scrollTop, rowHeight float64, count int) error {
	if math.IsNaN(scrollTop) || math.IsInf(scrollTop, 0) {
		return apierrors.BadRequest("scroll_top must be a finite number")
	}
	if math.IsNaN(rowHeight) || math.IsInf(rowHeight, 0) || rowHeight < 0 {
		return apierrors.BadRequest("row_height must be a non-negative number")
	}
	if count < 0 || count > MaxWindowRows {
		return apierrors.BadRequest(fmt.Sprintf("count must be between 0 and %d", MaxWindowRows))
	}
	return nil
}

// --- Pages ---

// ListPagesRequest is a request to list loaded pages.
type ListPagesRequest struct{}

// Validate implements Validatable.
func (r *ListPagesRequest) Validate() error {
	return nil
}

// LoadPageRequest is a request to fetch one page.
type LoadPageRequest struct {
	Page int `path:"page"`
}

// Validate implements Validatable.
func (r *LoadPageRequest) Validate() error {
	if r.Page < 1 || r.Page > MaxPage {
		return apierrors.PageNotFound(r.Page)
	}
	return nil
}

// --- View ---

// SortRequest is a request to sort the loaded rows. No key stops sorting.
type SortRequest struct {
	Sorts []rows.SortKey `json:"sorts"`
}

// Validate implements Validatable.
func (r *SortRequest) Validate() error {
	if err := config.ValidateSorts(r.Sorts); err != nil {
		return apierrors.BadRequest(err.Error())
	}
	return nil
}

// GroupRequest is a request to group rows. No field removes grouping.
type GroupRequest struct {
	Fields []string `json:"fields"`
}

// Validate implements Validatable.
func (r *GroupRequest) Validate() error {
	for i, f := range r.Fields {
		if f == "" {
			return apierrors.MissingField(fmt.Sprintf("fields[%d]", i))
		}
	}
	return nil
}

// ToggleGroupRequest is a request to collapse or expand a group.
type ToggleGroupRequest struct {
	Key string `path:"key"`
}

// Validate implements Validatable.
func (r *ToggleGroupRequest) Validate() error {
	if r.Key == "" {
		return apierrors.MissingField("key")
	}
	return nil
}

// ResetRequest is a request to drop every loaded row.
type ResetRequest struct{}

// Validate implements Validatable.
func (r *ResetRequest) Validate() error {
	return nil
}
