package dto

import (
	"github.com/maruel/ksid"
	"github.com/maruel/rowgrid/internal/pages"
	"github.com/maruel/rowgrid/internal/rows"
)

// --- Common Responses ---

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Session ksid.ID `json:"session"`
}

// --- Rows ---

// SlotResponse is one position of the grid.
type SlotResponse struct {
	UID      string        `json:"uid"`
	Kind     string        `json:"kind"`
	Page     int           `json:"page"`
	Index    int           `json:"index"`
	Expanded bool          `json:"expanded,omitempty"`
	Row      rows.Row      `json:"row,omitempty"`
	Group    *GroupSummary `json:"group,omitempty"`
}

// GroupSummary describes a group header without its member rows.
type GroupSummary struct {
	Key      string          `json:"key"`
	Level    int             `json:"level"`
	Expanded bool            `json:"expanded"`
	Keys     []rows.GroupKey `json:"keys"`
	Count    int             `json:"count"`
}

// RowsResponse is a window of the grid.
type RowsResponse struct {
	Slots   []SlotResponse `json:"slots"`
	Total   int            `json:"total"`
	Loaded  int            `json:"loaded"`
	Grouped bool           `json:"grouped"`
}

// --- Pages ---

// StatsResponse summarizes the grid.
type StatsResponse struct {
	Rows            int  `json:"rows"`
	LoadedRows      int  `json:"loaded_rows"`
	Pages           int  `json:"pages"`
	DefaultPageSize int  `json:"default_page_size"`
	LastPage        int  `json:"last_page,omitempty"`
	Grouped         bool `json:"grouped"`
}

// ListPagesResponse lists the loaded pages.
type ListPagesResponse struct {
	Pages []pages.Span  `json:"pages"`
	Stats StatsResponse `json:"stats"`
}

// LoadResponse is returned after loading pages.
type LoadResponse struct {
	Pages []int         `json:"pages"`
	Stats StatsResponse `json:"stats"`
}

// --- View ---

// SortResponse returns the sort in effect.
type SortResponse struct {
	Sorts []rows.SortKey `json:"sorts"`
}

// GroupResponse returns the grouping in effect.
type GroupResponse struct {
	Fields []string `json:"fields"`
	Total  int      `json:"total"`
}

// ToggleGroupResponse returns the new state of a group.
type ToggleGroupResponse struct {
	Key      string `json:"key"`
	Expanded bool   `json:"expanded"`
	Total    int    `json:"total"`
}
