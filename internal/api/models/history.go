package models

import "github.com/elninowatch/elninowatch/internal/history"

// HistoryListResponse is the response for GET /v1/admin/resolutions.
type HistoryListResponse struct {
	Items []*history.Entry  `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// PagedResponseMeta contains pagination metadata.
type PagedResponseMeta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}
