package models

// SourceResponse describes one configured imagery source.
type SourceResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Attribution   string  `json:"attribution"`
	Layer         string  `json:"layer"`
	TileMatrixSet string  `json:"tileMatrixSet"`
	Format        string  `json:"format"`
	MaxZoom       int     `json:"maxZoom"`
	Opacity       float64 `json:"opacity"`
	Template      string  `json:"template"`
}

// SourceListResponse is the response for GET /v1/imagery/sources.
type SourceListResponse struct {
	Date    string           `json:"date"`
	Sources []SourceResponse `json:"sources"`
}

// ResultResponse is the resolution of one source.
type ResultResponse struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Requested string `json:"requested"`
	Resolved  string `json:"resolved"`
	// FallbackDays is null when no date within the lookback had tiles.
	FallbackDays *int   `json:"fallbackDays"`
	Outcome      string `json:"outcome"`
	Checks       int    `json:"checks"`
	Message      string `json:"message"`
	Template     string `json:"template"`
}

// ResolutionResponse is the response for GET /v1/imagery/resolve.
type ResolutionResponse struct {
	Requested   string           `json:"requested"`
	Lookback    int              `json:"lookback"`
	Exhausted   bool             `json:"exhausted"`
	FellBack    bool             `json:"fellBack"`
	TotalChecks int              `json:"totalChecks"`
	Status      string           `json:"status"`
	Results     []ResultResponse `json:"results"`
	ResolvedAt  Timestamp        `json:"resolvedAt"`
}

// CheckResponse is the response for GET /v1/imagery/check.
type CheckResponse struct {
	Source      string `json:"source"`
	Date        string `json:"date"`
	URL         string `json:"url"`
	Available   bool   `json:"available"`
	Reason      string `json:"reason"`
	StatusCode  int    `json:"statusCode,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	DurationMs  int64  `json:"durationMs"`
}
