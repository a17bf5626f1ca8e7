package analytics

// ---------------------------------------------------------------------------
// GA4 Data API v1beta wire types
// ---------------------------------------------------------------------------

// DateRange is an inclusive range of YYYY-MM-DD dates
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Metric names a report metric
type Metric struct {
	Name string `json:"name"`
}

// Dimension names a report dimension
type Dimension struct {
	Name string `json:"name"`
}

// MetricOrderBy sorts by a metric value
type MetricOrderBy struct {
	MetricName string `json:"metricName"`
}

// OrderBy is one sort key of a report
type OrderBy struct {
	Metric *MetricOrderBy `json:"metric,omitempty"`
	Desc   bool           `json:"desc,omitempty"`
}

// RunReportRequest is the body of properties.runReport
type RunReportRequest struct {
	DateRanges []DateRange `json:"dateRanges"`
	Metrics    []Metric    `json:"metrics"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	OrderBys   []OrderBy   `json:"orderBys,omitempty"`
	Limit      int64       `json:"limit,omitempty"`
}

// BatchRunReportsRequest is the body of properties.batchRunReports
type BatchRunReportsRequest struct {
	Requests []RunReportRequest `json:"requests"`
}

// DimensionValue is one dimension cell
type DimensionValue struct {
	Value string `json:"value"`
}

// MetricValue is one metric cell. Values are decimal strings.
type MetricValue struct {
	Value string `json:"value"`
}

// Row is one report row
type Row struct {
	DimensionValues []DimensionValue `json:"dimensionValues"`
	MetricValues    []MetricValue    `json:"metricValues"`
}

// RunReportResponse is the answer of properties.runReport
type RunReportResponse struct {
	Rows     []Row  `json:"rows"`
	RowCount int64  `json:"rowCount"`
	Kind     string `json:"kind"`
}

// BatchRunReportsResponse is the answer of properties.batchRunReports
type BatchRunReportsResponse struct {
	Reports []RunReportResponse `json:"reports"`
}

// ErrorResponse is the Google API error envelope
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (r Row) dimension(i int) string {
	if i < len(r.DimensionValues) {
		return r.DimensionValues[i].Value
	}
	return ""
}

func (r Row) metric(i int) string {
	if i < len(r.MetricValues) {
		return r.MetricValues[i].Value
	}
	return ""
}
