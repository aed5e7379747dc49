package appstore

// Report names requested from the analytics API. The detailed installation
// report is only used for uninstall events.
const (
	installReportName         = "App Downloads Standard"
	installDetailedReportName = "App Store Installation and Deletion Standard"
	sessionReportName         = "App Sessions Standard"
)

// apiError is one entry of an App Store Connect error response.
type apiError struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type errorResponse struct {
	Errors []apiError `json:"errors"`
}

// pageLinks carries the pagination cursor of a list response.
type pageLinks struct {
	Next string `json:"next"`
}

type appAttributes struct {
	Name          string `json:"name"`
	BundleID      string `json:"bundleId"`
	PrimaryLocale string `json:"primaryLocale"`
}

type appResource struct {
	ID         string        `json:"id"`
	Attributes appAttributes `json:"attributes"`
}

type appsResponse struct {
	Data []appResource `json:"data"`
}

type reportRequestAttributes struct {
	AccessType             string `json:"accessType"`
	StoppedDueToInactivity bool   `json:"stoppedDueToInactivity"`
}

type reportRequestResource struct {
	ID         string                  `json:"id"`
	Attributes reportRequestAttributes `json:"attributes"`
}

type reportRequestsResponse struct {
	Data []reportRequestResource `json:"data"`
}

type createReportRequestBody struct {
	Data createReportRequestData `json:"data"`
}

type createReportRequestData struct {
	Type          string                     `json:"type"`
	Attributes    reportRequestCreateAttrs   `json:"attributes"`
	Relationships reportRequestRelationships `json:"relationships"`
}

type reportRequestCreateAttrs struct {
	AccessType string `json:"accessType"`
}

type reportRequestRelationships struct {
	App relationship `json:"app"`
}

type relationship struct {
	Data relationshipData `json:"data"`
}

type relationshipData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type createReportRequestResponse struct {
	Data reportRequestResource `json:"data"`
}

type reportAttributes struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type reportResource struct {
	ID         string           `json:"id"`
	Attributes reportAttributes `json:"attributes"`
}

type reportsResponse struct {
	Data  []reportResource `json:"data"`
	Links pageLinks        `json:"links"`
}

type instanceAttributes struct {
	Granularity    string `json:"granularity"`
	ProcessingDate string `json:"processingDate"`
}

type instanceResource struct {
	ID         string             `json:"id"`
	Attributes instanceAttributes `json:"attributes"`
}

type instancesResponse struct {
	Data  []instanceResource `json:"data"`
	Links pageLinks          `json:"links"`
}

type segmentAttributes struct {
	Checksum    string `json:"checksum"`
	SizeInBytes int64  `json:"sizeInBytes"`
	URL         string `json:"url"`
}

type segmentResource struct {
	ID         string            `json:"id"`
	Attributes segmentAttributes `json:"attributes"`
}

type segmentsResponse struct {
	Data  []segmentResource `json:"data"`
	Links pageLinks         `json:"links"`
}
