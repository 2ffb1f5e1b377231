package models

// ClinicalData maps a 1-based document index ("1", "2", ...) to the
// storage keys of that document's pages in page order.
type ClinicalData map[string][]string

// ExtractionRequest is the body submitted to the extraction service.
type ExtractionRequest struct {
	ClinicalData   ClinicalData `json:"clinical_data"`
	AdditionalData string       `json:"additional_data,omitempty"`
}
