package models

import (
	"encoding/json"
	"time"
)

// Error kinds attached to failed result records.
const (
	ErrorKindValidation  = "validation"
	ErrorKindResolution  = "resolution"
	ErrorKindUnsupported = "unsupported"
	ErrorKindProvider    = "provider"
	ErrorKindUnknown     = "unknown"
)

// WorkItem is one unit of input data. Index is 0-based and stable for the life
// of the batch.
type WorkItem struct {
	Index  int    `json:"index"`
	Params Params `json:"params"`
}

// ItemError is the failure description attached to a result record. It never
// carries stack traces or credential material.
type ItemError struct {
	Message   string `json:"error"`
	ItemIndex int    `json:"itemIndex"`
	Kind      string `json:"kind,omitempty"`
}

// ResultRecord is the outcome of a single work item. Exactly one of Response
// and Error is set.
type ResultRecord struct {
	ItemIndex int
	Response  []byte
	Error     *ItemError
}

// Failed reports whether the record carries an error.
func (r ResultRecord) Failed() bool {
	return r.Error != nil
}

// MarshalJSON emits the provider body unmodified for successes and the error
// description for failures. Non-JSON provider bodies are encoded as strings.
func (r ResultRecord) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(r.Error)
	}
	if len(r.Response) == 0 {
		return []byte("null"), nil
	}
	if json.Valid(r.Response) {
		return append([]byte(nil), r.Response...), nil
	}
	return json.Marshal(string(r.Response))
}

// BatchRequest is the envelope consumed by the Kafka worker.
type BatchRequest struct {
	BatchID  string    `json:"batch_id"`
	TraceID  string    `json:"trace_id,omitempty"`
	TenantID string    `json:"tenant_id,omitempty"`
	Items    []Params  `json:"items"`
	SentAt   time.Time `json:"sent_at"`
}

// WorkItems converts the envelope items into indexed work items.
func (b BatchRequest) WorkItems() []WorkItem {
	items := make([]WorkItem, len(b.Items))
	for i, params := range b.Items {
		items[i] = WorkItem{Index: i, Params: params}
	}
	return items
}

// BatchResult is the envelope published once a batch has been processed.
// Error is set instead of Results when the request envelope was rejected
// before any item ran.
type BatchResult struct {
	BatchID     string         `json:"batch_id"`
	TraceID     string         `json:"trace_id,omitempty"`
	TenantID    string         `json:"tenant_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Results     []ResultRecord `json:"results"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	CompletedAt time.Time      `json:"completed_at"`
}
