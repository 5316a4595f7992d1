package dispatch

import (
	"github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Collector assembles exactly one record per work item in input order. Each
// slot is written by a single goroutine so no locking is needed.
type Collector struct {
	records []models.ResultRecord
}

// NewCollector sizes the collector for items.
func NewCollector(items []models.WorkItem) *Collector {
	records := make([]models.ResultRecord, len(items))
	for i, item := range items {
		records[i].ItemIndex = item.Index
	}
	return &Collector{records: records}
}

// Success stores the raw provider body for the item at position pos.
func (c *Collector) Success(pos int, body []byte) {
	c.records[pos].Response = append([]byte{}, body...)
	c.records[pos].Error = nil
}

// Failure stores err for the item at position pos.
func (c *Collector) Failure(pos int, err error) {
	rec := &c.records[pos]
	rec.Response = nil
	rec.Error = &models.ItemError{
		Message:   err.Error(),
		ItemIndex: rec.ItemIndex,
		Kind:      common.Kind(err),
	}
}

// Records returns the collected records.
func (c *Collector) Records() []models.ResultRecord {
	return c.records
}

// Summarize counts successful and failed records.
func Summarize(records []models.ResultRecord) (succeeded, failed int) {
	for _, r := range records {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
