package models

import "time"

// Section is the atomic indexed unit: a contiguous, heading-labeled span of
// document text together with its embedding. Sections are immutable once
// created; they disappear only when their document is deleted or the index
// is cleared.
type Section struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	DocName   string    `json:"doc_name"`
	Heading   string    `json:"heading"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	PageStart int       `json:"page_start,omitempty"`
	PageEnd   int       `json:"page_end,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEmbedding reports whether the section carries a valid vector.
func (s *Section) HasEmbedding() bool {
	return len(s.Embedding) > 0
}
