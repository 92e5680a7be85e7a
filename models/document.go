package models

// DocumentSummary is the per-document aggregate returned by the documents
// listing: section and word counts grouped from the metadata table.
type DocumentSummary struct {
	DocID         string `json:"doc_id"`
	DocName       string `json:"doc_name"`
	TotalSections int    `json:"total_sections"`
	TotalWords    int    `json:"total_words"`
}

// IndexStats describes the current size and configuration of the index.
type IndexStats struct {
	TotalSections      int    `json:"total_sections"`
	TotalDocuments     int    `json:"total_documents"`
	VectorCount        int    `json:"vector_count"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	EmbeddingModel     string `json:"embedding_model,omitempty"`
}

// IngestResult is the structured outcome of ingesting a single file.
// Exactly one of Warning or SectionsAdded>0 describes a successful call;
// skipped sections are itemized rather than silently dropped.
type IngestResult struct {
	DocName         string `json:"doc_name"`
	SectionsAdded   int    `json:"sections_added"`
	SectionsSkipped int    `json:"sections_skipped,omitempty"`
	TotalSections   int    `json:"total_sections"`
	Warning         string `json:"warning,omitempty"`
}

// Indexed reports whether the ingestion actually added the document.
func (r *IngestResult) Indexed() bool {
	return r.Warning == "" && r.SectionsAdded > 0
}

// ScanResult summarizes a directory rescan.
type ScanResult struct {
	Scanned  int            `json:"scanned"`
	Ingested int            `json:"ingested"`
	Skipped  int            `json:"skipped"`
	Results  []IngestResult `json:"results,omitempty"`
}
