package models

// SearchResult is one ranked hit returned by the retrieval engine.
type SearchResult struct {
	Score     float64 `json:"score"`
	DocID     string  `json:"doc_id"`
	DocName   string  `json:"doc_name"`
	Heading   string  `json:"heading"`
	Snippet   string  `json:"snippet"`
	SectionID string  `json:"section_id"`
	WordCount int     `json:"word_count"`
	PageStart int     `json:"page_start,omitempty"`
	PageEnd   int     `json:"page_end,omitempty"`
}

// SearchRequest is the JSON body accepted by the search endpoint.
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	TopK       int    `json:"top_k"`
	ExcludeDoc string `json:"exclude_doc"`
}
