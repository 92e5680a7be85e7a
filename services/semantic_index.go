package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-insight-backend/internal/ai"
	"pdf-insight-backend/internal/config"
	"pdf-insight-backend/internal/logger"
	"pdf-insight-backend/models"
)

const (
	metaFileName    = "sections_meta.json"
	vectorsFileName = "vectors.json"
)

// SemanticIndex owns the metadata table and the vector index together. The
// two are positionally coupled: row i of the metadata table corresponds to
// slot i of the vector index, so every mutation updates both under the same
// write lock and persists before returning. Searches take the read lock and
// therefore observe either the full pre-mutation or full post-mutation state.
type SemanticIndex struct {
	mu          sync.RWMutex
	cfg         *config.Config
	embedder    ai.Embedder
	extractor   TextExtractor
	sectionizer *Sectionizer
	index       *VectorIndex
	meta        []models.Section
	metaPath    string
	vectorsPath string
}

// vectorSnapshot is the on-disk form of the vector index.
type vectorSnapshot struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// NewSemanticIndex builds the index and restores any persisted state. Both
// persistence artifacts must be present and consistent; otherwise the index
// starts empty rather than half-loaded.
func NewSemanticIndex(cfg *config.Config, embedder ai.Embedder, extractor TextExtractor) *SemanticIndex {
	si := &SemanticIndex{
		cfg:         cfg,
		embedder:    embedder,
		extractor:   extractor,
		sectionizer: NewSectionizer(cfg.MaxHeadingChars, cfg.MaxSectionChars),
		index:       NewVectorIndex(embedder.Dimension()),
		metaPath:    filepath.Join(cfg.IndexDir(), metaFileName),
		vectorsPath: filepath.Join(cfg.IndexDir(), vectorsFileName),
	}
	si.load()
	return si
}

// IngestPDF extracts, sectionizes, embeds, and indexes one PDF file.
// Re-ingesting an already indexed document name is a skip, reported as a
// warning rather than an error.
func (si *SemanticIndex) IngestPDF(ctx context.Context, filePath string) (*models.IngestResult, error) {
	docName := filepath.Base(filePath)
	if si.HasDocument(docName) {
		return &models.IngestResult{
			DocName:       docName,
			TotalSections: si.Stats().TotalSections,
			Warning:       "already indexed; delete first to re-ingest",
		}, nil
	}

	text, err := si.extractor.ExtractText(ctx, filePath)
	if err != nil {
		logger.Warn("Extraction failed", "doc", docName, "error", err)
		return &models.IngestResult{
			DocName:       docName,
			TotalSections: si.Stats().TotalSections,
			Warning:       "no extractable text",
		}, nil
	}
	return si.IngestText(ctx, docName, text)
}

// IngestText indexes already-extracted text under the given document name.
// Sections below the minimum content thresholds are discarded; surviving
// sections are embedded in one batched provider call.
func (si *SemanticIndex) IngestText(ctx context.Context, docName, text string) (*models.IngestResult, error) {
	result := &models.IngestResult{DocName: docName}
	if si.HasDocument(docName) {
		result.TotalSections = si.Stats().TotalSections
		result.Warning = "already indexed; delete first to re-ingest"
		return result, nil
	}

	tracer := otel.Tracer("semantic-index")
	ctx, span := tracer.Start(ctx, "index.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("doc.name", docName))

	raw := si.sectionizer.SplitSections(text)
	kept := make([]RawSection, 0, len(raw))
	for _, sec := range raw {
		if len(sec.Content) < si.cfg.MinSectionChars || len(strings.Fields(sec.Content)) < si.cfg.MinSectionWords {
			result.SectionsSkipped++
			continue
		}
		kept = append(kept, sec)
	}
	if len(kept) == 0 {
		result.TotalSections = si.Stats().TotalSections
		result.Warning = "no extractable text"
		logger.Warn("No usable sections extracted", "doc", docName, "raw_sections", len(raw))
		return result, nil
	}

	texts := make([]string, len(kept))
	for i, sec := range kept {
		texts[i] = sec.Content
	}
	// One batched embedding call per document, not one per section.
	vectors, err := si.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		result.SectionsSkipped += len(kept)
		result.TotalSections = si.Stats().TotalSections
		result.Warning = fmt.Sprintf("embedding failed: %v", err)
		logger.Error("Batch embedding failed", "doc", docName, "sections", len(kept), "error", err)
		return result, nil
	}

	docID := uuid.NewString()
	now := time.Now().UTC()
	sections := make([]models.Section, 0, len(kept))
	good := make([][]float32, 0, len(kept))
	for i, sec := range kept {
		if i >= len(vectors) || len(vectors[i]) != si.embedder.Dimension() {
			result.SectionsSkipped++
			continue
		}
		sections = append(sections, models.Section{
			ID:        uuid.NewString(),
			DocID:     docID,
			DocName:   docName,
			Heading:   sec.Heading,
			Content:   sec.Content,
			WordCount: len(strings.Fields(sec.Content)),
			PageStart: sec.PageStart,
			PageEnd:   sec.PageEnd,
			Embedding: vectors[i],
			CreatedAt: now,
		})
		good = append(good, vectors[i])
	}
	if len(sections) == 0 {
		result.TotalSections = si.Stats().TotalSections
		result.Warning = "no sections survived embedding"
		return result, nil
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	// Re-check under the write lock: a concurrent ingest may have won.
	if si.hasDocumentLocked(docName) {
		result.TotalSections = len(si.meta)
		result.Warning = "already indexed; delete first to re-ingest"
		return result, nil
	}
	if err := si.index.Add(good); err != nil {
		return nil, fmt.Errorf("failed to add vectors: %w", err)
	}
	si.meta = append(si.meta, sections...)
	if err := si.saveLocked(); err != nil {
		logger.Error("Failed to persist index", "error", err)
	}

	result.SectionsAdded = len(sections)
	result.TotalSections = len(si.meta)
	logger.Info("Document indexed", "doc", docName, "sections", len(sections), "skipped", result.SectionsSkipped)
	return result, nil
}

// ScanAndIngest ingests every PDF in dir that is not already indexed. It is
// idempotent and checks the context between documents so long batches can be
// interrupted with partial progress persisted.
func (si *SemanticIndex) ScanAndIngest(ctx context.Context, dir string) (*models.ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	scan := &models.ScanResult{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		scan.Scanned++
		if si.HasDocument(entry.Name()) {
			scan.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return scan, err
		}
		res, err := si.IngestPDF(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return scan, err
		}
		scan.Results = append(scan.Results, *res)
		if res.Indexed() {
			scan.Ingested++
		}
	}
	return scan, nil
}

// Search embeds the query and returns ranked, diversified results. Search is
// a best-effort read path: provider or index failures degrade to an empty
// result list. Only an empty query is rejected outright.
func (si *SemanticIndex) Search(ctx context.Context, query string, topK int, excludeDoc string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 5
	}

	tracer := otel.Tracer("semantic-index")
	ctx, span := tracer.Start(ctx, "index.search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.top_k", topK))

	cleaned := CleanQuery(query)
	embedded, err := si.embedder.EmbedBatch(ctx, []string{cleaned})
	if err != nil || len(embedded) != 1 {
		logger.Error("Query embedding failed", "error", err)
		return []models.SearchResult{}, nil
	}

	si.mu.RLock()
	defer si.mu.RUnlock()

	overfetch := si.cfg.SearchOverfetch
	if overfetch <= 0 {
		overfetch = 3
	}
	hits, err := si.index.Search(embedded[0], topK*overfetch)
	if err != nil {
		logger.Error("Vector search failed", "error", err)
		return []models.SearchResult{}, nil
	}

	querySet := tokenSet(cleaned)
	candidates := make([]scoredCandidate, 0, len(hits))
	for _, h := range hits {
		if h.Slot >= len(si.meta) {
			continue
		}
		sec := &si.meta[h.Slot]
		candidates = append(candidates, scoredCandidate{
			slot:     h.Slot,
			semantic: h.Score,
			score:    scoreCandidate(sec, h.Score, querySet, si.cfg.MinResultWords),
		})
	}
	rankCandidates(candidates)
	accepted := diversify(candidates, si.meta, topK, si.cfg.MaxPerDocument, excludeDoc)

	results := make([]models.SearchResult, 0, len(accepted))
	for _, c := range accepted {
		sec := &si.meta[c.slot]
		results = append(results, models.SearchResult{
			Score:     c.score,
			DocID:     sec.DocID,
			DocName:   sec.DocName,
			Heading:   sec.Heading,
			Snippet:   BuildSnippet(sec.Content, cleaned, si.cfg.SnippetSentences, si.cfg.SnippetMaxChars),
			SectionID: sec.ID,
			WordCount: sec.WordCount,
			PageStart: sec.PageStart,
			PageEnd:   sec.PageEnd,
		})
	}
	return results, nil
}

// Delete removes a document's sections and rebuilds the vector index from
// the survivors' retained embeddings. Returns the number of sections removed
// or ErrDocumentNotFound.
func (si *SemanticIndex) Delete(docName string) (int, error) {
	si.mu.Lock()
	defer si.mu.Unlock()

	survivors := make([]models.Section, 0, len(si.meta))
	removed := 0
	for _, sec := range si.meta {
		if sec.DocName == docName {
			removed++
			continue
		}
		survivors = append(survivors, sec)
	}
	if removed == 0 {
		return 0, fmt.Errorf("%w: %s", ErrDocumentNotFound, docName)
	}

	vectors := make([][]float32, 0, len(survivors))
	for i := range survivors {
		if survivors[i].HasEmbedding() {
			vectors = append(vectors, survivors[i].Embedding)
		}
	}
	if err := si.index.Rebuild(vectors); err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}
	si.meta = survivors
	if err := si.saveLocked(); err != nil {
		logger.Error("Failed to persist index after delete", "error", err)
	}
	logger.Info("Document deleted", "doc", docName, "sections_removed", removed)
	return removed, nil
}

// Clear empties the metadata table and the vector index unconditionally.
func (si *SemanticIndex) Clear() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.meta = nil
	if err := si.index.Rebuild(nil); err != nil {
		return err
	}
	return si.saveLocked()
}

// HasDocument reports whether a document with that name is indexed.
func (si *SemanticIndex) HasDocument(docName string) bool {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.hasDocumentLocked(docName)
}

func (si *SemanticIndex) hasDocumentLocked(docName string) bool {
	for i := range si.meta {
		if si.meta[i].DocName == docName {
			return true
		}
	}
	return false
}

// ListDocuments groups sections by document and returns per-document
// aggregates, sorted by name for deterministic output.
func (si *SemanticIndex) ListDocuments() []models.DocumentSummary {
	si.mu.RLock()
	defer si.mu.RUnlock()

	byID := make(map[string]*models.DocumentSummary)
	order := make([]string, 0)
	for i := range si.meta {
		sec := &si.meta[i]
		doc, ok := byID[sec.DocID]
		if !ok {
			doc = &models.DocumentSummary{DocID: sec.DocID, DocName: sec.DocName}
			byID[sec.DocID] = doc
			order = append(order, sec.DocID)
		}
		doc.TotalSections++
		doc.TotalWords += sec.WordCount
	}

	docs := make([]models.DocumentSummary, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byID[id])
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocName < docs[j].DocName })
	return docs
}

// Stats returns the current index statistics.
func (si *SemanticIndex) Stats() models.IndexStats {
	si.mu.RLock()
	defer si.mu.RUnlock()

	docs := make(map[string]struct{})
	for i := range si.meta {
		docs[si.meta[i].DocID] = struct{}{}
	}
	return models.IndexStats{
		TotalSections:      len(si.meta),
		TotalDocuments:     len(docs),
		VectorCount:        si.index.Len(),
		EmbeddingDimension: si.index.Dimension(),
		EmbeddingModel:     si.cfg.GoogleEmbeddingsModel,
	}
}

// CleanupOrphans removes PDF files in dir that no indexed document refers
// to. Returns the number of files removed.
func (si *SemanticIndex) CleanupOrphans(dir string) (int, error) {
	indexed := make(map[string]struct{})
	si.mu.RLock()
	for i := range si.meta {
		indexed[si.meta[i].DocName] = struct{}{}
	}
	si.mu.RUnlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		if _, ok := indexed[entry.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn("Failed to remove orphaned file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// saveLocked writes both persistence artifacts. Callers hold the write lock,
// making the disk write part of the mutation's atomic unit.
func (si *SemanticIndex) saveLocked() error {
	metaData, err := json.Marshal(si.meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	snapshot := vectorSnapshot{Dimension: si.index.Dimension(), Vectors: si.index.Vectors()}
	vecData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal vectors: %w", err)
	}
	if err := writeAtomic(si.metaPath, metaData); err != nil {
		return err
	}
	return writeAtomic(si.vectorsPath, vecData)
}

// load restores persisted state. Any inconsistency between the two files,
// or a dimension mismatch with the configured embedder, discards the
// persisted state and starts empty.
func (si *SemanticIndex) load() {
	metaData, metaErr := os.ReadFile(si.metaPath)
	vecData, vecErr := os.ReadFile(si.vectorsPath)
	if metaErr != nil || vecErr != nil {
		logger.Info("No persisted index found, starting empty")
		return
	}

	var meta []models.Section
	var snapshot vectorSnapshot
	if err := json.Unmarshal(metaData, &meta); err != nil {
		logger.Warn("Persisted metadata unreadable, starting empty", "error", err)
		return
	}
	if err := json.Unmarshal(vecData, &snapshot); err != nil {
		logger.Warn("Persisted vectors unreadable, starting empty", "error", err)
		return
	}
	if snapshot.Dimension != si.embedder.Dimension() {
		logger.Warn("Persisted index dimension mismatch, starting empty",
			"persisted", snapshot.Dimension, "configured", si.embedder.Dimension())
		return
	}
	embedded := 0
	for i := range meta {
		if meta[i].HasEmbedding() {
			embedded++
		}
	}
	if embedded != len(snapshot.Vectors) {
		logger.Warn("Persisted index misaligned, starting empty",
			"sections_with_embedding", embedded, "vectors", len(snapshot.Vectors))
		return
	}
	if err := si.index.Rebuild(snapshot.Vectors); err != nil {
		logger.Warn("Persisted vectors rejected, starting empty", "error", err)
		return
	}
	si.meta = meta
	logger.Info("Index restored", "sections", len(meta), "vectors", si.index.Len())
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
