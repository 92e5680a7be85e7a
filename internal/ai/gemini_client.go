package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"pdf-insight-backend/internal/config"
)

// GeminiEmbedder produces embeddings through the Google Generative AI API
// (text-embedding-004 by default). Calls run behind a circuit breaker and a
// requests-per-minute limiter so one flaky upstream window cannot stall
// ingestion indefinitely.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
}

// NewGeminiEmbedder creates the embedder and verifies the provider once with
// a probe request. A failing probe is fatal for the caller: an index without
// an embedding provider cannot ingest or search.
func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	rpm := cfg.EmbedRPM
	if rpm <= 0 {
		rpm = 100
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm/10+1)

	e := &GeminiEmbedder{
		client:    client,
		model:     cfg.GoogleEmbeddingsModel,
		dimension: cfg.VectorDimensions,
		breaker:   breaker,
		limiter:   limiter,
	}

	probe, err := e.EmbedBatch(ctx, []string{"startup probe"})
	if err != nil {
		return nil, fmt.Errorf("embedding provider unreachable: %w", err)
	}
	if len(probe) == 1 && len(probe[0]) != e.dimension {
		// Trust the provider over VECTOR_DIM when they disagree.
		log.Printf("Embedding dimension is %d, overriding configured %d", len(probe[0]), e.dimension)
		e.dimension = len(probe[0])
	}
	return e, nil
}

// Dimension returns the vector dimension of the configured model.
func (e *GeminiEmbedder) Dimension() int { return e.dimension }

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error { return e.client.Close() }

// EmbedBatch embeds all texts in a single batched API call and returns one
// unit-normalized vector per input, in order.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embed.batch_size", len(texts)),
		attribute.String("embed.model", e.model),
	)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		batch := model.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}
		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		return resp, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("batch embedding failed: %w", err)
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = Normalize(emb.Values)
	}
	return vectors, nil
}
