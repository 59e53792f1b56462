package pipeline

import (
	"context"
	"errors"
	"fmt"

	"medassist-ai/internal/citation"
	"medassist-ai/internal/contextutil"
	"medassist-ai/internal/llm"
	"medassist-ai/internal/medquery"
	"medassist-ai/internal/rerank"
	"medassist-ai/internal/search"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks -source=engine.go

// analyzer produces a structured understanding of the question.
type analyzer interface {
	Analyze(ctx context.Context, question string) medquery.Understanding
}

// retriever produces the merged candidate pool for an understood question.
type retriever interface {
	Retrieve(ctx context.Context, u medquery.Understanding, target int) ([]search.Passage, error)
}

// reranker scores and selects the final evidence set.
type reranker interface {
	Rerank(ctx context.Context, question string, u medquery.Understanding, candidates []search.Passage, count int) []rerank.RankedPassage
}

// generator is the slice of the LLM client used for answer generation.
type generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Answer is the pipeline's result for one question.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`
	// Citations holds only the sources the answer actually referenced.
	Citations []citation.Citation `json:"citations"`
	// UsedEvidence reports whether evidence was supplied to the generator.
	UsedEvidence bool `json:"used_evidence"`
	// CitationStats cross-references supplied against referenced evidence.
	CitationStats citation.Stats `json:"citation_stats"`
	// Debug is populated only when requested.
	Debug *Debug `json:"debug,omitempty"`
}

// Debug exposes the pipeline's intermediate artifacts for inspection.
type Debug struct {
	Understanding medquery.Understanding `json:"understanding"`
	Candidates    int                    `json:"candidates"`
	Supplied      []citation.Citation    `json:"supplied"`
	// Ranked carries the per-passage signal breakdowns behind Supplied.
	Ranked   []rerank.RankedPassage `json:"ranked,omitempty"`
	TopScore float64                `json:"top_score,omitempty"`
}

// ErrGeneration marks a failed answer-generation call so the HTTP layer can
// report an upstream failure rather than an internal one.
var ErrGeneration = errors.New("answer generation failed")

const answerPrompt = `You are a clinical evidence assistant. Answer the question precisely and
concisely for a healthcare professional. When evidence sources are provided, ground every
factual claim in them and cite with bracketed source numbers like [1] or [1,2]. If the
evidence does not cover part of the question, say so rather than inventing sources.`

// Engine runs the four-stage answer pipeline: understand, retrieve, rerank,
// generate-and-verify.
type Engine struct {
	analyzer     analyzer
	retriever    retriever
	reranker     reranker
	generator    generator
	maxCitations int
	maxTokens    int
	model        string
}

// Options tunes the engine.
type Options struct {
	// MaxCitations caps how many sources are supplied to the generator.
	MaxCitations int
	// MaxTokens bounds the generated answer length.
	MaxTokens int
	// Model names the generation model.
	Model string
}

// New creates a pipeline engine.
func New(a analyzer, ret retriever, rr reranker, gen generator, opts Options) *Engine {
	if opts.MaxCitations < 1 {
		opts.MaxCitations = 8
	}
	return &Engine{
		analyzer:     a,
		retriever:    ret,
		reranker:     rr,
		generator:    gen,
		maxCitations: opts.MaxCitations,
		maxTokens:    opts.MaxTokens,
		model:        opts.Model,
	}
}

// Answer runs the full pipeline for one question. Evidence-side failures
// degrade to answering without citations; only generation failure is an
// error, because without it there is nothing to return.
func (e *Engine) Answer(ctx context.Context, question string, debug bool) (*Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	u := e.analyzer.Analyze(ctx, question)

	if !u.IsMedical() {
		logger.InfoContext(ctx, "question classified non-medical, skipping retrieval")
		return e.answerWithout(ctx, question, u, debug, 0)
	}

	candidates, err := e.retriever.Retrieve(ctx, u, e.maxCitations)
	if err != nil {
		logger.WarnContext(ctx, "retrieval unavailable, answering without evidence", "error", err)
		return e.answerWithout(ctx, question, u, debug, 0)
	}
	if len(candidates) == 0 {
		logger.InfoContext(ctx, "no evidence found for question")
		return e.answerWithout(ctx, question, u, debug, 0)
	}

	ranked := e.reranker.Rerank(ctx, question, u, candidates, e.maxCitations)
	if len(ranked) > e.maxCitations {
		ranked = ranked[:e.maxCitations]
	}
	if len(ranked) == 0 {
		logger.InfoContext(ctx, "no candidate survived reranking", "candidates", len(candidates))
		return e.answerWithout(ctx, question, u, debug, len(candidates))
	}

	supplied, block := citation.Build(ranked)

	text, err := e.generate(ctx, question, block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	verification := citation.Verify(ctx, text, supplied)

	answer := &Answer{
		Text:          text,
		Citations:     verification.Referenced,
		UsedEvidence:  true,
		CitationStats: verification.Stats,
	}
	if debug {
		answer.Debug = &Debug{
			Understanding: u,
			Candidates:    len(candidates),
			Supplied:      supplied,
			Ranked:        ranked,
			TopScore:      ranked[0].ContextualScore,
		}
	}
	return answer, nil
}

// answerWithout generates an answer with no evidence context.
func (e *Engine) answerWithout(ctx context.Context, question string, u medquery.Understanding, debug bool, candidates int) (*Answer, error) {
	text, err := e.generate(ctx, question, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	answer := &Answer{
		Text:      text,
		Citations: []citation.Citation{},
	}
	if debug {
		answer.Debug = &Debug{Understanding: u, Candidates: candidates}
	}
	return answer, nil
}

func (e *Engine) generate(ctx context.Context, question, evidenceBlock string) (string, error) {
	system := answerPrompt
	if evidenceBlock != "" {
		system = answerPrompt + "\n\n" + evidenceBlock
	}
	return e.generator.ChatWithMessages(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}, llm.ChatParams{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: 0.2,
	})
}
