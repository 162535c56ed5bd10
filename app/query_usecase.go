package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simrec/domain"
	svc "github.com/ludo-technologies/simrec/service"
)

// OutputOptions selects where and how a report is written.
type OutputOptions struct {
	Format domain.OutputFormat
	Path   string    // write to this file when set
	Writer io.Writer // otherwise write here
}

func (o OutputOptions) validate() error {
	if o.Writer == nil && o.Path == "" {
		return domain.NewValidationError("output writer or output path is required")
	}
	if _, err := domain.ParseOutputFormat(string(o.Format)); err != nil {
		return err
	}
	return nil
}

// QueryUseCase loads a corpus and answers one query against it
type QueryUseCase struct {
	corpus    domain.CorpusService
	recommend domain.RecommendService
	formatter domain.ReportFormatter
	output    domain.ReportWriter
}

// NewQueryUseCase creates a new query use case
func NewQueryUseCase(
	corpus domain.CorpusService,
	recommend domain.RecommendService,
	formatter domain.ReportFormatter,
) *QueryUseCase {
	return &QueryUseCase{
		corpus:    corpus,
		recommend: recommend,
		formatter: formatter,
		output:    svc.NewFileOutputWriter(nil),
	}
}

// Load builds or restores the corpus described by req and makes it current.
func (uc *QueryUseCase) Load(ctx context.Context, req *domain.CorpusRequest) (*domain.CorpusSummary, error) {
	if req == nil {
		return nil, domain.NewValidationError("corpus request is required")
	}
	return uc.corpus.Load(ctx, req)
}

// runQuery loads the corpus, runs query and writes its response.
func runQuery[R any](
	ctx context.Context,
	uc *QueryUseCase,
	corpusReq *domain.CorpusRequest,
	out OutputOptions,
	query func(context.Context) (R, error),
	write func(R, domain.OutputFormat, io.Writer) error,
) error {
	if err := out.validate(); err != nil {
		return err
	}
	if corpusReq != nil {
		if _, err := uc.Load(ctx, corpusReq); err != nil {
			return err
		}
	}

	resp, err := query(ctx)
	if err != nil {
		return err
	}

	var w io.Writer
	if out.Path == "" {
		w = out.Writer
	}
	return uc.output.Write(w, out.Path, out.Format, func(w io.Writer) error {
		return write(resp, out.Format, w)
	})
}

// Similar writes the top-k entities most similar to the query. A nil
// corpusReq queries the corpus that is already loaded.
func (uc *QueryUseCase) Similar(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.SimilarRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.SimilarResponse, error) {
		return uc.recommend.Similar(ctx, req)
	}, uc.formatter.WriteSimilar)
}

// Candidates writes the raw LSH candidate set of the query
func (uc *QueryUseCase) Candidates(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.CandidatesRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.CandidatesResponse, error) {
		return uc.recommend.Candidates(ctx, req)
	}, uc.formatter.WriteCandidates)
}

// Items writes item recommendations for the query
func (uc *QueryUseCase) Items(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.ItemsRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.ItemsResponse, error) {
		return uc.recommend.Items(ctx, req)
	}, uc.formatter.WriteItems)
}

// Compare writes the estimated and exact similarity of two entities
func (uc *QueryUseCase) Compare(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.CompareRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.CompareResponse, error) {
		return uc.recommend.Compare(ctx, req)
	}, uc.formatter.WriteCompare)
}

// Stats writes corpus and bucket statistics
func (uc *QueryUseCase) Stats(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.StatsRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.StatsResponse, error) {
		return uc.recommend.Stats(ctx, req)
	}, uc.formatter.WriteStats)
}

// Evaluate writes an estimation accuracy report
func (uc *QueryUseCase) Evaluate(ctx context.Context, corpusReq *domain.CorpusRequest, req *domain.EvaluateRequest, out OutputOptions) error {
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.EvaluateResponse, error) {
		return uc.recommend.Evaluate(ctx, req)
	}, uc.formatter.WriteEvaluation)
}

// Snapshot loads the corpus and saves it to path
func (uc *QueryUseCase) Snapshot(ctx context.Context, corpusReq *domain.CorpusRequest, path string, out OutputOptions) error {
	if path == "" {
		return domain.NewValidationError("snapshot path is required")
	}
	return runQuery(ctx, uc, corpusReq, out, func(ctx context.Context) (*domain.SnapshotResponse, error) {
		return uc.corpus.Save(ctx, path)
	}, uc.formatter.WriteSnapshot)
}

// QueryUseCaseBuilder provides a builder pattern for creating QueryUseCase
type QueryUseCaseBuilder struct {
	corpus    domain.CorpusService
	recommend domain.RecommendService
	formatter domain.ReportFormatter
	output    domain.ReportWriter
}

// NewQueryUseCaseBuilder creates a new builder
func NewQueryUseCaseBuilder() *QueryUseCaseBuilder {
	return &QueryUseCaseBuilder{}
}

// WithCorpusService sets the corpus service
func (b *QueryUseCaseBuilder) WithCorpusService(corpus domain.CorpusService) *QueryUseCaseBuilder {
	b.corpus = corpus
	return b
}

// WithRecommendService sets the recommend service
func (b *QueryUseCaseBuilder) WithRecommendService(recommend domain.RecommendService) *QueryUseCaseBuilder {
	b.recommend = recommend
	return b
}

// WithFormatter sets the report formatter
func (b *QueryUseCaseBuilder) WithFormatter(formatter domain.ReportFormatter) *QueryUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithOutputWriter sets the report writer
func (b *QueryUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *QueryUseCaseBuilder {
	b.output = output
	return b
}

// Build creates the QueryUseCase with the configured dependencies
func (b *QueryUseCaseBuilder) Build() (*QueryUseCase, error) {
	if b.corpus == nil {
		return nil, fmt.Errorf("corpus service is required")
	}
	if b.recommend == nil {
		return nil, fmt.Errorf("recommend service is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("report formatter is required")
	}

	uc := NewQueryUseCase(b.corpus, b.recommend, b.formatter)
	if b.output != nil {
		uc.output = b.output
	}
	return uc, nil
}
