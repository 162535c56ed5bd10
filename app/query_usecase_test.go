package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simrec/domain"
)

// Mock implementations
type mockCorpusService struct {
	mock.Mock
}

func (m *mockCorpusService) Load(ctx context.Context, req *domain.CorpusRequest) (*domain.CorpusSummary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CorpusSummary), args.Error(1)
}

func (m *mockCorpusService) Save(ctx context.Context, path string) (*domain.SnapshotResponse, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SnapshotResponse), args.Error(1)
}

func (m *mockCorpusService) Summary() (*domain.CorpusSummary, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CorpusSummary), args.Error(1)
}

type mockRecommendService struct {
	mock.Mock
}

func (m *mockRecommendService) Similar(ctx context.Context, req *domain.SimilarRequest) (*domain.SimilarResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SimilarResponse), args.Error(1)
}

func (m *mockRecommendService) Candidates(ctx context.Context, req *domain.CandidatesRequest) (*domain.CandidatesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CandidatesResponse), args.Error(1)
}

func (m *mockRecommendService) Items(ctx context.Context, req *domain.ItemsRequest) (*domain.ItemsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItemsResponse), args.Error(1)
}

func (m *mockRecommendService) Compare(ctx context.Context, req *domain.CompareRequest) (*domain.CompareResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompareResponse), args.Error(1)
}

func (m *mockRecommendService) Stats(ctx context.Context, req *domain.StatsRequest) (*domain.StatsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatsResponse), args.Error(1)
}

func (m *mockRecommendService) Evaluate(ctx context.Context, req *domain.EvaluateRequest) (*domain.EvaluateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EvaluateResponse), args.Error(1)
}

type mockReportFormatter struct {
	mock.Mock
}

func (m *mockReportFormatter) WriteSimilar(resp *domain.SimilarResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteCandidates(resp *domain.CandidatesResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteItems(resp *domain.ItemsResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteCompare(resp *domain.CompareResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteStats(resp *domain.StatsResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteEvaluation(resp *domain.EvaluateResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteCurve(resp *domain.CurveResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

func (m *mockReportFormatter) WriteSnapshot(resp *domain.SnapshotResponse, format domain.OutputFormat, w io.Writer) error {
	return m.write(resp, format, w)
}

// write records the call and echoes a marker so tests can see where output went.
func (m *mockReportFormatter) write(resp any, format domain.OutputFormat, w io.Writer) error {
	args := m.Called(resp, format, w)
	if args.Error(0) == nil {
		_, _ = io.WriteString(w, "report:"+string(format))
	}
	return args.Error(0)
}

// Helper functions
func setupQueryUseCaseMocks(t *testing.T) (*QueryUseCase, *mockCorpusService, *mockRecommendService, *mockReportFormatter) {
	t.Helper()
	corpus := &mockCorpusService{}
	recommend := &mockRecommendService{}
	formatter := &mockReportFormatter{}

	uc, err := NewQueryUseCaseBuilder().
		WithCorpusService(corpus).
		WithRecommendService(recommend).
		WithFormatter(formatter).
		WithOutputWriter(&silentWriter{}).
		Build()
	require.NoError(t, err)
	return uc, corpus, recommend, formatter
}

// silentWriter mirrors the file output writer without status messages.
type silentWriter struct{}

func (silentWriter) Write(w io.Writer, path string, _ domain.OutputFormat, fn func(io.Writer) error) error {
	if path == "" {
		return fn(w)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func TestQueryUseCaseBuilder(t *testing.T) {
	t.Run("missing corpus service", func(t *testing.T) {
		_, err := NewQueryUseCaseBuilder().Build()
		assert.ErrorContains(t, err, "corpus service is required")
	})

	t.Run("missing recommend service", func(t *testing.T) {
		_, err := NewQueryUseCaseBuilder().WithCorpusService(&mockCorpusService{}).Build()
		assert.ErrorContains(t, err, "recommend service is required")
	})

	t.Run("missing formatter", func(t *testing.T) {
		_, err := NewQueryUseCaseBuilder().
			WithCorpusService(&mockCorpusService{}).
			WithRecommendService(&mockRecommendService{}).
			Build()
		assert.ErrorContains(t, err, "report formatter is required")
	})

	t.Run("default output writer", func(t *testing.T) {
		uc, err := NewQueryUseCaseBuilder().
			WithCorpusService(&mockCorpusService{}).
			WithRecommendService(&mockRecommendService{}).
			WithFormatter(&mockReportFormatter{}).
			Build()
		require.NoError(t, err)
		assert.NotNil(t, uc.output)
	})
}

func TestQueryUseCase_Similar(t *testing.T) {
	ctx := context.Background()
	corpusReq := &domain.CorpusRequest{Paths: []string{"ratings.csv"}}
	req := &domain.SimilarRequest{Query: domain.EntityQuery{EntityID: "A"}, TopK: 5}
	resp := &domain.SimilarResponse{Query: "A", Results: []domain.SimilarEntity{{EntityID: "B", Similarity: 0.5}}}

	t.Run("loads then queries then writes", func(t *testing.T) {
		uc, corpus, recommend, formatter := setupQueryUseCaseMocks(t)
		corpus.On("Load", ctx, corpusReq).Return(&domain.CorpusSummary{ID: "c1"}, nil)
		recommend.On("Similar", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatJSON, mock.Anything).Return(nil)

		var buf bytes.Buffer
		err := uc.Similar(ctx, corpusReq, req, OutputOptions{Format: domain.OutputFormatJSON, Writer: &buf})
		require.NoError(t, err)
		assert.Equal(t, "report:json", buf.String())

		corpus.AssertExpectations(t)
		recommend.AssertExpectations(t)
		formatter.AssertExpectations(t)
	})

	t.Run("nil corpus request queries the current corpus", func(t *testing.T) {
		uc, corpus, recommend, formatter := setupQueryUseCaseMocks(t)
		recommend.On("Similar", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatText, mock.Anything).Return(nil)

		err := uc.Similar(ctx, nil, req, OutputOptions{Format: domain.OutputFormatText, Writer: io.Discard})
		require.NoError(t, err)
		corpus.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	})

	t.Run("load failure stops the query", func(t *testing.T) {
		uc, corpus, recommend, formatter := setupQueryUseCaseMocks(t)
		loadErr := domain.NewEmptyInputError("no entities", nil)
		corpus.On("Load", ctx, corpusReq).Return(nil, loadErr)

		err := uc.Similar(ctx, corpusReq, req, OutputOptions{Format: domain.OutputFormatText, Writer: io.Discard})
		assert.ErrorIs(t, err, loadErr)
		recommend.AssertNotCalled(t, "Similar", mock.Anything, mock.Anything)
		formatter.AssertNotCalled(t, "write", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("query error is returned unchanged", func(t *testing.T) {
		uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
		queryErr := domain.NewUnknownEntityError("Z", nil)
		recommend.On("Similar", ctx, req).Return(nil, queryErr)

		err := uc.Similar(ctx, nil, req, OutputOptions{Format: domain.OutputFormatText, Writer: io.Discard})
		assert.True(t, domain.IsCode(err, domain.ErrCodeUnknownEntity))
		formatter.AssertNotCalled(t, "write", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("formatter error", func(t *testing.T) {
		uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
		recommend.On("Similar", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatCSV, mock.Anything).Return(errors.New("disk full"))

		err := uc.Similar(ctx, nil, req, OutputOptions{Format: domain.OutputFormatCSV, Writer: io.Discard})
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestQueryUseCase_OutputValidation(t *testing.T) {
	uc, _, recommend, _ := setupQueryUseCaseMocks(t)
	req := &domain.CandidatesRequest{Query: domain.EntityQuery{EntityID: "A"}}

	err := uc.Candidates(context.Background(), nil, req, OutputOptions{Format: domain.OutputFormatText})
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))

	err = uc.Candidates(context.Background(), nil, req, OutputOptions{Format: "html", Writer: io.Discard})
	assert.True(t, domain.IsCode(err, domain.ErrCodeUnsupportedFormat))

	recommend.AssertNotCalled(t, "Candidates", mock.Anything, mock.Anything)
}

func TestQueryUseCase_WritesToPath(t *testing.T) {
	ctx := context.Background()
	uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
	req := &domain.ItemsRequest{Query: domain.EntityQuery{EntityID: "A"}, TopK: 3, Count: 2}
	resp := &domain.ItemsResponse{Query: "A"}
	recommend.On("Items", ctx, req).Return(resp, nil)
	formatter.On("write", resp, domain.OutputFormatYAML, mock.Anything).Return(nil)

	path := filepath.Join(t.TempDir(), "items.yaml")
	var stdout bytes.Buffer
	err := uc.Items(ctx, nil, req, OutputOptions{Format: domain.OutputFormatYAML, Path: path, Writer: &stdout})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report:yaml", string(data))
	assert.Empty(t, stdout.String())
}

func TestQueryUseCase_Operations(t *testing.T) {
	ctx := context.Background()
	out := OutputOptions{Format: domain.OutputFormatText, Writer: io.Discard}

	t.Run("compare", func(t *testing.T) {
		uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
		req := &domain.CompareRequest{Left: domain.EntityQuery{EntityID: "A"}, Right: domain.EntityQuery{EntityID: "B"}}
		resp := &domain.CompareResponse{Left: "A", Right: "B"}
		recommend.On("Compare", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatText, mock.Anything).Return(nil)
		require.NoError(t, uc.Compare(ctx, nil, req, out))
		formatter.AssertExpectations(t)
	})

	t.Run("stats", func(t *testing.T) {
		uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
		req := &domain.StatsRequest{LargestBuckets: 3}
		resp := &domain.StatsResponse{}
		recommend.On("Stats", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatText, mock.Anything).Return(nil)
		require.NoError(t, uc.Stats(ctx, nil, req, out))
		formatter.AssertExpectations(t)
	})

	t.Run("evaluate", func(t *testing.T) {
		uc, _, recommend, formatter := setupQueryUseCaseMocks(t)
		req := &domain.EvaluateRequest{SampleSize: 10, Threshold: 0.5, MaxResults: 5}
		resp := &domain.EvaluateResponse{Sampled: 10}
		recommend.On("Evaluate", ctx, req).Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatText, mock.Anything).Return(nil)
		require.NoError(t, uc.Evaluate(ctx, nil, req, out))
		formatter.AssertExpectations(t)
	})

	t.Run("snapshot", func(t *testing.T) {
		uc, corpus, _, formatter := setupQueryUseCaseMocks(t)
		corpusReq := &domain.CorpusRequest{Paths: []string{"ratings.csv"}}
		resp := &domain.SnapshotResponse{Path: "out.simrec", Bytes: 10}
		corpus.On("Load", ctx, corpusReq).Return(&domain.CorpusSummary{}, nil)
		corpus.On("Save", ctx, "out.simrec").Return(resp, nil)
		formatter.On("write", resp, domain.OutputFormatText, mock.Anything).Return(nil)
		require.NoError(t, uc.Snapshot(ctx, corpusReq, "out.simrec", out))
		corpus.AssertExpectations(t)
	})

	t.Run("snapshot requires a path", func(t *testing.T) {
		uc, corpus, _, _ := setupQueryUseCaseMocks(t)
		err := uc.Snapshot(ctx, nil, "", out)
		assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))
		corpus.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("load requires a request", func(t *testing.T) {
		uc, _, _, _ := setupQueryUseCaseMocks(t)
		_, err := uc.Load(ctx, nil)
		assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))
	})
}

type mockCurveService struct {
	mock.Mock
}

func (m *mockCurveService) Curve(ctx context.Context, req *domain.CurveRequest) (*domain.CurveResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CurveResponse), args.Error(1)
}

func TestCurveUseCase(t *testing.T) {
	ctx := context.Background()

	_, err := NewCurveUseCase(nil, &mockReportFormatter{})
	assert.ErrorContains(t, err, "curve service is required")
	_, err = NewCurveUseCase(&mockCurveService{}, nil)
	assert.ErrorContains(t, err, "report formatter is required")

	curves := &mockCurveService{}
	formatter := &mockReportFormatter{}
	uc, err := NewCurveUseCase(curves, formatter)
	require.NoError(t, err)
	uc.WithOutputWriter(&silentWriter{})

	req := &domain.CurveRequest{NumHashes: 100, BandWidths: []int{5}, Step: 0.1}
	resp := &domain.CurveResponse{NumHashes: 100}
	curves.On("Curve", ctx, req).Return(resp, nil)
	formatter.On("write", resp, domain.OutputFormatCSV, mock.Anything).Return(nil)

	var buf strings.Builder
	require.NoError(t, uc.Execute(ctx, req, OutputOptions{Format: domain.OutputFormatCSV, Writer: &buf}))
	assert.Equal(t, "report:csv", buf.String())

	curves.On("Curve", ctx, mock.Anything).Return(nil, domain.NewInvalidConfigError("bad", nil))
	err = uc.Execute(ctx, &domain.CurveRequest{}, OutputOptions{Format: domain.OutputFormatCSV, Writer: &buf})
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidConfig))
}
