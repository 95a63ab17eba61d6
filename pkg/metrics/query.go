// Package metrics provides a read-side view over the gateway metrics: token
// usage and request outcomes per session, queried from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"intake/pkg/logx"
)

// queryTimeout bounds a single Prometheus query.
const queryTimeout = 10 * time.Second

// StageUsage is the token spend of one call stage within a session.
type StageUsage struct {
	Stage            string `json:"stage"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// UsageReport aggregates a session's gateway spend across all stages.
type UsageReport struct {
	SessionID        string       `json:"session_id"`
	Stages           []StageUsage `json:"stages"`
	PromptTokens     int          `json:"prompt_tokens"`
	CompletionTokens int          `json:"completion_tokens"`
	FailedRequests   int          `json:"failed_requests"`
}

// TotalTokens returns the combined prompt and completion spend.
func (r *UsageReport) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// QueryService answers usage questions from a Prometheus server scraping
// this process.
type QueryService struct {
	api    promv1.API
	logger *logx.Logger
}

// NewQueryService connects to the Prometheus server at promURL.
func NewQueryService(promURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: promURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &QueryService{
		api:    promv1.NewAPI(client),
		logger: logx.NewLogger("metrics"),
	}, nil
}

// SessionTokenUsage reports the per-stage and total token spend for one
// session, plus how many gateway calls failed.
func (s *QueryService) SessionTokenUsage(ctx context.Context, sessionID string) (*UsageReport, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tokens, err := s.queryVector(ctx, fmt.Sprintf(
		`sum by (stage, type) (llm_tokens_total{session_id=%q})`, sessionID))
	if err != nil {
		return nil, err
	}
	failures, err := s.queryVector(ctx, fmt.Sprintf(
		`sum (llm_requests_total{session_id=%q, status="error"})`, sessionID))
	if err != nil {
		return nil, err
	}

	report := &UsageReport{SessionID: sessionID}
	byStage := make(map[string]*StageUsage)
	for _, sample := range tokens {
		stage := string(sample.Metric["stage"])
		usage, ok := byStage[stage]
		if !ok {
			usage = &StageUsage{Stage: stage}
			byStage[stage] = usage
		}
		count := int(sample.Value)
		switch sample.Metric["type"] {
		case "prompt":
			usage.PromptTokens += count
			report.PromptTokens += count
		case "completion":
			usage.CompletionTokens += count
			report.CompletionTokens += count
		}
	}
	for _, usage := range byStage {
		report.Stages = append(report.Stages, *usage)
	}
	sort.Slice(report.Stages, func(i, j int) bool { return report.Stages[i].Stage < report.Stages[j].Stage })
	for _, sample := range failures {
		report.FailedRequests += int(sample.Value)
	}
	return report, nil
}

// queryVector runs an instant query and narrows the result to a vector.
func (s *QueryService) queryVector(ctx context.Context, query string) (model.Vector, error) {
	result, warnings, err := s.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	for _, w := range warnings {
		s.logger.Warn("prometheus warning: %s", w)
	}
	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected prometheus result type %s", result.Type())
	}
	return vector, nil
}
