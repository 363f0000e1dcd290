package strategist

import (
	"context"
	"fmt"
	"log"
	"strings"

	"apyhub/internal/domain"
)

const candidatePoolLimit = 20

// PoolCatalog provides the ranked pool universe the rules pick from.
type PoolCatalog interface {
	Top(ctx context.Context, limit int) ([]domain.Pool, error)
}

// Request selects the strategy space for one advisory run.
type Request struct {
	TargetAPY     float64          `json:"targetApy"`
	RiskTolerance domain.RiskLevel `json:"riskTolerance"`
}

// Advice is the strategist's output: concrete proposals, the corpus notes
// they were grounded on and, when the composer is enabled, a narrative
// summary.
type Advice struct {
	Strategies []domain.Strategy `json:"strategies"`
	Notes      []string          `json:"notes"`
	Summary    string            `json:"summary,omitempty"`
	Model      string            `json:"model,omitempty"`
}

// Service generates yield strategy advice over the pool catalog.
type Service struct {
	catalog  PoolCatalog
	corpus   *Corpus
	composer *Composer
	logger   *log.Logger
}

// Options configures the strategist. Composer is optional; a nil composer
// produces rule-based advice without a narrative summary.
type Options struct {
	Catalog  PoolCatalog
	Corpus   *Corpus
	Composer *Composer
	Logger   *log.Logger
}

// NewService creates a strategist service.
func NewService(opts Options) (*Service, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("strategist: pool catalog is required")
	}
	if opts.Corpus == nil {
		corpus, err := NewCorpus()
		if err != nil {
			return nil, err
		}
		opts.Corpus = corpus
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Service{
		catalog:  opts.Catalog,
		corpus:   opts.Corpus,
		composer: opts.Composer,
		logger:   opts.Logger,
	}, nil
}

// Enabled reports whether the narrative composer is configured.
func (s *Service) Enabled() bool { return s.composer != nil }

// Generate builds strategy advice for the request.
func (s *Service) Generate(ctx context.Context, req Request) (*Advice, error) {
	pools, err := s.catalog.Top(ctx, candidatePoolLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidate pools: %w", err)
	}

	strategies := GenerateRuleBased(pools, req.RiskTolerance, req.TargetAPY)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies possible for the current catalog")
	}

	notes, err := s.corpus.Search(ctx, retrievalQuery(strategies), 3)
	if err != nil {
		// Notes enrich the answer but never block it.
		s.logger.Printf("[strategist] corpus search failed: %v", err)
		notes = nil
	}

	advice := &Advice{Strategies: strategies, Notes: notes}

	if s.composer != nil {
		summary, err := s.composer.Compose(ctx, strategies, notes)
		if err != nil {
			s.logger.Printf("[strategist] composer failed, returning rule-based advice: %v", err)
		} else {
			advice.Summary = summary
			advice.Model = s.composer.Model()
		}
	}

	return advice, nil
}

// retrievalQuery summarizes the proposals into a corpus query.
func retrievalQuery(strategies []domain.Strategy) string {
	var sb strings.Builder
	for _, s := range strategies {
		sb.WriteString(s.Name)
		sb.WriteString(" ")
		sb.WriteString(s.Description)
		sb.WriteString(" ")
	}
	return sb.String()
}
