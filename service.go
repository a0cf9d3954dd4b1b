package approvals

import (
	"context"

	"github.com/viant/approvals/extension"
	"github.com/viant/approvals/service/decision"
	"github.com/viant/approvals/service/escalation"
	"github.com/viant/approvals/service/messaging/memory"
	"github.com/viant/approvals/service/metrics"
	"github.com/viant/approvals/service/notification"
	"github.com/viant/approvals/service/orchestrator"
	"github.com/viant/approvals/service/persistence"
	"github.com/viant/approvals/service/risk"
)

// Service assembles the approval engine: orchestrator, risk policy engine,
// decision engine, timeout-escalation engine, metrics, notification and
// persistence.
type Service struct {
	config       *Config
	orchestrator *orchestrator.Service
	risk         *risk.Service
	decisions    *decision.Service
	escalation   *escalation.Service
	metrics      *metrics.Aggregator
	notifier     notification.Notifier
	store        persistence.Store
	types        *extension.Types
	policy       extension.Policy
	matcher      orchestrator.ApproverMatcher
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.types == nil {
		s.types = extension.NewTypes()
	}
	if s.notifier == nil {
		if s.config.Webhook.URL != "" {
			s.notifier = notification.NewWebhook(s.config.Webhook)
		} else {
			s.notifier = notification.NewMemory(memory.Config{})
		}
	}
	if s.store == nil && s.config.StoreBaseURL != "" {
		store, err := persistence.NewFS(s.config.StoreBaseURL)
		if err != nil {
			return err
		}
		s.store = store
	}
	s.metrics = metrics.New()
	s.risk = risk.New(s.config.Risk)
	s.escalation = escalation.New(s.config.Escalation, nil)

	orchestratorOptions := []orchestrator.Option{
		orchestrator.WithNotifier(s.notifier),
	}
	if s.store != nil {
		orchestratorOptions = append(orchestratorOptions, orchestrator.WithStore(s.store))
	}
	if s.policy != nil {
		orchestratorOptions = append(orchestratorOptions, orchestrator.WithPolicy(s.policy))
	}
	if s.matcher != nil {
		orchestratorOptions = append(orchestratorOptions, orchestrator.WithMatcher(s.matcher))
	}

	// the decision engine resolves step order through the orchestrator, and
	// the escalation engine reports back into it
	s.orchestrator = orchestrator.New(s.config.Orchestrator, s.risk, nil, s.escalation, s.metrics, orchestratorOptions...)
	s.decisions = decision.New(s.config.Decision, decision.WithStepOrder(s.orchestrator.StepOrder))
	s.orchestrator.SetDecisions(s.decisions)
	s.escalation.SetHandler(s.orchestrator)
	return nil
}

// New creates an approval engine service.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	if err := s.init(options); err != nil {
		return nil, err
	}
	return s, nil
}

// Orchestrator returns the approval orchestrator.
func (s *Service) Orchestrator() *orchestrator.Service {
	return s.orchestrator
}

// Risk returns the risk policy engine.
func (s *Service) Risk() *risk.Service {
	return s.risk
}

// Decisions returns the decision engine.
func (s *Service) Decisions() *decision.Service {
	return s.decisions
}

// Escalation returns the timeout-escalation engine.
func (s *Service) Escalation() *escalation.Service {
	return s.escalation
}

// Metrics returns the metrics aggregator.
func (s *Service) Metrics() *metrics.Aggregator {
	return s.metrics
}

// Notifier returns the configured notifier.
func (s *Service) Notifier() notification.Notifier {
	return s.notifier
}

// Types returns the extension type registry.
func (s *Service) Types() *extension.Types {
	return s.types
}

// Start recovers persisted workflows and runs the background sweep loops
// until the context is cancelled or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	if err := s.orchestrator.Recover(ctx); err != nil {
		return err
	}
	go func() {
		_ = s.escalation.Start(ctx)
	}()
	return s.orchestrator.Start(ctx)
}

// Shutdown stops the background loops.
func (s *Service) Shutdown() {
	s.escalation.Shutdown()
	s.orchestrator.Shutdown()
}
