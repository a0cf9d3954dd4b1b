package approvals

import (
	"github.com/viant/approvals/extension"
	"github.com/viant/approvals/service/notification"
	"github.com/viant/approvals/service/orchestrator"
	"github.com/viant/approvals/service/persistence"
	"github.com/viant/approvals/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes the approval engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithNotifier sets the event notifier.
func WithNotifier(notifier notification.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithStore sets the persistence collaborator.
func WithStore(store persistence.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithPolicy sets the lifecycle policy hooks.
func WithPolicy(policy extension.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithApproverMatcher sets the approver matching strategy.
func WithApproverMatcher(matcher orchestrator.ApproverMatcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

// WithExtensionTypes sets the payload type registry.
func WithExtensionTypes(types *extension.Types) Option {
	return func(s *Service) { s.types = types }
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path. The function is safe to call multiple
// times - the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
