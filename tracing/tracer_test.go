package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func enabledConfig() *Config {
	return &Config{
		Enabled: true,
		OTLP:    &OTLPConfig{Endpoint: "localhost:4318"},
	}
}

func TestNewTracer_NilConfig(t *testing.T) {
	tp, err := NewTracer(nil, "weeklyd", "1.0.0")

	assert.Nil(t, tp)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewTracer_Disabled(t *testing.T) {
	tp, err := NewTracer(&Config{}, "", "1.0.0", WithoutGlobal())

	require.NoError(t, err)
	assert.NotNil(t, tp)
	_ = tp.Shutdown(context.Background())
}

func TestNewTracer_EmptyServiceName(t *testing.T) {
	tp, err := NewTracer(enabledConfig(), "", "1.0.0", WithoutGlobal())

	assert.Nil(t, tp)
	assert.ErrorIs(t, err, ErrEmptyServiceName)
}

func TestNewTracer_EmptyEndpoint(t *testing.T) {
	for _, otlp := range []*OTLPConfig{nil, {Endpoint: ""}} {
		tp, err := NewTracer(&Config{Enabled: true, OTLP: otlp}, "weeklyd", "1.0.0", WithoutGlobal())

		assert.Nil(t, tp)
		assert.ErrorIs(t, err, ErrEmptyEndpoint)
	}
}

func TestNewTracer_OTLP(t *testing.T) {
	for _, endpoint := range []string{"localhost:4318", "http://localhost:4318", "https://collector:4318"} {
		cfg := enabledConfig()
		cfg.OTLP.Endpoint = endpoint
		cfg.OTLP.Headers = map[string]string{"Authorization": "Bearer token"}

		tp, err := NewTracer(cfg, "weeklyd", "1.0.0", WithoutGlobal())

		require.NoError(t, err, endpoint)
		assert.NotNil(t, tp)
		_ = tp.Shutdown(context.Background())
	}
}

func TestNewOTLPExporter(t *testing.T) {
	exp, err := newOTLPExporter(&OTLPConfig{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)
	assert.Implements(t, (*sdktrace.SpanExporter)(nil), exp)
	_ = exp.Shutdown(context.Background())

	_, err = newOTLPExporter(&OTLPConfig{})
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestNewTracer_WithExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp, err := NewTracer(&Config{Enabled: true}, "weeklyd", "1.0.0", WithExporter(exp), WithoutGlobal())
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "scheduler.fire")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "scheduler.fire", spans[0].Name)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "weeklyd", service)
}

func TestMustNewTracer(t *testing.T) {
	assert.Panics(t, func() {
		MustNewTracer(nil, "weeklyd", "1.0.0")
	})
	assert.Panics(t, func() {
		MustNewTracer(enabledConfig(), "", "1.0.0", WithoutGlobal())
	})
}

func TestStripScheme(t *testing.T) {
	endpoint, secure := stripScheme("https://collector:4318")
	assert.Equal(t, "collector:4318", endpoint)
	assert.True(t, secure)

	endpoint, secure = stripScheme("http://localhost:4318")
	assert.Equal(t, "localhost:4318", endpoint)
	assert.False(t, secure)
}

func TestSamplingRate(t *testing.T) {
	assert.Equal(t, 1.0, samplingRate(-0.5))
	assert.Equal(t, 1.0, samplingRate(0))
	assert.Equal(t, 1.0, samplingRate(1.5))
	assert.Equal(t, 0.1, samplingRate(0.1))
}
