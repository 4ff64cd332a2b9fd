package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"bogus", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, JSONFormat, ParseFormat("JSON"))
	assert.Equal(t, TextFormat, ParseFormat("text"))
	assert.Equal(t, TextFormat, ParseFormat("xml"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(logrus.InfoLevel, JSONFormat, &buf)

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.WithField("plugin", "git").Warn("decorate failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "decorate failed", entry["msg"])
	assert.Equal(t, "git", entry["plugin"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(logrus.DebugLevel, TextFormat, &buf)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(logrus.InfoLevel, JSONFormat, &buf)

	id := WithRunID(logger)
	require.Len(t, id, 36)

	logger.Info("discovered plugins")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id, entry["run_id"])
	assert.NotEqual(t, id, WithRunID(NewLogger(logrus.InfoLevel, JSONFormat, &bytes.Buffer{})))
}

func TestMetrics_RecordCall(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordCall("git", "decorate", StatusOK, 3*time.Millisecond)
	m.RecordCall("git", "decorate", StatusOK, time.Millisecond)
	m.RecordCall("git", "decorate", StatusPanic, time.Millisecond)
	m.RecordLoad("ok")
	m.RecordEviction()
	m.SetHealthy(2)
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PluginCallsTotal.WithLabelValues("git", "decorate", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginCallsTotal.WithLabelValues("git", "decorate", StatusPanic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginLoadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginEvictions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PluginsHealthy))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldCacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FieldCacheMissesTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCall("x", "y", StatusOK, time.Second)
		m.RecordLoad("ok")
		m.RecordEviction()
		m.SetHealthy(1)
		m.RecordCacheHit()
		m.RecordCacheMiss()
	})
}

func TestWriteTextfile(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordLoad("load_failed")

	path := filepath.Join(t.TempDir(), "lsx.prom")
	require.NoError(t, WriteTextfile(path, registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lsx_plugin_loads_total{status="load_failed"} 1`)
}

func TestCapturePanic(t *testing.T) {
	assert.Nil(t, CapturePanic(nil))

	run := func() (err error) {
		defer func() {
			if perr := CapturePanic(recover()); perr != nil {
				err = perr
			}
		}()
		var m map[string]int
		m["boom"] = 1
		return nil
	}

	err := run()
	require.Error(t, err)

	var perr *PanicError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "panic:")
	assert.NotEmpty(t, perr.Stack)

	// Runtime faults are runtime.Error values and stay reachable.
	var rerr interface{ RuntimeError() }
	assert.True(t, errors.As(err, &rerr))
}

func TestCapturePanic_NonError(t *testing.T) {
	perr := CapturePanic("plain string")
	require.NotNil(t, perr)
	assert.Nil(t, perr.Unwrap())
	assert.Equal(t, "panic: plain string", perr.Error())
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(logrus.InfoLevel, JSONFormat, &buf)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer RecoverPanic(logger, "worker")
		panic("worker exploded")
	}()
	<-done

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "worker exploded")
}

func TestTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := Tracer(tp).Start(t.Context(), "plugin.get_name")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "plugin.get_name", spans[0].Name())
	assert.Equal(t, TracerName, spans[0].InstrumentationScope().Name)

	assert.NotNil(t, Tracer(nil))
}
