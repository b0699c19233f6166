package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitBrokers(" kafka-1:9092, ,kafka-2:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, topic: "clinic.appointments.v1", logger: logging.Discard()}

	evt := NewAppointmentEvent(TypeAppointmentCreated, uuid.New())
	evt.Date, evt.Time, evt.Status = "2024-06-10", "10:00", "pending"
	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, evt.AppointmentID.String(), string(msg.Key))
	assert.Equal(t, evt.EventID, headerValue(msg.Headers, "event_id"))
	assert.Equal(t, TypeAppointmentCreated, headerValue(msg.Headers, "event_type"))

	var decoded AppointmentEventV1
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "2024-06-10", decoded.Date)
	assert.Equal(t, "pending", decoded.Status)
}

func TestKafkaPublisherPropagatesTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, topic: "t", logger: logging.Discard()}
	require.NoError(t, p.Publish(ctx, NewAppointmentEvent(TypeReminderSent, uuid.New())))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headerValue(w.msgs[0].Headers, "traceparent"))

	extracted := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), &headerCarrier{headers: w.msgs[0].Headers}))
	assert.Equal(t, traceID, extracted.TraceID())
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("leader not available")
	p := &KafkaPublisher{writer: &captureWriter{err: boom}, topic: "t", logger: logging.Discard()}

	err := p.Publish(context.Background(), NewAppointmentEvent(TypeAppointmentCreated, uuid.New()))
	assert.ErrorIs(t, err, boom)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), AppointmentEventV1{}))
}
