package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer a Producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON documents to a single topic.
type Producer struct {
	w     MessageWriter
	topic string
	codec string
	stats *publishStats
}

// NewProducer validates cfg and opens a writer. A nil reg registers the
// producer collectors on the default registry.
func NewProducer(cfg WriterConfig, reg prometheus.Registerer) (*Producer, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return NewProducerWithWriter(cfg.newWriter(), cfg.Topic, cfg.Compression, reg), nil
}

func NewProducerWithWriter(w MessageWriter, topic, codec string, reg prometheus.Registerer) *Producer {
	return &Producer{w: w, topic: topic, codec: codec, stats: newPublishStats(reg)}
}

func (p *Producer) Topic() string { return p.topic }

// Publish sends value under key. Byte slices and strings are sent as is;
// anything else is JSON encoded.
func (p *Producer) Publish(ctx context.Context, key []byte, value interface{}) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}

	began := time.Now()
	err = p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: payload, Time: began})
	p.stats.record(p.topic, p.codec, len(payload), time.Since(began), err)
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes buffered messages.
func (p *Producer) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kafka encode: %w", err)
	}
	return b, nil
}

type publishStats struct {
	msgs    *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func newPublishStats(reg prometheus.Registerer) *publishStats {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &publishStats{
		msgs: shared(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diffplot_kafka_producer_messages_total",
			Help: "Messages published, by topic, codec and result.",
		}, []string{"topic", "compression", "result"})),
		bytes: shared(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diffplot_kafka_producer_bytes_total",
			Help: "Payload bytes published.",
		}, []string{"topic", "compression"})),
		latency: shared(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diffplot_kafka_producer_publish_seconds",
			Help:    "Time spent in WriteMessages.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"topic"})),
	}
}

// shared registers c, or returns the collector of the same shape that is
// already registered on reg.
func shared[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

func (s *publishStats) record(topic, codec string, n int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.msgs.WithLabelValues(topic, codec, result).Inc()
	s.bytes.WithLabelValues(topic, codec).Add(float64(n))
	s.latency.WithLabelValues(topic).Observe(took.Seconds())
}
