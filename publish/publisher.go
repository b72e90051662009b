// Package publish streams confirmed damage events to a Kafka topic so
// downstream mapping and maintenance systems receive them as they are
// found.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/roadsight/damagetrack"
)

// Config holds the Kafka connection settings
type Config struct {
	BootstrapServers string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	Topic            string
	CompressionType  string
	Acks             string
}

// ConfigFromEnv builds a Config from KAFKA_* environment variables,
// falling back to a local plaintext broker
func ConfigFromEnv() Config {
	return Config{
		BootstrapServers: getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		SecurityProtocol: getEnv("KAFKA_SECURITY_PROTOCOL", "PLAINTEXT"),
		SASLMechanism:    getEnv("KAFKA_SASL_MECHANISM", ""),
		SASLUsername:     getEnv("KAFKA_SASL_USERNAME", ""),
		SASLPassword:     getEnv("KAFKA_SASL_PASSWORD", ""),
		Topic:            getEnv("KAFKA_TOPIC", "road-damage-events"),
		CompressionType:  getEnv("KAFKA_COMPRESSION_TYPE", "snappy"),
		Acks:             getEnv("KAFKA_ACKS", "all"),
	}
}

func getEnv(key, defaultValue string) string {

	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Publisher sends damage events to Kafka with delivery tracking
type Publisher struct {
	producer     *kafka.Producer
	topic        string
	deliveryChan chan kafka.Event

	sent   atomic.Int64
	acked  atomic.Int64
	failed atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	maxRetries  int
	baseBackoff time.Duration
}

// NewPublisher connects to the Kafka cluster described by cfg
func NewPublisher(cfg Config) (*Publisher, error) {

	cm := &kafka.ConfigMap{
		"bootstrap.servers":  cfg.BootstrapServers,
		"security.protocol":  cfg.SecurityProtocol,
		"compression.type":   cfg.CompressionType,
		"acks":               cfg.Acks,
		"enable.idempotence": true,
		"request.timeout.ms": 30000,
	}

	if cfg.SASLMechanism != "" {
		cm.SetKey("sasl.mechanism", cfg.SASLMechanism)
		cm.SetKey("sasl.username", cfg.SASLUsername)
		cm.SetKey("sasl.password", cfg.SASLPassword)
	}

	p, err := kafka.NewProducer(cm)

	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	pub := &Publisher{
		producer:     p,
		topic:        cfg.Topic,
		deliveryChan: make(chan kafka.Event, 1024),
		ctx:          ctx,
		cancel:       cancel,
		maxRetries:   5,
		baseBackoff:  100 * time.Millisecond,
	}

	pub.wg.Add(1)
	go pub.handleDeliveryReports()

	return pub, nil
}

// handleDeliveryReports consumes delivery confirmations until Close
func (p *Publisher) handleDeliveryReports() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case e := <-p.deliveryChan:
			m, ok := e.(*kafka.Message)

			if !ok {
				continue
			}

			if m.TopicPartition.Error != nil {
				p.failed.Add(1)
				log.Printf("kafka delivery failed: %v", m.TopicPartition.Error)
			} else {
				p.acked.Add(1)
			}
		}
	}
}

// envelope is the wire format of a published damage event
type envelope struct {
	SessionID string                  `json:"session_id"`
	Event     damagetrack.DamageEvent `json:"event"`
	// PublishedAt is a unix millisecond timestamp
	PublishedAt int64 `json:"published_at"`
}

// Publish sends one confirmed damage event, retrying transient broker
// errors with exponential backoff.  Messages are keyed by track id so a
// track's events land on one partition in order.
func (p *Publisher) Publish(evt damagetrack.DamageEvent, sessionID string) error {

	payload, err := json.Marshal(envelope{
		SessionID:   sessionID,
		Event:       evt,
		PublishedAt: time.Now().UnixMilli(),
	})

	if err != nil {
		return fmt.Errorf("failed to encode damage event: %w", err)
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(strconv.Itoa(evt.TrackID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "session_id", Value: []byte(sessionID)},
			{Key: "damage_type", Value: []byte(evt.Label)},
		},
	}

	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {

		if attempt > 0 {
			time.Sleep(p.baseBackoff * time.Duration(1<<uint(attempt-1)))
		}

		err := p.producer.Produce(message, p.deliveryChan)

		if err == nil {
			p.sent.Add(1)
			return nil
		}

		lastErr = err

		if kafkaErr, ok := err.(kafka.Error); ok && !kafkaErr.IsRetriable() {
			p.failed.Add(1)
			return fmt.Errorf("non-retriable kafka error: %w", err)
		}
	}

	p.failed.Add(1)

	return fmt.Errorf("publish failed after %d retries: %w",
		p.maxRetries, lastErr)
}

// Flush blocks until pending messages are delivered or the timeout
// expires, returning the number still queued
func (p *Publisher) Flush(timeout time.Duration) int {
	return p.producer.Flush(int(timeout.Milliseconds()))
}

// Metrics returns the sent, acked, and failed message counts
func (p *Publisher) Metrics() (sent, acked, failed int64) {
	return p.sent.Load(), p.acked.Load(), p.failed.Load()
}

// Close flushes pending messages and shuts the producer down
func (p *Publisher) Close() {

	remaining := p.Flush(30 * time.Second)

	if remaining > 0 {
		log.Printf("kafka: %d messages unsent at close", remaining)
	}

	p.cancel()
	p.wg.Wait()
	p.producer.Close()
}
