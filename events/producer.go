package events

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"storyreel/config"
	"storyreel/types"
)

// Producer publishes pipeline stage events to a Kafka topic so other systems
// can react to finished jobs. Entirely optional: a nil *Producer is safe to
// call and does nothing.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewProducer creates a Producer from the configuration. Returns nil when no
// brokers are configured.
func NewProducer(cfg config.Config) (*Producer, error) {
	if cfg.KafkaBrokers == "" {
		return nil, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(cfg.KafkaBrokers, ","), saramaConfig)
	if err != nil {
		return nil, err
	}

	p := &Producer{producer: producer, topic: cfg.KafkaTopic}

	go func() {
		for err := range producer.Errors() {
			log.Printf("kafka publish error: %v", err)
		}
	}()

	log.Printf("Kafka producer started (topic: %s)", cfg.KafkaTopic)
	return p, nil
}

// Publish emits one stage event. Never blocks the pipeline: the send is
// asynchronous and failures only log.
func (p *Producer) Publish(event types.StageEvent) {
	if p == nil {
		return
	}
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal stage event: %v", err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.JobID),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
