package kafka

import (
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers          = "localhost:9092"
	DefaultWorkflowDispatchTopic = "workflow_dispatch_requests"
	DefaultSuggestionTopic       = "task_suggestions"
)

func brokerList() []string {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	return strings.Split(kafkaBrokers, ",")
}

// NewDispatchProducer returns a writer for the workflow dispatch topic.
func NewDispatchProducer() *kafka.Writer {
	topic := os.Getenv("WORKFLOW_DISPATCH_TOPIC")
	if topic == "" {
		topic = DefaultWorkflowDispatchTopic
	}
	return newProducer(topic)
}

// NewSuggestionProducer returns a writer for the task suggestions topic.
func NewSuggestionProducer() *kafka.Writer {
	topic := os.Getenv("SUGGESTION_TOPIC")
	if topic == "" {
		topic = DefaultSuggestionTopic
	}
	return newProducer(topic)
}

func newProducer(topic string) *kafka.Writer {
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList(),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Planner Kafka producer configured for topic: %s", topic)
	return producer
}
