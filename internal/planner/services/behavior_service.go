package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"sentinel-planner/internal/planner/db"
	"sentinel-planner/internal/planner/engine"
	"sentinel-planner/internal/planner/events"
	"sentinel-planner/pkg/validation"
)

const (
	DefaultKafkaBrokers    = "localhost:9092"
	DefaultBehaviorTopic   = "behavior_events"
	DefaultBehaviorGroupID = "planner-behavior-group"

	// Minimum gap between two suggestions for the same behavior.
	resuggestCooldown = 7 * 24 * time.Hour
)

// BehaviorService consumes behavior observations from Kafka, folds them into
// the behavior store, and publishes workflow-backed task suggestions when a
// behavior crosses the suggestion threshold.
type BehaviorService struct {
	DB        *gorm.DB
	Reader    *kafka.Reader
	Detector  *engine.Detector
	Generator *engine.StepGenerator
	Producer  MessageWriter

	now func() time.Time
}

func NewBehaviorService(gormDB *gorm.DB, detector *engine.Detector, generator *engine.StepGenerator, suggestionProducer MessageWriter) *BehaviorService {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	behaviorTopic := os.Getenv("BEHAVIOR_TOPIC")
	if behaviorTopic == "" {
		behaviorTopic = DefaultBehaviorTopic
	}
	groupID := os.Getenv("BEHAVIOR_GROUP_ID")
	if groupID == "" {
		groupID = DefaultBehaviorGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(kafkaBrokers, ","), GroupID: groupID, Topic: behaviorTopic,
		MinBytes: 10e3, MaxBytes: 10e6, CommitInterval: time.Second, MaxWait: 3 * time.Second,
	})
	log.Printf("Planner Kafka consumer for behavior events configured for topic: %s, groupID: %s", behaviorTopic, groupID)
	return &BehaviorService{
		DB:        gormDB,
		Reader:    reader,
		Detector:  detector,
		Generator: generator,
		Producer:  suggestionProducer,
		now:       time.Now,
	}
}

func (s *BehaviorService) StartConsuming(ctx context.Context) {
	log.Println("BehaviorService starting to consume behavior events...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("BehaviorService: context cancelled, stopping consumer.")
				return
			default:
				readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				msg, err := s.Reader.ReadMessage(readCtx)
				cancel()

				if err == context.DeadlineExceeded {
					continue
				}
				if err == context.Canceled {
					log.Println("BehaviorService: Read context cancelled.")
					return
				}
				if err == io.EOF {
					log.Println("BehaviorService: Kafka reader closed (EOF), stopping consumption.")
					return
				}
				if err != nil {
					log.Printf("BehaviorService: error reading message: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}

				if err := validation.ValidateJSONWithSchema(events.BehaviorEventSchema, string(msg.Value)); err != nil {
					log.Printf("BehaviorService: behavior event failed schema validation: %v. Value: %s", err, string(msg.Value))
					continue
				}
				var payload events.BehaviorEventPayload
				if err := json.Unmarshal(msg.Value, &payload); err != nil {
					log.Printf("BehaviorService: error unmarshalling behavior event: %v. Value: %s", err, string(msg.Value))
					continue
				}
				if err := s.HandleEvent(ctx, payload); err != nil {
					log.Printf("BehaviorService: error handling behavior event for pattern %q: %v", payload.BehaviorPattern, err)
				}
			}
		}
	}()
}

// HandleEvent folds one observation into its BehaviorRecord and, when the
// suggestion rule fires and the cooldown allows, publishes a suggestion with
// an attached workflow.
func (s *BehaviorService) HandleEvent(ctx context.Context, payload events.BehaviorEventPayload) error {
	var record db.BehaviorRecord
	err := s.DB.Where("pattern = ?", payload.BehaviorPattern).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = db.BehaviorRecord{Pattern: payload.BehaviorPattern}
	} else if err != nil {
		return err
	}

	record.Frequency++
	if payload.Executed {
		executedAt := s.now()
		if payload.ObservedAt != "" {
			if parsed, parseErr := time.Parse(time.RFC3339, payload.ObservedAt); parseErr == nil {
				executedAt = parsed
			}
		}
		record.LastExecuted = &executedAt
	}
	if err := s.DB.Save(&record).Error; err != nil {
		return err
	}

	suggestion := s.Detector.SuggestFromBehavior(record.Pattern, record.Frequency, record.LastExecuted)
	if suggestion == nil {
		return nil
	}
	if record.LastSuggested != nil && s.now().Sub(*record.LastSuggested) < resuggestCooldown {
		return nil
	}

	suggestion.Workflow = s.Generator.Generate(suggestion.TaskName, "", nil)
	if err := s.publishSuggestion(ctx, suggestion); err != nil {
		return err
	}

	suggestedAt := s.now()
	record.LastSuggested = &suggestedAt
	return s.DB.Save(&record).Error
}

func (s *BehaviorService) publishSuggestion(ctx context.Context, suggestion *engine.BehaviorSuggestion) error {
	payloadBytes, err := json.Marshal(events.TaskSuggestionPayload{Suggestion: suggestion})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.Producer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(suggestion.BehaviorPattern),
		Value: payloadBytes,
	}); err != nil {
		return err
	}
	log.Printf("BehaviorService: published suggestion %q (frequency %d)", suggestion.TaskName, suggestion.Frequency)
	return nil
}

func (s *BehaviorService) Close() {
	if s.Reader != nil {
		log.Println("BehaviorService: Closing Kafka reader.")
		s.Reader.Close()
	}
}
