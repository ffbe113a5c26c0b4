package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/bytedance/sonic"
)

type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaPublisher menunggu broker siap (maks `retries` kali, jeda 3 detik).
func NewKafkaPublisher(brokers []string, retries int) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: broker kosong")
	}
	if retries <= 0 {
		retries = 1
	}

	config := sarama.NewConfig()
	config.ClientID = "courseku-backend"
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= retries; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Println("✅ Kafka producer siap")
			return &KafkaPublisher{producer: producer}, nil
		}
		log.Printf("[WARN] menunggu Kafka... (%d/%d): %v", i, retries, err)
		if i < retries {
			time.Sleep(3 * time.Second)
		}
	}
	return nil, fmt.Errorf("kafka producer: %w", err)
}

// NewKafkaPublisherWithProducer: dipakai test dengan sarama/mocks.
func NewKafkaPublisherWithProducer(p sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) PublishEnrollmentCreated(ctx context.Context, e EnrollmentCreated) {
	p.send(ctx, TopicEnrollmentCreated, e.UserID.String(), e)
}

func (p *KafkaPublisher) PublishPaymentCompleted(ctx context.Context, e PaymentCompleted) {
	p.send(ctx, TopicPaymentCompleted, e.UserID.String(), e)
}

func (p *KafkaPublisher) send(ctx context.Context, topic, key string, event any) {
	if ctx.Err() != nil {
		log.Printf("[WARN] publish %s dibatalkan: %v", topic, ctx.Err())
		return
	}
	data, err := sonic.Marshal(event)
	if err != nil {
		log.Printf("[ERROR] marshal event %s: %v", topic, err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		log.Printf("[ERROR] ❌ gagal kirim %s ke Kafka: %v", topic, err)
		return
	}
	log.Printf("[INFO] 📤 %s terkirim (partition=%d offset=%d)", topic, partition, offset)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
