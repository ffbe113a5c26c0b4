package events

import (
	"context"
	"log"
)

// LogPublisher dipakai kalau KAFKA_BROKERS kosong (dev/local).
type LogPublisher struct{}

func (LogPublisher) PublishEnrollmentCreated(_ context.Context, e EnrollmentCreated) {
	log.Printf("[INFO] 📣 %s user=%s course=%s source=%s", TopicEnrollmentCreated, e.UserID, e.CourseID, e.Source)
}

func (LogPublisher) PublishPaymentCompleted(_ context.Context, e PaymentCompleted) {
	log.Printf("[INFO] 📣 %s ref=%s amount=%s %s", TopicPaymentCompleted, e.Reference, e.Amount, e.Currency)
}

func (LogPublisher) Close() error { return nil }

var _ Publisher = LogPublisher{}
