package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const SMSQueueName = "gatepass.sms"

var ErrSMSQueueNotConfigured = errors.New("rabbitmq not configured")

// SMSJob - сообщение для воркера, который отправляет SMS через провайдера
type SMSJob struct {
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	SubmissionID uint   `json:"submission_id"`
}

type SMSQueue interface {
	Enqueue(ctx context.Context, job SMSJob) error
}

// RabbitSMSQueue публикует задания в durable-очередь RabbitMQ
type RabbitSMSQueue struct {
	url string
}

func NewRabbitSMSQueue(url string) *RabbitSMSQueue {
	return &RabbitSMSQueue{url: url}
}

func (q *RabbitSMSQueue) Enqueue(ctx context.Context, job SMSJob) error {
	if q.url == "" {
		return ErrSMSQueueNotConfigured
	}

	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("ошибка подключения к RabbitMQ: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("ошибка открытия канала RabbitMQ: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(SMSQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("ошибка объявления очереди %s: %w", SMSQueueName, err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("ошибка сериализации SMS: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", SMSQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("ошибка публикации SMS: %w", err)
	}

	log.Printf("SMS для %s поставлено в очередь %s", job.Phone, SMSQueueName)
	return nil
}
