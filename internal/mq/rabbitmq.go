package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ezasdf/users-api/config"
)

var errRabbitClosed = errors.New("rabbitmq delivery channel closed")

// RabbitMQClient carries account events over a queue per channel on the
// default exchange. Durable queues get persistent messages.
type RabbitMQClient struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	durable    bool
	autoDelete bool
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}

	return &RabbitMQClient{
		conn:       conn,
		ch:         ch,
		durable:    cfg.QueueDurable,
		autoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish sends data to the queue named channel and returns the generated
// message id. The content_type attribute becomes the AMQP content type.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if err := r.ensureQueue(channel); err != nil {
		return "", err
	}

	msg := r.publishing(data, attrs)
	if err := r.ch.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", err
	}
	return msg.MessageId, nil
}

// Subscribe hands each delivery to handler until ctx is done. A handler
// error requeues the message once; a second failure drops it.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if err := r.ensureQueue(channel); err != nil {
		return err
	}

	tag := "usersapi-" + newMessageID()
	deliveries, err := r.ch.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() { _ = r.ch.Cancel(tag, false) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errRabbitClosed
			}
			if err := handler(ctx, deliveryMessage(d)); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) ensureQueue(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("rabbitmq channel is required")
	}
	_, err := r.ch.QueueDeclare(name, r.durable, r.autoDelete, false, false, nil)
	return err
}

func (r *RabbitMQClient) publishing(data []byte, attrs map[string]string) amqp.Publishing {
	msg := amqp.Publishing{
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Transient,
		MessageId:    newMessageID(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{},
		Body:         data,
	}
	if r.durable {
		msg.DeliveryMode = amqp.Persistent
	}
	for key, value := range attrs {
		if key == attrContentType {
			msg.ContentType = value
			continue
		}
		msg.Headers[key] = value
	}
	return msg
}

func deliveryMessage(d amqp.Delivery) Message {
	attrs := headersToAttributes(d.Headers)
	if d.ContentType != "" {
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[attrContentType] = d.ContentType
	}
	return Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch v := value.(type) {
		case string:
			attrs[key] = v
		case []byte:
			attrs[key] = string(v)
		default:
			attrs[key] = fmt.Sprint(v)
		}
	}
	return attrs
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
