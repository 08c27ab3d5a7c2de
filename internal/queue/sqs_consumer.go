// Package queue nhận yêu cầu lấy xe của khách hàng từ SQS.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/metrics"
	"valet_parking/internal/service"
)

// SQSAPI là phần của *sqs.Client mà consumer dùng.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type CarRequester interface {
	RequestCar(ctx context.Context, slotID string) (*domain.SlotRecord, error)
}

// errPermanent: message không bao giờ xử lý được, xoá khỏi queue.
var errPermanent = errors.New("message không hợp lệ")

type SQSConsumer struct {
	sqsClient  SQSAPI
	queueURL   string
	requester  CarRequester
	retryDelay time.Duration
	log        *logrus.Entry
}

func NewSQSConsumer(client SQSAPI, queueURL string, requester CarRequester) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		requester:  requester,
		retryDelay: 5 * time.Second,
		log:        logger.WithComponent("sqs_consumer").WithField("queue", queueURL),
	}
}

func (c *SQSConsumer) Start(ctx context.Context) error {
	c.log.Info("SQS Consumer bắt đầu lắng nghe queue")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("SQS Consumer: context cancelled, dừng")
			return nil
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).Warn("SQS Consumer: lỗi khi nhận message")
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, message := range result.Messages {
			if message.Body == nil {
				c.deleteMessage(ctx, message.ReceiptHandle)
				continue
			}
			err := c.handle(ctx, *message.Body)
			switch {
			case err == nil, errors.Is(err, errPermanent):
				c.deleteMessage(ctx, message.ReceiptHandle)
			default:
				c.log.WithError(err).WithField("message_id", deref(message.MessageId)).
					Warn("SQS Consumer: xử lý thất bại, message sẽ được xử lý lại sau visibility timeout")
			}
		}
	}
}

// handle trả về nil hoặc errPermanent khi message đã được xử lý xong (kể cả bị từ chối).
func (c *SQSConsumer) handle(ctx context.Context, body string) error {
	var ev domain.CarRequestEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		metrics.CarRequests.WithLabelValues("sqs", "invalid").Inc()
		c.log.WithError(err).Warn("SQS Consumer: body không phải JSON hợp lệ")
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	ev.SlotID = strings.TrimSpace(ev.SlotID)
	if !domain.IsValidSlotID(ev.SlotID) {
		metrics.CarRequests.WithLabelValues("sqs", "invalid").Inc()
		return fmt.Errorf("%w: slotId '%s'", errPermanent, ev.SlotID)
	}

	_, err := c.requester.RequestCar(ctx, ev.SlotID)
	switch {
	case err == nil:
		metrics.CarRequests.WithLabelValues("sqs", "ok").Inc()
		c.log.WithField("slot_id", ev.SlotID).Info("Đã nhận yêu cầu lấy xe")
		return nil
	case errors.Is(err, service.ErrUpstreamUnavailable):
		metrics.CarRequests.WithLabelValues("sqs", "retry").Inc()
		return err
	default:
		metrics.CarRequests.WithLabelValues("sqs", "rejected").Inc()
		c.log.WithError(err).WithField("slot_id", ev.SlotID).Info("Yêu cầu lấy xe bị từ chối")
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		c.log.Warn("SQS Consumer: receipt handle rỗng, không thể xoá message")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.log.WithError(err).Warn("SQS Consumer: lỗi khi xoá message")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
