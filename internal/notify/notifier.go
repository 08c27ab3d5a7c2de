// Package notify gửi thông báo cho khách hàng (số điện thoại, nội dung).
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
)

// Notifier gửi một thông báo. Lỗi chỉ được ghi log bởi Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, intent domain.NotificationIntent) error
}

// SQSSender là phần của *sqs.Client mà SQSNotifier cần.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier đẩy thông báo lên queue, một worker SMS bên ngoài sẽ tiêu thụ.
type SQSNotifier struct {
	client   SQSSender
	queueURL string
}

func NewSQSNotifier(client SQSSender, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

func (n *SQSNotifier) Notify(ctx context.Context, intent domain.NotificationIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("SQSNotifier.Notify: %w", err)
	}
	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"slotId": {DataType: aws.String("String"), StringValue: aws.String(intent.SlotID)},
		},
	})
	if err != nil {
		return fmt.Errorf("SQSNotifier.Notify: %w", err)
	}
	return nil
}

// LogNotifier chỉ ghi log, dùng khi chưa cấu hình queue.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, intent domain.NotificationIntent) error {
	n.log.WithFields(logrus.Fields{
		"slot_id": intent.SlotID,
		"phone":   maskPhone(intent.PhoneNumber),
	}).Infof("SMS (giả lập): %s", intent.Message)
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}
