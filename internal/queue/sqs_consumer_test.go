package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet_parking/internal/domain"
	"valet_parking/internal/service"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	deleted  []string
	received chan struct{}
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: b}, nil
	}
	f.mu.Unlock()
	select {
	case f.received <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeRequester struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
}

func (r *fakeRequester) RequestCar(_ context.Context, slotID string) (*domain.SlotRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, slotID)
	if err := r.errs[slotID]; err != nil {
		return nil, err
	}
	return &domain.SlotRecord{SlotID: slotID, IsOccupied: true, Status: domain.StatusRequested}, nil
}

func msg(handle, body string) types.Message {
	return types.Message{MessageId: aws.String("id-" + handle), ReceiptHandle: aws.String(handle), Body: aws.String(body)}
}

func TestSQSConsumer_ProcessesBatch(t *testing.T) {
	client := &fakeSQS{
		received: make(chan struct{}, 1),
		batches: [][]types.Message{{
			msg("ok", `{"slotId":"P0001"}`),
			msg("bad-json", `not json`),
			msg("bad-id", `{"slotId":"X1"}`),
			msg("rejected", `{"slotId":"P0002"}`),
			msg("retry", `{"slotId":"P0003"}`),
		}},
	}
	req := &fakeRequester{errs: map[string]error{
		"P0002": fmt.Errorf("%w: P0002", service.ErrSlotNotOccupied),
		"P0003": fmt.Errorf("%w: db down", service.ErrUpstreamUnavailable),
	}}
	c := NewSQSConsumer(client, "q", req)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-client.received:
	case <-time.After(time.Second):
		t.Fatal("consumer không xử lý batch")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"P0001", "P0002", "P0003"}, req.calls)
	assert.ElementsMatch(t, []string{"ok", "bad-json", "bad-id", "rejected"}, client.deleted)
}

func TestHandle_PermanentVsRetry(t *testing.T) {
	req := &fakeRequester{errs: map[string]error{"P0009": errors.New("boom")}}
	c := NewSQSConsumer(&fakeSQS{}, "q", req)

	assert.NoError(t, c.handle(context.Background(), `{"slotId":" P0001 "}`))
	assert.ErrorIs(t, c.handle(context.Background(), `{}`), errPermanent)
	assert.ErrorIs(t, c.handle(context.Background(), `{"slotId":"P0009"}`), errPermanent)
}

func TestHandle_UsesOnlySlotID(t *testing.T) {
	req := &fakeRequester{}
	c := NewSQSConsumer(&fakeSQS{}, "q", req)

	body := `{"slotId":"P0042","requestedAt":"2020-01-01T00:00:00Z","phone":"+84900000000"}`
	require.NoError(t, c.handle(context.Background(), body))
	assert.Equal(t, []string{"P0042"}, req.calls)
}
