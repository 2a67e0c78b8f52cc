package queue

import (
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

func TestRetryTarget(t *testing.T) {
	tests := []struct {
		name        string
		headers     amqp091.Table
		wantQueue   string
		wantRetries int
	}{
		{"first failure", nil, "merge_queue_retry", 1},
		{"int32 header", amqp091.Table{"x-retries": int32(3)}, "merge_queue_retry", 4},
		{"int64 header", amqp091.Table{"x-retries": int64(9)}, "merge_queue_retry", 10},
		{"exhausted", amqp091.Table{"x-retries": int32(10)}, "merge_queue_dlq", 10},
		{"garbage header", amqp091.Table{"x-retries": "x"}, "merge_queue_retry", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, headers := retryTarget(MergeQueue, tt.headers)
			if queue != tt.wantQueue {
				t.Fatalf("queue = %s, want %s", queue, tt.wantQueue)
			}
			if got := retryCount(headers); got != tt.wantRetries {
				t.Fatalf("retries = %d, want %d", got, tt.wantRetries)
			}
		})
	}
}

func TestRetryTargetKeepsHeaders(t *testing.T) {
	in := amqp091.Table{"x-retries": int32(1), "x-origin": "api"}
	_, out := retryTarget(ExportQueue, in)
	if out["x-origin"] != "api" {
		t.Fatalf("headers not copied: %v", out)
	}
	if in["x-retries"] != int32(1) {
		t.Fatalf("input headers modified: %v", in)
	}
}
