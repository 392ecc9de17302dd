package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gumnutdev/quick-notes/domain/events"
)

type fakeEventBridge struct {
	calls  []*eventbridge.PutEventsInput
	failAt int
	err    error
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{Entries: make([]types.PutEventsResultEntry, len(in.Entries))}
	if f.failAt > 0 && f.failAt <= len(in.Entries) {
		out.FailedEntryCount = 1
		out.Entries[f.failAt-1].ErrorCode = aws.String("InternalFailure")
	}
	return out, nil
}

var at = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestEventBridgePublisher_Batches(t *testing.T) {
	fake := &fakeEventBridge{}
	p := NewEventBridgePublisher(fake, "notes-bus", zap.NewNop())
	var batch []events.DomainEvent
	for i := 0; i < 23; i++ {
		batch = append(batch, events.NewNoteDeleted(fmt.Sprintf("n%d", i), at))
	}

	require.NoError(t, p.PublishBatch(context.Background(), batch))

	require.Len(t, fake.calls, 3)
	assert.Len(t, fake.calls[0].Entries, 10)
	assert.Len(t, fake.calls[2].Entries, 3)

	entry := fake.calls[0].Entries[0]
	assert.Equal(t, "notes-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeNoteDeleted, aws.ToString(entry.DetailType))

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "n0", detail["note_id"])
}

func TestEventBridgePublisher_Failures(t *testing.T) {
	t.Run("failed entry", func(t *testing.T) {
		p := NewEventBridgePublisher(&fakeEventBridge{failAt: 1}, "bus", zap.NewNop())
		err := p.Publish(context.Background(), events.NewNotesLinked("a", "b", at))
		assert.ErrorContains(t, err, "1 events failed")
	})

	t.Run("transport error", func(t *testing.T) {
		p := NewEventBridgePublisher(&fakeEventBridge{err: errors.New("timeout")}, "bus", zap.NewNop())
		err := p.Publish(context.Background(), events.NewNotesLinked("a", "b", at))
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("empty batch", func(t *testing.T) {
		fake := &fakeEventBridge{}
		p := NewEventBridgePublisher(fake, "bus", zap.NewNop())
		assert.NoError(t, p.PublishBatch(context.Background(), nil))
		assert.Empty(t, fake.calls)
	})
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewNoteSaved("a", "Title", true, []string{"b"}, at),
		events.NewNoteDeleted("b", at),
	}))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, events.TypeNoteSaved, logs.All()[0].ContextMap()["type"])
	assert.Equal(t, "b", logs.All()[1].ContextMap()["aggregate_id"])
}
