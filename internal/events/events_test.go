package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	runAt := time.Date(2026, 5, 20, 7, 0, 0, 0, time.UTC)

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "matches.updated" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		val, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var ev MatchesUpdated
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.UserID != 42 || ev.Matches != 6 || !ev.RunAt.Equal(runAt) {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "")
	err := p.PublishMatchesUpdated(context.Background(), MatchesUpdated{UserID: 42, Matches: 6, RunAt: runAt})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "custom.topic")
	err := p.PublishMatchesUpdated(context.Background(), MatchesUpdated{UserID: 1, Matches: 0, RunAt: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Contains(t, err.Error(), "custom.topic")
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_RejectsInvalidEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)

	p := NewKafkaPublisherWithProducer(producer, "")
	err := p.PublishMatchesUpdated(context.Background(), MatchesUpdated{UserID: 0, Matches: 1, RunAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid match event")
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_CanceledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewKafkaPublisherWithProducer(producer, "")
	err := p.PublishMatchesUpdated(ctx, MatchesUpdated{UserID: 1, RunAt: time.Now()})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishMatchesUpdated(context.Background(), MatchesUpdated{}))
	assert.NoError(t, p.Close())
}
