package channel

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcdev12/reactionduel/go/internal/models"
)

const (
	// RecordStream is the JetStream stream holding completed match records.
	RecordStream = "DUEL_EVENTS"
	// RecordSubjects is the stream filter. It sits outside the duel.<room>
	// namespace so no room code can publish into the stream.
	RecordSubjects = "duel_records.>"
	RecordSubject  = "duel_records.completed"
)

// RecordPublisher publishes completed match records to JetStream so other
// services can replay them.
type RecordPublisher struct {
	js jetstream.JetStream
}

// NewRecordPublisher ensures the record stream exists on nc.
func NewRecordPublisher(ctx context.Context, nc *nats.Conn) (*RecordPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        RecordStream,
		Description: "Completed reaction duel matches",
		Subjects:    []string{RecordSubjects},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", RecordStream, err)
	}

	return &RecordPublisher{js: js}, nil
}

// Append publishes rec. It satisfies the same contract as the history store.
func (p *RecordPublisher) Append(ctx context.Context, rec models.MatchRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ack, err := p.js.Publish(ctx, RecordSubject, data, jetstream.WithMsgID(rec.ID))
	if err != nil {
		return fmt.Errorf("publish record %s: %w", rec.ID, err)
	}

	log.Debug().
		Str("record_id", rec.ID).
		Uint64("sequence", ack.Sequence).
		Msg("published match record")
	return nil
}

// encodeRecord marshals rec with the same field names as the stored history.
func encodeRecord(rec models.MatchRecord) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}
