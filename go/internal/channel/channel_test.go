package channel

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcdev12/reactionduel/go/internal/models"
)

type recordingChannel struct {
	emitted  []string
	handlers map[string]int
	err      error
	closed   bool
}

func (r *recordingChannel) Emit(_ context.Context, event string, _ any) error {
	r.emitted = append(r.emitted, event)
	return r.err
}

func (r *recordingChannel) On(event string, _ Handler) {
	if r.handlers == nil {
		r.handlers = make(map[string]int)
	}
	r.handlers[event]++
}

func (r *recordingChannel) Disconnect() error {
	r.closed = true
	return r.err
}

func TestNoop(t *testing.T) {
	var ch Channel = Noop{}
	assert.NoError(t, ch.Emit(context.Background(), EventRoundStart, RoundStartPayload{}))
	ch.On(EventClick, func(Message) { t.Fatal("noop delivered a message") })
	assert.NoError(t, ch.Disconnect())
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingChannel{}
	b := &recordingChannel{err: boom}
	f := Fanout{a, b}

	err := f.Emit(context.Background(), EventClick, ClickPayload{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{EventClick}, a.emitted)
	assert.Equal(t, []string{EventClick}, b.emitted)

	f.On(EventClick, func(Message) {})
	assert.Equal(t, 1, a.handlers[EventClick])
	assert.Equal(t, 1, b.handlers[EventClick])

	assert.ErrorIs(t, f.Disconnect(), boom)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMessage_Decode(t *testing.T) {
	msg := NewMessage(EventClick, []byte(`{"side":"player2"}`), json.Unmarshal)
	var p ClickPayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, models.SidePlayer2, p.Side)

	assert.Error(t, Message{Event: EventClick}.Decode(&p))
}

func TestEnvelope_RoundTrip(t *testing.T) {
	ms := int64(150)
	data, err := encodeEnvelope("origin-1", EventRoundResult, RoundResultPayload{
		MatchID:        "m1",
		Round:          2,
		Winner:         models.SidePlayer1,
		ResponseTimeMs: &ms,
		Scores:         models.Scores{P1: 1, P2: 1},
	})
	require.NoError(t, err)

	env, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "origin-1", env.Origin)
	assert.Equal(t, EventRoundResult, env.Event)

	var p RoundResultPayload
	require.NoError(t, NewMessage(env.Event, env.Data, msgpack.Unmarshal).Decode(&p))
	assert.Equal(t, "m1", p.MatchID)
	assert.Equal(t, models.SidePlayer1, p.Winner)
	require.NotNil(t, p.ResponseTimeMs)
	assert.Equal(t, int64(150), *p.ResponseTimeMs)
	assert.Equal(t, models.Scores{P1: 1, P2: 1}, p.Scores)
}

func TestNATS_ReceiveDropsOwnMessages(t *testing.T) {
	c := &NATS{room: "abc", origin: "self"}
	var got []ClickPayload
	c.handlers.add(EventClick, func(m Message) {
		var p ClickPayload
		require.NoError(t, m.Decode(&p))
		got = append(got, p)
	})

	own, err := encodeEnvelope("self", EventClick, ClickPayload{Side: models.SidePlayer1})
	require.NoError(t, err)
	remote, err := encodeEnvelope("other", EventClick, ClickPayload{Side: models.SidePlayer2})
	require.NoError(t, err)

	c.receive(&nats.Msg{Subject: c.subject(EventClick), Data: own})
	c.receive(&nats.Msg{Subject: c.subject(EventClick), Data: remote})
	c.receive(&nats.Msg{Subject: c.subject(EventClick), Data: []byte("not msgpack")})

	require.Len(t, got, 1)
	assert.Equal(t, models.SidePlayer2, got[0].Side)
}

func TestSubject(t *testing.T) {
	c := NewNATS(nil, "room.one *")
	assert.Equal(t, "duel.room_one__.roundStart", c.subject(EventRoundStart))
}

func TestRoomSubjectsStayOutsideRecordStream(t *testing.T) {
	recordPrefix := strings.TrimSuffix(RecordSubjects, ">")
	require.True(t, strings.HasPrefix(RecordSubject, recordPrefix))

	for _, room := range []string{"records", "duel_records", "R1"} {
		c := NewNATS(nil, room)
		for _, event := range []string{EventRoundStart, EventClick, EventRoundResult, EventMatchComplete} {
			assert.False(t, strings.HasPrefix(c.subject(event), recordPrefix),
				"room %q event %q", room, event)
		}
	}
}

func TestEncodeRecord_UsesHistoryFieldNames(t *testing.T) {
	avg := int64(180)
	rec := models.MatchRecord{
		ID:                    "m1",
		Player1:               "Ann",
		Player2:               "Bob",
		Winner:                "Ann",
		RoundsPlayed:          2,
		Timestamp:             time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		AverageResponseTimeMs: &avg,
	}

	data, err := encodeRecord(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &fields))
	for _, key := range []string{"id", "player1", "player2", "winner", "roundsPlayed", "timestamp", "averageResponseTimeMs"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "ID")

	var back models.MatchRecord
	require.NoError(t, msgpack.Unmarshal(data, &back))
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, 2, back.RoundsPlayed)
	require.NotNil(t, back.AverageResponseTimeMs)
	assert.Equal(t, avg, *back.AverageResponseTimeMs)
	assert.True(t, rec.Timestamp.Equal(back.Timestamp))
}
