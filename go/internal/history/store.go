package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

// DefaultKey is the key the match history is stored under.
const DefaultKey = "reactionDuelHistory"

// Store is the append-only match history. It reads the backend once and
// serves later reads from memory; every Append rewrites the full list.
type Store struct {
	kv      KV
	key     string
	metrics metrics.Collector

	mu      sync.Mutex
	loaded  bool
	records []models.MatchRecord
}

// NewStore wraps kv. An empty key uses DefaultKey and a nil collector records nothing.
func NewStore(kv KV, key string, m metrics.Collector) *Store {
	if key == "" {
		key = DefaultKey
	}
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Store{kv: kv, key: key, metrics: m}
}

// Get returns the stored records oldest first. It never fails: an absent or
// unreadable history is returned as empty.
func (s *Store) Get(ctx context.Context) []models.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("match history unavailable, using empty history")
		return []models.MatchRecord{}
	}
	return append([]models.MatchRecord{}, s.records...)
}

// Append adds rec to the end of the history and writes it back.
func (s *Store) Append(ctx context.Context, rec models.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A backend that cannot be read must not be overwritten
	if err := s.loadLocked(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	next := make([]models.MatchRecord, 0, len(s.records)+1)
	next = append(next, s.records...)
	next = append(next, rec)

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	s.records = next
	log.Debug().Str("record_id", rec.ID).Int("records", len(next)).Msg("match record stored")
	return nil
}

// loadLocked reads the backend on first use. Corrupt data is recovered
// from; only backend failures are returned.
func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		s.records = nil
	case err != nil:
		return err
	default:
		records, dropped, decodeErr := Decode(data)
		if decodeErr != nil {
			log.Warn().Err(decodeErr).Str("key", s.key).Msg("match history is not a list, starting empty")
		}
		if dropped > 0 {
			s.metrics.HistoryRecordsDropped(dropped)
			log.Warn().Int("dropped", dropped).Int("kept", len(records)).Str("key", s.key).Msg("discarded unreadable match records")
		}
		s.records = records
	}

	s.loaded = true
	return nil
}

// Decode parses a serialized history. Elements that cannot be read as a
// MatchRecord are skipped and counted in dropped. err is set only when data
// is not a JSON array at all, in which case no records are returned.
func Decode(data []byte) (records []models.MatchRecord, dropped int, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("unmarshal history: %w", err)
	}

	records = make([]models.MatchRecord, 0, len(raw))
	for _, elem := range raw {
		var rec models.MatchRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}
