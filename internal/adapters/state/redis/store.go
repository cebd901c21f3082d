package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/redis/go-redis/v9"
)

const fieldSeparator = "|"

// setMaxScript raises a hash field to ARGV[2] only if it is larger.
var setMaxScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local n = tonumber(ARGV[2])
if n > cur then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
return 0
`)

type Store struct {
	rdb    redis.Cmdable
	prefix string
}

var _ ports.StateStore = (*Store)(nil)

func NewStore(rdb redis.Cmdable, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) waitingKey() string      { return s.prefix + ":waiting" }
func (s *Store) countsKey() string       { return s.prefix + ":counts" }
func (s *Store) fingerprintsKey() string { return s.prefix + ":fingerprints" }
func (s *Store) pendingKey() string      { return s.prefix + ":pending" }

func fingerprintField(buyer domain.BuyerID, kind domain.FingerprintKind) string {
	return string(buyer) + fieldSeparator + string(kind)
}

func (s *Store) LastEventCount(ctx context.Context, buyer domain.BuyerID) (int, error) {
	raw, err := s.rdb.HGet(ctx, s.countsKey(), string(buyer)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get event count: %w", err)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("decode event count %q: %w", raw, err)
	}

	return n, nil
}

func (s *Store) SetLastEventCount(ctx context.Context, buyer domain.BuyerID, count int) error {
	if err := buyer.Validate(); err != nil {
		return err
	}

	if err := setMaxScript.Run(ctx, s.rdb, []string{s.countsKey()}, string(buyer), count).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set event count: %w", err)
	}

	return nil
}

func (s *Store) Waiting(ctx context.Context, buyer domain.BuyerID) (bool, error) {
	raw, err := s.rdb.HGet(ctx, s.waitingKey(), string(buyer)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get waiting flag: %w", err)
	}

	return raw == "1", nil
}

func (s *Store) SetWaiting(ctx context.Context, buyer domain.BuyerID, waiting bool) error {
	if err := buyer.Validate(); err != nil {
		return err
	}

	value := "0"
	if waiting {
		value = "1"
	}

	if err := s.rdb.HSet(ctx, s.waitingKey(), string(buyer), value).Err(); err != nil {
		return fmt.Errorf("redis set waiting flag: %w", err)
	}

	return nil
}

func (s *Store) Fingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind) (string, bool, error) {
	fp, err := s.rdb.HGet(ctx, s.fingerprintsKey(), fingerprintField(buyer, kind)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get fingerprint: %w", err)
	}

	return fp, true, nil
}

func (s *Store) SetFingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind, fingerprint string) error {
	if err := buyer.Validate(); err != nil {
		return err
	}

	if err := s.rdb.HSet(ctx, s.fingerprintsKey(), fingerprintField(buyer, kind), fingerprint).Err(); err != nil {
		return fmt.Errorf("redis set fingerprint: %w", err)
	}

	return nil
}

type pendingValue struct {
	PaymentPending bool `json:"payment_pending"`
	Quantity       int  `json:"quantity"`
	QuantityEvent  int  `json:"quantity_event,omitempty"`
}

func (s *Store) PendingOrder(ctx context.Context, buyer domain.BuyerID) (domain.PendingOrder, error) {
	raw, err := s.rdb.HGet(ctx, s.pendingKey(), string(buyer)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PendingOrder{}, nil
		}
		return domain.PendingOrder{}, fmt.Errorf("redis get pending order: %w", err)
	}

	return decodePending(raw)
}

func (s *Store) SetPendingOrder(ctx context.Context, buyer domain.BuyerID, order domain.PendingOrder) error {
	if err := buyer.Validate(); err != nil {
		return err
	}

	if order.IsZero() {
		if err := s.rdb.HDel(ctx, s.pendingKey(), string(buyer)).Err(); err != nil {
			return fmt.Errorf("redis clear pending order: %w", err)
		}
		return nil
	}

	b, err := json.Marshal(pendingValue{
		PaymentPending: order.PaymentPending,
		Quantity:       order.Quantity,
		QuantityEvent:  order.QuantityEvent,
	})
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}

	if err := s.rdb.HSet(ctx, s.pendingKey(), string(buyer), b).Err(); err != nil {
		return fmt.Errorf("redis set pending order: %w", err)
	}

	return nil
}

func (s *Store) Snapshot(ctx context.Context) ([]domain.BuyerState, error) {
	waiting, err := s.rdb.HGetAll(ctx, s.waitingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load waiting flags: %w", err)
	}
	counts, err := s.rdb.HGetAll(ctx, s.countsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load event counts: %w", err)
	}
	fingerprints, err := s.rdb.HGetAll(ctx, s.fingerprintsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load fingerprints: %w", err)
	}
	pending, err := s.rdb.HGetAll(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load pending orders: %w", err)
	}

	return buildSnapshot(waiting, counts, fingerprints, pending)
}

func buildSnapshot(waiting, counts, fingerprints, pending map[string]string) ([]domain.BuyerState, error) {
	states := map[string]*domain.BuyerState{}
	get := func(buyer string) *domain.BuyerState {
		if st, ok := states[buyer]; ok {
			return st
		}
		st := &domain.BuyerState{Buyer: domain.BuyerID(buyer), Fingerprints: map[domain.FingerprintKind]string{}}
		states[buyer] = st
		return st
	}

	for buyer, raw := range waiting {
		get(buyer).Waiting = raw == "1"
	}
	for buyer, raw := range counts {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode event count for %q: %w", buyer, err)
		}
		get(buyer).EventCount = n
	}
	for field, fp := range fingerprints {
		idx := strings.LastIndex(field, fieldSeparator)
		if idx < 0 {
			continue
		}
		get(field[:idx]).Fingerprints[domain.FingerprintKind(field[idx+1:])] = fp
	}
	for buyer, raw := range pending {
		order, err := decodePending(raw)
		if err != nil {
			return nil, err
		}
		get(buyer).PendingOrder = order
	}

	out := make([]domain.BuyerState, 0, len(states))
	for _, st := range states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Buyer < out[j].Buyer })

	return out, nil
}

func decodePending(raw string) (domain.PendingOrder, error) {
	var v pendingValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.PendingOrder{}, fmt.Errorf("decode pending order: %w", err)
	}

	return domain.PendingOrder{PaymentPending: v.PaymentPending, Quantity: v.Quantity, QuantityEvent: v.QuantityEvent}, nil
}
