package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
)

const (
	stateDirMode    = 0o700
	stateFileMode   = 0o600
	tempFilePattern = ".state-*.json.tmp"
)

// Store keeps every document in memory and rewrites the whole document on
// each mutation. One Store per directory per process; there is no
// cross-process locking.
type Store struct {
	root string
	mu   sync.RWMutex

	waiting      map[string]bool
	counts       map[string]int
	fingerprints map[string]map[string]string
	pending      map[string]pendingSchema
}

var _ ports.StateStore = (*Store)(nil)

func Open(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("state directory is empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve state directory: %w", err)
	}
	absRoot = filepath.Clean(absRoot)

	if err := os.MkdirAll(filepath.Join(absRoot, fingerprintDirName), stateDirMode); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s := &Store{
		root:         absRoot,
		waiting:      map[string]bool{},
		counts:       map[string]int{},
		fingerprints: map[string]map[string]string{},
		pending:      map[string]pendingSchema{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(waitingFileName, &s.waiting); err != nil {
		return nil, err
	}
	if err := s.load(countsFileName, &s.counts); err != nil {
		return nil, err
	}
	if err := s.load(fingerprintsFileName, &s.fingerprints); err != nil {
		return nil, err
	}
	if err := s.load(pendingFileName, &s.pending); err != nil {
		return nil, err
	}
	s.ensureMaps()

	return s, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) LastEventCount(ctx context.Context, buyer domain.BuyerID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.counts[string(buyer)], nil
}

func (s *Store) SetLastEventCount(ctx context.Context, buyer domain.BuyerID, count int) error {
	if err := s.checkWrite(ctx, buyer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(buyer)
	prev, had := s.counts[key]
	if had && count <= prev {
		return nil
	}

	s.counts[key] = count
	if err := s.write(countsFileName, s.counts); err != nil {
		restore(s.counts, key, prev, had)
		return fmt.Errorf("persist event count for %q: %w", buyer, err)
	}

	return nil
}

func (s *Store) Waiting(ctx context.Context, buyer domain.BuyerID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.waiting[string(buyer)], nil
}

func (s *Store) SetWaiting(ctx context.Context, buyer domain.BuyerID, waiting bool) error {
	if err := s.checkWrite(ctx, buyer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(buyer)
	prev, had := s.waiting[key]
	s.waiting[key] = waiting
	if err := s.write(waitingFileName, s.waiting); err != nil {
		restore(s.waiting, key, prev, had)
		return fmt.Errorf("persist waiting flag for %q: %w", buyer, err)
	}

	return nil
}

func (s *Store) Fingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if fp, ok := s.fingerprints[string(buyer)][string(kind)]; ok {
		return fp, true, nil
	}

	// Older deployments only kept the per-buyer text file.
	data, err := os.ReadFile(s.fingerprintPath(buyer, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read fingerprint file: %w", err)
	}

	return strings.TrimSpace(string(data)), true, nil
}

func (s *Store) SetFingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind, fingerprint string) error {
	if err := s.checkWrite(ctx, buyer); err != nil {
		return err
	}
	if strings.TrimSpace(string(kind)) == "" {
		return errors.New("fingerprint kind is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(buyer)
	prev, had := s.fingerprints[key]
	next := make(map[string]string, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[string(kind)] = fingerprint

	s.fingerprints[key] = next
	if err := s.write(fingerprintsFileName, s.fingerprints); err != nil {
		restore(s.fingerprints, key, prev, had)
		return fmt.Errorf("persist fingerprint for %q: %w", buyer, err)
	}

	if err := writeFileAtomic(s.fingerprintPath(buyer, kind), []byte(fingerprint)); err != nil {
		return fmt.Errorf("write fingerprint file for %q: %w", buyer, err)
	}

	return nil
}

func (s *Store) PendingOrder(ctx context.Context, buyer domain.BuyerID) (domain.PendingOrder, error) {
	if err := ctx.Err(); err != nil {
		return domain.PendingOrder{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fromPendingSchema(s.pending[string(buyer)]), nil
}

func (s *Store) SetPendingOrder(ctx context.Context, buyer domain.BuyerID, order domain.PendingOrder) error {
	if err := s.checkWrite(ctx, buyer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(buyer)
	prev, had := s.pending[key]
	if order.IsZero() {
		delete(s.pending, key)
	} else {
		s.pending[key] = toPendingSchema(order)
	}

	if err := s.write(pendingFileName, s.pending); err != nil {
		restore(s.pending, key, prev, had)
		return fmt.Errorf("persist pending order for %q: %w", buyer, err)
	}

	return nil
}

func (s *Store) Snapshot(ctx context.Context) ([]domain.BuyerState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for k := range s.waiting {
		seen[k] = struct{}{}
	}
	for k := range s.counts {
		seen[k] = struct{}{}
	}
	for k := range s.fingerprints {
		seen[k] = struct{}{}
	}
	for k := range s.pending {
		seen[k] = struct{}{}
	}

	buyers := make([]string, 0, len(seen))
	for k := range seen {
		buyers = append(buyers, k)
	}
	sort.Strings(buyers)

	states := make([]domain.BuyerState, 0, len(buyers))
	for _, b := range buyers {
		fps := make(map[domain.FingerprintKind]string, len(s.fingerprints[b]))
		for kind, fp := range s.fingerprints[b] {
			fps[domain.FingerprintKind(kind)] = fp
		}
		states = append(states, domain.BuyerState{
			Buyer:        domain.BuyerID(b),
			Waiting:      s.waiting[b],
			EventCount:   s.counts[b],
			Fingerprints: fps,
			PendingOrder: fromPendingSchema(s.pending[b]),
		})
	}

	return states, nil
}

func (s *Store) checkWrite(ctx context.Context, buyer domain.BuyerID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return buyer.Validate()
}

func (s *Store) fingerprintPath(buyer domain.BuyerID, kind domain.FingerprintKind) string {
	name := fmt.Sprintf("last_%s_message_id_%s.txt", url.PathEscape(string(kind)), url.PathEscape(string(buyer)))
	return filepath.Join(s.root, fingerprintDirName, name)
}

func (s *Store) load(name string, into any) error {
	path := filepath.Join(s.root, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := writeFileAtomic(path, []byte("{}")); err != nil {
			return fmt.Errorf("initialize %s: %w", name, err)
		}
		return nil
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	return nil
}

func (s *Store) write(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	return writeFileAtomic(filepath.Join(s.root, name), data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	return nil
}

func restore[V any](m map[string]V, key string, prev V, had bool) {
	if had {
		m[key] = prev
		return
	}
	delete(m, key)
}

// ensureMaps guards against documents that decode to null.
func (s *Store) ensureMaps() {
	if s.waiting == nil {
		s.waiting = map[string]bool{}
	}
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	if s.fingerprints == nil {
		s.fingerprints = map[string]map[string]string{}
	}
	if s.pending == nil {
		s.pending = map[string]pendingSchema{}
	}
}
