package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	minStoreBytes   = 512 * 1024
	DefaultMaxTurns = 20
	keyPrefix       = "session:"
)

var ErrSessionIDRequired = errors.New("session id is required")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role      `msgpack:"role" json:"role"`
	Text string    `msgpack:"text" json:"text"`
	At   time.Time `msgpack:"at" json:"at"`
}

// History is the retained conversation of one sender, oldest turn first.
type History struct {
	ID    string `msgpack:"id" json:"id"`
	Turns []Turn `msgpack:"turns" json:"turns"`
}

type Config struct {
	SizeBytes int
	TTL       time.Duration
	MaxTurns  int
}

// Store keeps recent conversation turns in memory, keyed by sender. Idle
// sessions expire after the TTL and only the last MaxTurns turns are kept.
type Store struct {
	cache    *freecache.Cache
	ttl      time.Duration
	maxTurns int
	now      func() time.Time

	mu sync.Mutex
}

func NewStore(cfg Config) *Store {
	return newStore(cfg, nil)
}

func newStore(cfg Config, timer freecache.Timer) *Store {
	size := cfg.SizeBytes
	if size < minStoreBytes {
		size = minStoreBytes
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	var cache *freecache.Cache
	if timer != nil {
		cache = freecache.NewCacheCustomTimer(size, timer)
	} else {
		cache = freecache.NewCache(size)
	}
	return &Store{cache: cache, ttl: cfg.TTL, maxTurns: maxTurns, now: time.Now}
}

// Append records turn and refreshes the session's expiry.
func (s *Store) Append(id string, role Role, text string) (History, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return History{}, ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, _, err := s.load(id)
	if err != nil {
		return History{}, err
	}
	history.ID = id
	history.Turns = append(history.Turns, Turn{Role: role, Text: text, At: s.now().UTC()})
	if extra := len(history.Turns) - s.maxTurns; extra > 0 {
		history.Turns = append([]Turn(nil), history.Turns[extra:]...)
	}

	data, err := msgpack.Marshal(history)
	if err != nil {
		return History{}, fmt.Errorf("encode session %q: %w", id, err)
	}
	if err := s.cache.Set([]byte(keyPrefix+id), data, s.expireSeconds()); err != nil {
		return History{}, fmt.Errorf("store session %q: %w", id, err)
	}
	return history, nil
}

// Get returns the retained history of id and whether it exists.
func (s *Store) Get(id string) (History, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(strings.TrimSpace(id))
}

func (s *Store) Reset(id string) {
	s.cache.Del([]byte(keyPrefix + strings.TrimSpace(id)))
}

func (s *Store) Len() int64 {
	return s.cache.EntryCount()
}

func (s *Store) load(id string) (History, bool, error) {
	data, err := s.cache.Get([]byte(keyPrefix + id))
	if errors.Is(err, freecache.ErrNotFound) {
		return History{ID: id, Turns: []Turn{}}, false, nil
	}
	if err != nil {
		return History{}, false, fmt.Errorf("load session %q: %w", id, err)
	}
	var history History
	if err := msgpack.Unmarshal(data, &history); err != nil {
		return History{}, false, fmt.Errorf("decode session %q: %w", id, err)
	}
	return history, true, nil
}

func (s *Store) expireSeconds() int {
	if s.ttl <= 0 {
		return 0
	}
	seconds := int(s.ttl / time.Second)
	if seconds == 0 {
		return 1
	}
	return seconds
}
