// Package redisstore persists the anamnesis workflow state in Redis under the
// keys currentUser, notifications and anamneses, each holding a JSON document.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/internal/workflow"
	"github.com/clinica/intranet-api/pkg/security"
)

const (
	KeyCurrentUser   = "currentUser"
	KeyNotifications = "notifications"
	KeyAnamneses     = "anamneses"

	maxTxRetries = 5
)

// ErrCorruptDocument is returned by Upsert when the stored document cannot be
// parsed. The document is left untouched.
var ErrCorruptDocument = errors.New("corrupt workflow document")

// NotificationChannel is the unprefixed pub/sub channel for notifications
// targeting role.
func NotificationChannel(role workflow.Role) string {
	return "notifications:" + string(role)
}

type Config struct {
	URL          string
	Prefix       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	// Encryptor, when set, seals every stored document and published message.
	Encryptor security.Encryptor
}

type Store struct {
	client *redis.Client
	prefix string
	enc    security.Encryptor
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, cfg.Prefix, cfg.Encryptor), nil
}

// New wraps an existing client. enc may be nil.
func New(client *redis.Client, prefix string, enc security.Encryptor) *Store {
	return &Store{client: client, prefix: prefix, enc: enc}
}

func (s *Store) seal(data []byte, where string) ([]byte, error) {
	if s.enc == nil {
		return data, nil
	}
	return s.enc.Encrypt(data, []byte(where))
}

func (s *Store) open(data []byte, where string) ([]byte, error) {
	if s.enc == nil {
		return data, nil
	}
	plain, err := s.enc.Decrypt(data, []byte(where))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", where, err)
	}
	return plain, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) channel(role workflow.Role) string {
	return s.prefix + NotificationChannel(role)
}

func (s *Store) Records() *Repository[int64, workflow.Record] {
	return &Repository[int64, workflow.Record]{
		store: s,
		key:   s.key(KeyAnamneses),
		keyOf: workflow.RecordKey,
	}
}

// Notifications publishes every newly inserted notification on its target
// role's channel.
func (s *Store) Notifications() *Repository[string, workflow.Notification] {
	return &Repository[string, workflow.Notification]{
		store: s,
		key:   s.key(KeyNotifications),
		keyOf: workflow.NotificationKey,
		channel: func(n workflow.Notification) string {
			return s.channel(n.TargetRole)
		},
	}
}

func (s *Store) Session() *Session {
	return &Session{store: s, key: s.key(KeyCurrentUser)}
}

// Subscribe streams notifications published for role until ctx is done.
func (s *Store) Subscribe(ctx context.Context, role workflow.Role) (<-chan workflow.Notification, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(role))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan workflow.Notification, 100)
	go func() {
		defer func() {
			pubsub.Close()
			close(out)
		}()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				payload, err := s.open([]byte(msg.Payload), msg.Channel)
				if err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping unreadable notification")
					continue
				}
				var n workflow.Notification
				if err := json.Unmarshal(payload, &n); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed notification")
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Repository keeps all values of one kind in a single JSON array, newest
// first. Upserts use WATCH/MULTI so concurrent writers never lose updates.
type Repository[K comparable, V any] struct {
	store   *Store
	key     string
	keyOf   func(V) K
	channel func(V) string
}

var _ workflow.RecordRepository = (*Repository[int64, workflow.Record])(nil)

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads the document. A corrupt document reads as empty unless strict is
// set, in which case ErrCorruptDocument is returned.
func (r *Repository[K, V]) load(ctx context.Context, c getter, strict bool) ([]V, error) {
	raw, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []V{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.key, err)
	}
	if raw, err = r.store.open(raw, r.key); err != nil {
		return nil, err
	}

	var items []V
	if err := json.Unmarshal(raw, &items); err != nil {
		if strict {
			return nil, fmt.Errorf("%w %s: %v", ErrCorruptDocument, r.key, err)
		}
		log.Warn().Err(err).Str("key", r.key).Msg("ignoring malformed workflow document")
		return []V{}, nil
	}
	return items, nil
}

func (r *Repository[K, V]) All(ctx context.Context) ([]V, error) {
	return r.load(ctx, r.store.client, false)
}

func (r *Repository[K, V]) Get(ctx context.Context, id K) (V, bool, error) {
	var zero V
	items, err := r.load(ctx, r.store.client, false)
	if err != nil {
		return zero, false, err
	}
	for _, v := range items {
		if r.keyOf(v) == id {
			return v, true, nil
		}
	}
	return zero, false, nil
}

func (r *Repository[K, V]) Upsert(ctx context.Context, v V) error {
	id := r.keyOf(v)

	txf := func(tx *redis.Tx) error {
		items, err := r.load(ctx, tx, true)
		if err != nil {
			return err
		}

		inserted := true
		for i := range items {
			if r.keyOf(items[i]) == id {
				items[i] = v
				inserted = false
				break
			}
		}
		if inserted {
			items = append([]V{v}, items...)
		}

		doc, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", r.key, err)
		}
		if doc, err = r.store.seal(doc, r.key); err != nil {
			return err
		}

		var channel string
		var payload []byte
		if inserted && r.channel != nil {
			channel = r.channel(v)
			if payload, err = json.Marshal(v); err != nil {
				return fmt.Errorf("failed to encode message: %w", err)
			}
			if payload, err = r.store.seal(payload, channel); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, doc, 0)
			if payload != nil {
				pipe.Publish(ctx, channel, payload)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.store.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to upsert into %s: %w", r.key, err)
		}
		return nil
	}
	return fmt.Errorf("failed to upsert into %s: too much contention", r.key)
}

// Session stores the logged-in user under a single key.
type Session struct {
	store *Store
	key   string
}

var _ workflow.SessionStore = (*Session)(nil)

func (s *Session) CurrentUser(ctx context.Context) (*workflow.User, error) {
	raw, err := s.store.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if raw, err = s.store.open(raw, s.key); err != nil {
		return nil, err
	}

	var u workflow.User
	if err := json.Unmarshal(raw, &u); err != nil {
		log.Warn().Err(err).Msg("ignoring malformed session")
		return nil, nil
	}
	return &u, nil
}

// SetCurrentUser stores u, or clears the session when u is nil.
func (s *Session) SetCurrentUser(ctx context.Context, u *workflow.User) error {
	if u == nil {
		return s.store.client.Del(ctx, s.key).Err()
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if raw, err = s.store.seal(raw, s.key); err != nil {
		return err
	}
	return s.store.client.Set(ctx, s.key, raw, 0).Err()
}
