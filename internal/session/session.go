package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"console/internal/model"
	"console/internal/storage"
	"console/internal/token"
)

var ErrIncompleteSession = errors.New("incomplete session")

const (
	keyToken = "token"
	keyUser  = "user"
	keyFlash = "flash"
)

// Store is the session/token record of one visitor, kept in a shared Storage
// under the visitor's namespace.
type Store struct {
	storage storage.Storage
	ns      string
	window  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewStore(s storage.Storage, namespace string, refreshWindow time.Duration, log *slog.Logger) *Store {
	return &Store{
		storage: s,
		ns:      namespace,
		window:  refreshWindow,
		log:     log,
		now:     time.Now,
	}
}

func (s *Store) key(k string) string {
	return s.ns + ":" + k
}

func (s *Store) Namespace() string {
	return s.ns
}

// Token returns the current access token or "" when there is none.
func (s *Store) Token(ctx context.Context) string {
	tok, err := s.storage.Get(ctx, s.key(keyToken))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("failed to read token", slog.String("error", err.Error()))
		}
		return ""
	}
	return tok
}

// Session returns the stored identity. Missing, undecodable or incomplete records read as absent.
func (s *Store) Session(ctx context.Context) (*model.Session, bool) {
	raw, err := s.storage.Get(ctx, s.key(keyUser))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("failed to read session", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.log.Warn("stored session is corrupted", slog.String("ns", s.ns), slog.String("error", err.Error()))
		return nil, false
	}
	if !sess.Complete() {
		return nil, false
	}
	return &sess, true
}

// Set stores a new identity with its token. Either both are kept or neither is.
func (s *Store) Set(ctx context.Context, sess *model.Session, tok string) error {
	if !sess.Complete() || tok == "" {
		return ErrIncompleteSession
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := token.TTL(tok, s.now(), s.window)
	if err := s.storage.Set(ctx, s.key(keyToken), tok, ttl); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.storage.Set(ctx, s.key(keyUser), string(raw), ttl); err != nil {
		_ = s.storage.Delete(ctx, s.key(keyToken))
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SetToken rotates the access token. Identity fields are left as they are.
func (s *Store) SetToken(ctx context.Context, tok string) error {
	if tok == "" {
		return errors.New("empty token")
	}
	ttl := token.TTL(tok, s.now(), s.window)
	if err := s.storage.Set(ctx, s.key(keyToken), tok, ttl); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	// keep the identity alive as long as the token it belongs to
	if raw, err := s.storage.Get(ctx, s.key(keyUser)); err == nil {
		_ = s.storage.Set(ctx, s.key(keyUser), raw, ttl)
	}
	return nil
}

// Clear removes the token and the identity together.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.key(keyToken), s.key(keyUser)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) SetFlash(ctx context.Context, msg string) {
	if err := s.storage.Set(ctx, s.key(keyFlash), msg, 5*time.Minute); err != nil {
		s.log.Warn("failed to save flash", slog.String("error", err.Error()))
	}
}

// PopFlash returns the pending message once.
func (s *Store) PopFlash(ctx context.Context) string {
	msg, err := s.storage.Get(ctx, s.key(keyFlash))
	if err != nil {
		return ""
	}
	_ = s.storage.Delete(ctx, s.key(keyFlash))
	return msg
}
