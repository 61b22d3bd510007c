package session

import (
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/adirathodd/titan-trading/internal/errors"
	"github.com/adirathodd/titan-trading/internal/models"
	"github.com/adirathodd/titan-trading/internal/storage"
)

// State is a read-only snapshot of the session, delivered to subscribers on
// every mutation.
type State struct {
	Authenticated bool
	Username      string
	Cash          float64
}

// Store is the single source of truth for who is logged in and with what
// token, durable across restarts, and for the running cash balance.
//
// The store is either fully populated (both credentials, identity, cash) or
// fully empty; no partial state is ever held in memory or persisted. There
// are exactly two states, logged out and logged in; a detected expiry or an
// undecodable token forces the logged-out state.
type Store struct {
	creds *storage.CredentialRepository
	log   *slog.Logger

	mu       sync.RWMutex
	access   string
	refresh  string
	claims   *Claims
	username string
	cash     float64

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan State
}

// NewStore creates a Store seeded from durable storage. Persisted
// credentials that no longer decode, or whose expiry has passed, are
// discarded so the client starts logged out rather than half-authenticated.
func NewStore(creds *storage.CredentialRepository, log *slog.Logger) (*Store, error) {
	s := &Store{
		creds: creds,
		log:   log,
		subs:  make(map[int]chan State),
	}

	stored, err := creds.Load()
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	if stored == nil {
		return s, nil
	}

	claims, err := DecodeToken(stored.AccessToken)
	if err != nil {
		log.Warn("discarding undecodable stored credential", "error", err)
		if err := creds.Clear(); err != nil {
			return nil, fmt.Errorf("clearing stale credentials: %w", err)
		}
		return s, nil
	}
	if claims.Expired() {
		log.Info("stored credential expired, starting logged out", "username", stored.Username)
		if err := creds.Clear(); err != nil {
			return nil, fmt.Errorf("clearing expired credentials: %w", err)
		}
		return s, nil
	}

	s.access = stored.AccessToken
	s.refresh = stored.RefreshToken
	s.claims = claims
	s.username = stored.Username
	s.cash = stored.Cash
	return s, nil
}

// Login persists the credential pair, identity label, and starting cash
// atomically and moves the store to the logged-in state. An access token
// that cannot be decoded, or is already expired, leaves the store logged
// out and returns a typed error.
//
// The refresh credential is stored but never exchanged by this layer; when
// the access token lapses the user authenticates again.
func (s *Store) Login(access, refresh, username string, cash float64) error {
	claims, err := DecodeToken(access)
	if err != nil {
		s.Logout()
		return apperrors.InvalidCredential(err)
	}
	if claims.Expired() {
		s.Logout()
		return apperrors.ExpiredCredential()
	}

	if err := s.creds.Save(&models.StoredCredentials{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     username,
		Cash:         cash,
	}); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.claims = claims
	s.username = username
	s.cash = cash
	s.mu.Unlock()

	s.log.Info("logged in", "username", username)
	s.notify()
	return nil
}

// Logout clears durable storage and in-memory state unconditionally.
// Safe to call when already logged out.
func (s *Store) Logout() {
	if err := s.creds.Clear(); err != nil {
		// In-memory state is cleared regardless; a stale row on disk is
		// re-evaluated (and discarded) at next startup.
		s.log.Error("clearing stored credentials", "error", err)
	}

	s.mu.Lock()
	wasAuthenticated := s.access != ""
	s.access = ""
	s.refresh = ""
	s.claims = nil
	s.username = ""
	s.cash = 0
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Info("logged out")
	}
	s.notify()
}

// UpdateCash persists and replaces the cash balance. Credentials are never
// touched by this operation.
func (s *Store) UpdateCash(cash float64) error {
	if err := s.creds.UpdateCash(cash); err != nil {
		return fmt.Errorf("persisting cash balance: %w", err)
	}

	s.mu.Lock()
	s.cash = cash
	s.mu.Unlock()

	s.notify()
	return nil
}

// IsAuthenticated reports whether a live credential is held. The decoded
// expiry is re-evaluated against the clock on every call; a credential
// found expired forces a full logout before reporting false. This guards
// what the UI shows, not what the server accepts.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	access := s.access
	claims := s.claims
	s.mu.RUnlock()

	if access == "" || claims == nil {
		return false
	}
	if claims.Expired() {
		s.Logout()
		return false
	}
	return true
}

// AccessToken returns the bearer credential for outgoing requests. The
// second return is false when the session is logged out or expired.
func (s *Store) AccessToken() (string, bool) {
	if !s.IsAuthenticated() {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, true
}

// Username returns the identity label of the logged-in user, or "".
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Cash returns the current cash balance.
func (s *Store) Cash() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

// State returns a point-in-time snapshot of the session.
func (s *Store) State() State {
	authenticated := s.IsAuthenticated()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Authenticated: authenticated,
		Username:      s.username,
		Cash:          s.cash,
	}
}

// Subscribe creates a subscription channel that receives a State snapshot
// after every mutation. Slow subscribers miss updates rather than blocking
// the writer.
func (s *Store) Subscribe(bufSize int) (id int, ch <-chan State) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	c := make(chan State, bufSize)
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// notify delivers the current state to all subscribers (non-blocking send).
func (s *Store) notify() {
	s.mu.RLock()
	state := State{
		Authenticated: s.access != "" && s.claims != nil && !s.claims.Expired(),
		Username:      s.username,
		Cash:          s.cash,
	}
	s.mu.RUnlock()

	s.subsMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// Slow subscriber, drop update.
		}
	}
	s.subsMu.Unlock()
}
