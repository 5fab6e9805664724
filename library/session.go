package library

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext credential with bcrypt at DefaultCost.
// The hash is opaque to the rest of the system.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a stored hash with a candidate credential.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// Identities is the username-keyed account store.
type Identities struct {
	byName map[string]*Identity
	order  []string
}

// NewIdentities creates an empty identity store.
func NewIdentities() *Identities {
	return &Identities{byName: make(map[string]*Identity)}
}

// Register adds an account with a freshly hashed credential.
func (s *Identities) Register(username, password string, role Role, memberID, fullName string) error {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidID
	}
	if _, ok := s.byName[username]; ok {
		return fmt.Errorf("%w: user %s", ErrDuplicateID, username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	s.byName[username] = &Identity{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		MemberID:     memberID,
		FullName:     fullName,
	}
	s.order = append(s.order, username)
	return nil
}

// Find returns the identity for username.
func (s *Identities) Find(username string) (*Identity, error) {
	id, ok := s.byName[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return id, nil
}

// SetPassword replaces the stored hash for username.
func (s *Identities) SetPassword(username, password string) error {
	id, ok := s.byName[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	id.PasswordHash = hash
	return nil
}

// All returns every identity in registration order.
func (s *Identities) All() []*Identity {
	out := make([]*Identity, 0, len(s.order))
	for _, u := range s.order {
		out = append(out, s.byName[u])
	}
	return out
}

// insert places an already-built identity, used when loading a snapshot.
// Returns false if the username is taken.
func (s *Identities) insert(id *Identity) bool {
	if _, ok := s.byName[id.Username]; ok {
		return false
	}
	s.byName[id.Username] = id
	s.order = append(s.order, id.Username)
	return true
}

// Sessions tracks the single active identity and its activity clock. The
// idle timeout is polled on access, not driven by a timer.
type Sessions struct {
	ids  *Identities
	idle time.Duration
	now  func() time.Time

	current      *Identity
	startedAt    time.Time
	lastActivity time.Time
}

// NewSessions creates a session manager over the given identity store.
func NewSessions(ids *Identities, idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sessions{ids: ids, idle: idle, now: time.Now}
}

// Login verifies the credential against the stored hash. On a match the
// session is established and the activity clock reset; on a mismatch the
// session is left unset.
func (s *Sessions) Login(username, password string) (*Identity, error) {
	id, err := s.ids.Find(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if CheckPassword(id.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	s.establish(id)
	return id, nil
}

// establish starts a session for an identity whose credential has already
// been verified.
func (s *Sessions) establish(id *Identity) {
	s.current = id
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
}

// Logout clears the session and returns the identity that held it along
// with the session duration. ok is false when no session was active.
func (s *Sessions) Logout() (id *Identity, duration time.Duration, ok bool) {
	if s.current == nil {
		return nil, 0, false
	}
	id = s.current
	duration = s.now().Sub(s.startedAt)
	s.current = nil
	return id, duration, true
}

// Current returns the active identity, or nil.
func (s *Sessions) Current() *Identity { return s.current }

// Touch resets the activity clock; called on every authorized access.
func (s *Sessions) Touch() {
	if s.current != nil {
		s.lastActivity = s.now()
	}
}

// Expired reports whether the session has been idle past the threshold.
func (s *Sessions) Expired() bool {
	if s.current == nil {
		return false
	}
	return s.now().Sub(s.lastActivity) > s.idle
}
