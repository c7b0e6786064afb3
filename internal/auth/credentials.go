package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// Vault persists the current token pair in a single named slot. An absent
// slot is equivalent to logged-out.
type Vault interface {
	Store(ctx context.Context, pair models.TokenPair) error
	Load(ctx context.Context) (models.TokenPair, bool, error)
	Delete(ctx context.Context) error
}

// CredentialStore owns the current access/refresh token pair for the
// process session context. Reads observe either the old or the new pair,
// never a torn mix; a rotation either fully succeeds or leaves the prior
// pair intact.
type CredentialStore struct {
	mu      sync.RWMutex
	pair    models.TokenPair
	present bool
	persist bool

	vault Vault
}

// NewCredentialStore constructs an empty store. A nil vault disables
// persistence across restarts.
func NewCredentialStore(vault Vault) *CredentialStore {
	return &CredentialStore{vault: vault}
}

// Init loads the persisted pair if one exists; otherwise the store starts
// logged-out.
func (s *CredentialStore) Init(ctx context.Context) error {
	if s.vault == nil {
		return nil
	}

	pair, ok, err := s.vault.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credential slot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.pair = pair
		s.present = true
		s.persist = true
	}
	return nil
}

// Current returns a consistent snapshot of the current pair.
func (s *CredentialStore) Current() (models.TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.present
}

// Set installs a freshly issued pair. When persist is true the pair is
// written to the vault slot before it becomes current, and subsequent
// rotations keep writing the slot until Clear.
func (s *CredentialStore) Set(ctx context.Context, pair models.TokenPair, persist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if persist && s.vault != nil {
		if err := s.vault.Store(ctx, pair); err != nil {
			return fmt.Errorf("store credential slot: %w", err)
		}
	}

	s.pair = pair
	s.present = true
	s.persist = persist && s.vault != nil
	return nil
}

// Replace swaps in a rotated pair, keeping the persistence mode chosen at
// login. The slot write happens before the in-memory swap so a failure
// leaves the prior pair current.
func (s *CredentialStore) Replace(ctx context.Context, pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist {
		if err := s.vault.Store(ctx, pair); err != nil {
			return fmt.Errorf("store credential slot: %w", err)
		}
	}

	s.pair = pair
	s.present = true
	return nil
}

// Clear wipes the current pair and the persisted slot.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = models.TokenPair{}
	s.present = false
	s.persist = false

	if s.vault != nil {
		if err := s.vault.Delete(ctx); err != nil {
			return fmt.Errorf("delete credential slot: %w", err)
		}
	}
	return nil
}

// FileVault stores the token pair as a JSON document at a fixed path.
type FileVault struct {
	path string
}

// NewFileVault constructs a vault writing to the provided file path.
func NewFileVault(path string) *FileVault {
	if path == "" {
		panic("auth: file vault requires a path")
	}
	return &FileVault{path: path}
}

type vaultRecord struct {
	AccessToken      string `json:"accessToken"`
	AccessExpiresAt  int64  `json:"accessExpiresAt"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

// Store writes the pair to the slot file.
func (v *FileVault) Store(_ context.Context, pair models.TokenPair) error {
	record := vaultRecord{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt.Unix(),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt.Unix(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode credential slot: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential directory: %w", err)
		}
	}

	if err := os.WriteFile(v.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential slot: %w", err)
	}
	return nil
}

// Load reads the slot file; a missing file means logged-out.
func (v *FileVault) Load(_ context.Context) (models.TokenPair, bool, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.TokenPair{}, false, nil
		}
		return models.TokenPair{}, false, fmt.Errorf("read credential slot: %w", err)
	}

	var record vaultRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return models.TokenPair{}, false, fmt.Errorf("decode credential slot: %w", err)
	}

	pair := models.TokenPair{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
	}
	if record.AccessExpiresAt > 0 {
		pair.AccessExpiresAt = unixUTC(record.AccessExpiresAt)
	}
	if record.RefreshExpiresAt > 0 {
		pair.RefreshExpiresAt = unixUTC(record.RefreshExpiresAt)
	}
	return pair, pair.AccessToken != "" || pair.RefreshToken != "", nil
}

// Delete removes the slot file; a missing file is not an error.
func (v *FileVault) Delete(_ context.Context) error {
	if err := os.Remove(v.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential slot: %w", err)
	}
	return nil
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// MemoryVault implements Vault for tests.
type MemoryVault struct {
	mu      sync.Mutex
	pair    models.TokenPair
	present bool
}

// NewMemoryVault constructs an empty in-memory vault.
func NewMemoryVault() *MemoryVault { return &MemoryVault{} }

// Store records the pair.
func (v *MemoryVault) Store(_ context.Context, pair models.TokenPair) error {
	v.mu.Lock()
	v.pair = pair
	v.present = true
	v.mu.Unlock()
	return nil
}

// Load returns the recorded pair, if any.
func (v *MemoryVault) Load(_ context.Context) (models.TokenPair, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pair, v.present, nil
}

// Delete clears the recorded pair.
func (v *MemoryVault) Delete(_ context.Context) error {
	v.mu.Lock()
	v.pair = models.TokenPair{}
	v.present = false
	v.mu.Unlock()
	return nil
}
