package licensing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore handles license persistence in a local JSON file. It backs
// development and test deployments when no DATABASE_URL is configured.
type FileStore struct {
	dataDir  string
	licenses map[string]*License // key: license ID
	byKey    map[string]string   // license key -> license ID
	mu       sync.RWMutex
}

// NewFileStore creates a new file-backed license store
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	s := &FileStore{
		dataDir:  dataDir,
		licenses: make(map[string]*License),
		byKey:    make(map[string]string),
	}

	// Load existing licenses
	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// CreateLicense stores a new license
func (s *FileStore) CreateLicense(_ context.Context, license *License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.licenses[license.ID] = license
	s.byKey[license.Key] = license.ID

	return s.save()
}

// GetLicense retrieves a license by ID
func (s *FileStore) GetLicense(_ context.Context, id string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, ErrLicenseNotFound
	}

	return license, nil
}

// GetActiveLicenseByEmail returns the latest-created active license for an email
func (s *FileStore) GetActiveLicenseByEmail(_ context.Context, email string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *License
	for _, license := range s.licenses {
		if license.Email != email || !license.IsActive {
			continue
		}
		if latest == nil || license.CreatedAt.After(latest.CreatedAt) {
			latest = license
		}
	}

	if latest == nil {
		return nil, ErrLicenseNotFound
	}
	return latest, nil
}

// GetLicenseByEmailAndKey retrieves a license matching both fields exactly
func (s *FileStore) GetLicenseByEmailAndKey(_ context.Context, email, key string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrLicenseNotFound
	}

	license := s.licenses[id]
	if license == nil || license.Email != email {
		return nil, ErrLicenseNotFound
	}

	return license, nil
}

// GetLicenseByPaymentID retrieves a license by its payment intent ID
func (s *FileStore) GetLicenseByPaymentID(_ context.Context, paymentID string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, license := range s.licenses {
		if license.PaymentID != "" && license.PaymentID == paymentID {
			return license, nil
		}
	}

	return nil, ErrLicenseNotFound
}

// GetLicenseByCustomer retrieves a license by Stripe customer ID
func (s *FileStore) GetLicenseByCustomer(_ context.Context, customerID string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, license := range s.licenses {
		if license.CustomerID != "" && license.CustomerID == customerID {
			return license, nil
		}
	}

	return nil, ErrLicenseNotFound
}

// KeyExists reports whether a license key is already taken
func (s *FileStore) KeyExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byKey[key]
	return ok, nil
}

// MarkActivated sets the activation timestamp if it is still unset
func (s *FileStore) MarkActivated(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return ErrLicenseNotFound
	}

	if license.ActivatedAt != nil {
		return nil // already activated, never overwritten
	}

	license.ActivatedAt = &at
	return s.save()
}

// SetActive flips the administrative revocation flag
func (s *FileStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return ErrLicenseNotFound
	}

	license.IsActive = active
	return s.save()
}

// SetExpiry sets or clears the expiry timestamp
func (s *FileStore) SetExpiry(_ context.Context, id string, at *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return ErrLicenseNotFound
	}

	license.ExpiresAt = at
	return s.save()
}

// ListLicenses returns all licenses
func (s *FileStore) ListLicenses(_ context.Context) ([]*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	licenses := make([]*License, 0, len(s.licenses))
	for _, license := range s.licenses {
		licenses = append(licenses, license)
	}

	return licenses, nil
}

// save persists licenses to disk
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.licenses, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dataDir, "licenses.json")
	return os.WriteFile(path, data, 0600)
}

// load reads licenses from disk
func (s *FileStore) load() error {
	path := filepath.Join(s.dataDir, "licenses.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No licenses yet
		}
		return err
	}

	if err := json.Unmarshal(data, &s.licenses); err != nil {
		return err
	}

	// Rebuild byKey index
	for id, license := range s.licenses {
		s.byKey[license.Key] = id
	}

	return nil
}

// Ping checks if the store is accessible (always succeeds for the file store)
func (s *FileStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}
