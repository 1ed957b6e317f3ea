package licensing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newFileStoreLicense(t *testing.T, email, key, paymentID string) *License {
	t.Helper()

	id, err := GenerateLicenseID()
	if err != nil {
		t.Fatalf("GenerateLicenseID() error = %v", err)
	}

	return &License{
		ID:        id,
		Email:     email,
		Key:       key,
		IsActive:  true,
		PaymentID: paymentID,
		CreatedAt: time.Now().UTC(),
	}
}

func TestFileStoreCreateAndGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	license := newFileStoreLicense(t, "a@example.com", "AAAA-BBBB-CCCC", "pi_1")
	if err := store.CreateLicense(ctx, license); err != nil {
		t.Fatalf("CreateLicense() error = %v", err)
	}

	got, err := store.GetLicense(ctx, license.ID)
	if err != nil {
		t.Fatalf("GetLicense() error = %v", err)
	}
	if got.Key != license.Key {
		t.Errorf("GetLicense() key = %s, want %s", got.Key, license.Key)
	}

	if _, err := store.GetLicense(ctx, "lic_missing"); !errors.Is(err, ErrLicenseNotFound) {
		t.Errorf("GetLicense(missing) error = %v, want ErrLicenseNotFound", err)
	}
}

func TestFileStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	license := newFileStoreLicense(t, "a@example.com", "AAAA-BBBB-CCCC", "pi_1")
	if err := store.CreateLicense(ctx, license); err != nil {
		t.Fatalf("CreateLicense() error = %v", err)
	}
	store.Close()

	// Fresh store over the same directory must see the license and have a
	// working key index
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore(reopen) error = %v", err)
	}

	got, err := reopened.GetLicenseByEmailAndKey(ctx, "a@example.com", "AAAA-BBBB-CCCC")
	if err != nil {
		t.Fatalf("GetLicenseByEmailAndKey() after reload error = %v", err)
	}
	if got.ID != license.ID {
		t.Errorf("reloaded license ID = %s, want %s", got.ID, license.ID)
	}

	exists, err := reopened.KeyExists(ctx, "AAAA-BBBB-CCCC")
	if err != nil || !exists {
		t.Errorf("KeyExists() after reload = (%v, %v), want (true, nil)", exists, err)
	}
}

func TestFileStoreKeyExists(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	exists, err := store.KeyExists(ctx, "AAAA-BBBB-CCCC")
	if err != nil {
		t.Fatalf("KeyExists() error = %v", err)
	}
	if exists {
		t.Error("KeyExists() = true on empty store")
	}

	license := newFileStoreLicense(t, "a@example.com", "AAAA-BBBB-CCCC", "pi_1")
	if err := store.CreateLicense(ctx, license); err != nil {
		t.Fatalf("CreateLicense() error = %v", err)
	}

	exists, err = store.KeyExists(ctx, "AAAA-BBBB-CCCC")
	if err != nil || !exists {
		t.Errorf("KeyExists() = (%v, %v), want (true, nil)", exists, err)
	}
}

func TestFileStoreGetActiveLicenseByEmailPicksLatest(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	old := newFileStoreLicense(t, "a@example.com", "AAAA-BBBB-CCCC", "pi_1")
	old.CreatedAt = time.Now().Add(-time.Hour)
	newer := newFileStoreLicense(t, "a@example.com", "DDDD-EEEE-FFFF", "pi_2")

	for _, l := range []*License{old, newer} {
		if err := store.CreateLicense(ctx, l); err != nil {
			t.Fatalf("CreateLicense() error = %v", err)
		}
	}

	got, err := store.GetActiveLicenseByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetActiveLicenseByEmail() error = %v", err)
	}
	if got.Key != newer.Key {
		t.Errorf("got key %s, want latest %s", got.Key, newer.Key)
	}

	// Deactivating the latest exposes the older one
	if err := store.SetActive(ctx, newer.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, err = store.GetActiveLicenseByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetActiveLicenseByEmail() error = %v", err)
	}
	if got.Key != old.Key {
		t.Errorf("got key %s, want %s", got.Key, old.Key)
	}
}

func TestFileStoreMarkActivatedSetOnce(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	license := newFileStoreLicense(t, "a@example.com", "AAAA-BBBB-CCCC", "pi_1")
	if err := store.CreateLicense(ctx, license); err != nil {
		t.Fatalf("CreateLicense() error = %v", err)
	}

	first := time.Now().UTC()
	if err := store.MarkActivated(ctx, license.ID, first); err != nil {
		t.Fatalf("MarkActivated() error = %v", err)
	}

	// Second write with a later timestamp must be a no-op
	if err := store.MarkActivated(ctx, license.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("MarkActivated(second) error = %v", err)
	}

	got, err := store.GetLicense(ctx, license.ID)
	if err != nil {
		t.Fatalf("GetLicense() error = %v", err)
	}
	if !got.ActivatedAt.Equal(first) {
		t.Errorf("activation timestamp moved: %v, want %v", got.ActivatedAt, first)
	}
}

func TestFileStoreNotFoundSentinels(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	checks := []struct {
		name string
		call func() error
	}{
		{"GetActiveLicenseByEmail", func() error {
			_, err := store.GetActiveLicenseByEmail(ctx, "x@example.com")
			return err
		}},
		{"GetLicenseByEmailAndKey", func() error {
			_, err := store.GetLicenseByEmailAndKey(ctx, "x@example.com", "AAAA-BBBB-CCCC")
			return err
		}},
		{"GetLicenseByPaymentID", func() error {
			_, err := store.GetLicenseByPaymentID(ctx, "pi_x")
			return err
		}},
		{"GetLicenseByCustomer", func() error {
			_, err := store.GetLicenseByCustomer(ctx, "cus_x")
			return err
		}},
		{"MarkActivated", func() error {
			return store.MarkActivated(ctx, "lic_x", time.Now())
		}},
		{"SetActive", func() error {
			return store.SetActive(ctx, "lic_x", false)
		}},
		{"SetExpiry", func() error {
			return store.SetExpiry(ctx, "lic_x", nil)
		}},
	}

	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, ErrLicenseNotFound) {
				t.Errorf("error = %v, want ErrLicenseNotFound", err)
			}
		})
	}
}
