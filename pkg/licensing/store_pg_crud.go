package licensing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const licenseColumns = "id, email, license_key, is_active, payment_id, customer_id, created_at, expires_at, activated_at, metadata"

// CreateLicense stores a new license
func (s *PGStore) CreateLicense(ctx context.Context, license *License) error {
	metadataJSON, err := json.Marshal(license.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		license.ID,
		license.Email,
		license.Key,
		license.IsActive,
		license.PaymentID,
		license.CustomerID,
		license.CreatedAt,
		license.ExpiresAt,
		license.ActivatedAt,
		metadataJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	return nil
}

// scanLicense reads one license row
func scanLicense(row pgx.Row) (*License, error) {
	license := &License{}
	var metadataJSON []byte

	err := row.Scan(
		&license.ID,
		&license.Email,
		&license.Key,
		&license.IsActive,
		&license.PaymentID,
		&license.CustomerID,
		&license.CreatedAt,
		&license.ExpiresAt,
		&license.ActivatedAt,
		&metadataJSON,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &license.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return license, nil
}

// GetLicense retrieves a license by ID
func (s *PGStore) GetLicense(ctx context.Context, id string) (*License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return scanLicense(s.pool.QueryRow(ctx, query, id))
}

// GetActiveLicenseByEmail returns the latest-created active license for an email
func (s *PGStore) GetActiveLicenseByEmail(ctx context.Context, email string) (*License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE email = $1 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanLicense(s.pool.QueryRow(ctx, query, email))
}

// GetLicenseByEmailAndKey retrieves a license matching both fields exactly
func (s *PGStore) GetLicenseByEmailAndKey(ctx context.Context, email, key string) (*License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE email = $1 AND license_key = $2`
	return scanLicense(s.pool.QueryRow(ctx, query, email, key))
}

// GetLicenseByPaymentID retrieves a license by its payment intent ID
func (s *PGStore) GetLicenseByPaymentID(ctx context.Context, paymentID string) (*License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE payment_id = $1`
	return scanLicense(s.pool.QueryRow(ctx, query, paymentID))
}

// GetLicenseByCustomer retrieves a license by Stripe customer ID
func (s *PGStore) GetLicenseByCustomer(ctx context.Context, customerID string) (*License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanLicense(s.pool.QueryRow(ctx, query, customerID))
}

// KeyExists reports whether a license key is already taken
func (s *PGStore) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM licenses WHERE license_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check license key: %w", err)
	}
	return exists, nil
}

// MarkActivated sets the activation timestamp if it is still unset.
// The WHERE clause makes the write a no-op once activated_at is populated.
func (s *PGStore) MarkActivated(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE licenses SET activated_at = $2 WHERE id = $1 AND activated_at IS NULL`
	_, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark license activated: %w", err)
	}
	return nil
}

// SetActive flips the administrative revocation flag
func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.pool.Exec(ctx, `UPDATE licenses SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update license: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

// SetExpiry sets or clears the expiry timestamp
func (s *PGStore) SetExpiry(ctx context.Context, id string, at *time.Time) error {
	result, err := s.pool.Exec(ctx, `UPDATE licenses SET expires_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to set license expiry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

// ListLicenses returns all licenses
func (s *PGStore) ListLicenses(ctx context.Context) ([]*License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*License
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, license)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating licenses: %w", err)
	}

	return licenses, nil
}
