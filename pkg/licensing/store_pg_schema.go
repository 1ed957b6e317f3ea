package licensing

import "context"

// migrate creates the necessary database tables.
//
// license_key carries a UNIQUE constraint as a backstop for the narrow race
// between the uniqueness pre-check and the insert; the resolver still
// pre-checks so a collision costs a regeneration, not a constraint violation.
func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS licenses (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		license_key TEXT UNIQUE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		payment_id TEXT,
		customer_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ,
		activated_at TIMESTAMPTZ,
		metadata JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_licenses_email ON licenses(email);
	CREATE INDEX IF NOT EXISTS idx_licenses_payment_id ON licenses(payment_id);
	CREATE INDEX IF NOT EXISTS idx_licenses_customer_id ON licenses(customer_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
