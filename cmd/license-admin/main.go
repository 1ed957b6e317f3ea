// license-admin manages licenses directly against the store: manual
// issuance for refund replacements and support, listing, and
// deactivation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/licensing"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createEmail := createCmd.String("email", "", "Customer email (required)")
	createDays := createCmd.Int("days", 0, "Validity in days (0 = perpetual)")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	deactivateCmd := flag.NewFlagSet("deactivate", flag.ExitOnError)
	deactivateID := deactivateCmd.String("id", "", "License ID to deactivate")

	reactivateCmd := flag.NewFlagSet("reactivate", flag.ExitOnError)
	reactivateID := reactivateCmd.String("id", "", "License ID to reactivate")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'create', 'list', 'deactivate' or 'reactivate' subcommands")
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch os.Args[1] {
	case "create":
		if err := createCmd.Parse(os.Args[2:]); err != nil {
			fatalf("failed to parse create flags: %v", err)
		}
		createLicense(ctx, store, *createEmail, *createDays)
	case "list":
		if err := listCmd.Parse(os.Args[2:]); err != nil {
			fatalf("failed to parse list flags: %v", err)
		}
		listLicenses(ctx, store)
	case "deactivate":
		if err := deactivateCmd.Parse(os.Args[2:]); err != nil {
			fatalf("failed to parse deactivate flags: %v", err)
		}
		setActive(ctx, store, *deactivateID, false)
	case "reactivate":
		if err := reactivateCmd.Parse(os.Args[2:]); err != nil {
			fatalf("failed to parse reactivate flags: %v", err)
		}
		setActive(ctx, store, *reactivateID, true)
	default:
		fmt.Fprintln(os.Stderr, "expected 'create', 'list', 'deactivate' or 'reactivate' subcommands")
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (licensing.LicenseStore, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return licensing.NewPGStore(ctx, dbURL)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data/licenses"
	}
	return licensing.NewFileStore(dataDir)
}

// createLicense mints a license outside the payment flow, the same way the
// webhook path does it but with a synthetic payment ID.
func createLicense(ctx context.Context, store licensing.LicenseStore, email string, days int) {
	if email == "" {
		fatalf("create: -email is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := licensing.NewService(store, licensing.NewLogMailer(logger), logger)

	license, created, err := svc.IssueLicense(ctx, licensing.Checkout{
		Email:     email,
		PaymentID: "manual_" + time.Now().UTC().Format("20060102150405"),
	})
	if err != nil {
		fatalf("create: %v", err)
	}
	if !created {
		fatalf("create: license already exists for this payment ID")
	}

	if days > 0 {
		expires := time.Now().UTC().AddDate(0, 0, days)
		license.ExpiresAt = &expires
		if err := store.SetExpiry(ctx, license.ID, &expires); err != nil {
			fatalf("create: failed to set expiry: %v", err)
		}
	}

	fmt.Printf("License created\n")
	fmt.Printf("  ID:    %s\n", license.ID)
	fmt.Printf("  Email: %s\n", license.Email)
	fmt.Printf("  Key:   %s\n", license.Key)
	if license.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", license.ExpiresAt.Format(time.RFC3339))
	}
}

func listLicenses(ctx context.Context, store licensing.LicenseStore) {
	licenses, err := store.ListLicenses(ctx)
	if err != nil {
		fatalf("list: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tKEY\tACTIVE\tCREATED\tEXPIRES")
	for _, l := range licenses {
		expires := "-"
		if l.ExpiresAt != nil {
			expires = l.ExpiresAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
			l.ID, l.Email, l.Key, l.IsActive, l.CreatedAt.Format("2006-01-02"), expires)
	}
	w.Flush()
	fmt.Printf("\n%d license(s)\n", len(licenses))
}

func setActive(ctx context.Context, store licensing.LicenseStore, id string, active bool) {
	if id == "" {
		fatalf("-id is required")
	}

	if _, err := store.GetLicense(ctx, id); err != nil {
		fatalf("license %s: %v", id, err)
	}

	if err := store.SetActive(ctx, id, active); err != nil {
		fatalf("failed to update license %s: %v", id, err)
	}

	if active {
		fmt.Printf("License %s reactivated\n", id)
	} else {
		fmt.Printf("License %s deactivated\n", id)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
