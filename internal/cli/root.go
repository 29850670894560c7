// Package cli implements the hlctl commands. Each command is a thin
// wrapper that marshals arguments and environment values into one API
// call against the ledger service, mirroring the deployment scripts the
// ledger was originally driven by.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "hlctl",
	Short: "HealthLedger CLI",
	Long:  "A command-line tool for operating a HealthLedger record ledger service.",
}

// Execute runs the CLI. Exit code 1 means the call itself failed; the
// printed error carries the ledger's error code so scripts can branch on
// already-exists vs unauthorized.
func Execute() {
	// Values may come from a .env file, as the original deployment scripts
	// expected. A missing file is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("HEALTHLEDGER_SERVER", "http://localhost:8080"), "ledger service base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token",
		os.Getenv("HEALTHLEDGER_TOKEN"), "bearer token identifying the caller")

	rootCmd.AddCommand(
		newAddDoctorCmd(),
		newAddRecordCmd(),
		newGetRecordCmd(),
		newUpdateRecordCmd(),
		newGrantAccessCmd(),
		newAuditCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func client() *Client {
	return NewClient(serverURL, authToken)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// resolveRecordID echoes the name-to-identifier derivation so the operator
// sees the key actually used, the way the original scripts printed it.
func resolveRecordID(name string) (string, error) {
	recordID, err := types.DeriveRecordID(name)
	if err != nil {
		return "", err
	}
	if recordID.String() != name {
		fmt.Printf("  Record ID: %s -> %s\n", name, recordID)
	} else {
		fmt.Printf("  Record ID: %s\n", recordID)
	}
	return recordID.String(), nil
}
