package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAddDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-doctor <address>",
		Short: "Register a doctor identity (administrator only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor := argOrEnv(args, 0, "DOCTOR", "DOCTOR_ADDRESS")
			if doctor == "" {
				return fmt.Errorf("doctor address required (argument or DOCTOR env)")
			}
			if err := client().AddDoctor(doctor); err != nil {
				return err
			}
			fmt.Println("Doctor added:", doctor)
			return nil
		},
	}
}

func newAddRecordCmd() *cobra.Command {
	var patient, cid, meta string
	cmd := &cobra.Command{
		Use:   "add-record <name|0xid>",
		Short: "Create a health record pointer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := argOrEnv(args, 0, "RECORD_ID")
			if name == "" {
				return fmt.Errorf("record name required (argument or RECORD_ID env)")
			}
			if patient == "" || cid == "" {
				return fmt.Errorf("--patient and --cid are required (or PATIENT/CID env)")
			}

			fmt.Println("Creating record with:")
			if _, err := resolveRecordID(name); err != nil {
				return err
			}
			fmt.Println("  Patient:", patient)
			fmt.Println("  CID:", cid)

			rec, err := client().CreateRecord(name, patient, cid, meta)
			if err != nil {
				return err
			}
			fmt.Println("Record created successfully!")
			printJSON(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&patient, "patient", envOr("PATIENT", os.Getenv("PATIENT_ADDRESS")), "patient address")
	cmd.Flags().StringVar(&cid, "cid", os.Getenv("CID"), "content identifier of the off-chain record")
	cmd.Flags().StringVar(&meta, "meta", os.Getenv("META"), "free-form record annotation")
	return cmd
}

func newGetRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-record <name|0xid>",
		Short: "Read a record pointer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := argOrEnv(args, 0, "RECORD_ID")
			if name == "" {
				return fmt.Errorf("record name required (argument or RECORD_ID env)")
			}

			fmt.Println("Reading record:")
			recordID, err := resolveRecordID(name)
			if err != nil {
				return err
			}

			rec, err := client().GetRecord(recordID)
			if err != nil {
				return err
			}
			fmt.Println("\nRecord found:")
			printJSON(rec)
			return nil
		},
	}
}

func newUpdateRecordCmd() *cobra.Command {
	var cid, meta string
	cmd := &cobra.Command{
		Use:   "update-record <name|0xid>",
		Short: "Replace a record's content pointer and metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := argOrEnv(args, 0, "RECORD_ID")
			if name == "" {
				return fmt.Errorf("record name required (argument or RECORD_ID env)")
			}
			if cid == "" {
				return fmt.Errorf("--cid is required (or NEW_CID env)")
			}

			fmt.Println("Updating record:")
			recordID, err := resolveRecordID(name)
			if err != nil {
				return err
			}
			fmt.Println("  New CID:", cid)

			rec, err := client().UpdateRecord(recordID, cid, meta)
			if err != nil {
				return err
			}
			fmt.Println("Record updated successfully!")
			printJSON(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&cid, "cid", os.Getenv("NEW_CID"), "new content identifier")
	cmd.Flags().StringVar(&meta, "meta", os.Getenv("NEW_META"), "new record annotation")
	return cmd
}

func newGrantAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-access <name|0xid> <grantee>",
		Short: "Grant a third party read access to a record",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := argOrEnv(args, 0, "RECORD_ID")
			grantee := argOrEnv(args, 1, "GRANTEE", "DOCTOR_ADDRESS")
			if name == "" || grantee == "" {
				return fmt.Errorf("record name and grantee required (arguments or RECORD_ID/GRANTEE env)")
			}

			fmt.Println("Granting access:")
			recordID, err := resolveRecordID(name)
			if err != nil {
				return err
			}
			fmt.Println("  Grantee:", grantee)

			if err := client().GrantAccess(recordID, grantee); err != nil {
				return err
			}
			fmt.Println("Access granted to", grantee)
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var recordID string
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the ledger audit history (administrator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := client().Audit(recordID, limit)
			if err != nil {
				return err
			}
			printJSON(events)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "filter events to one record (name or 0xid)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")
	return cmd
}

func argOrEnv(args []string, index int, envKeys ...string) string {
	if len(args) > index && args[index] != "" {
		return args[index]
	}
	for _, key := range envKeys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func printJSON(v interface{}) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(encoded))
}
