package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadgrid/prospect-cli/internal/model"
)

var icpCmd = &cobra.Command{
	Use:   "icp",
	Short: "Manage ideal-customer profiles",
}

var icpSetFlags struct {
	tenantID string
	file     string
}

var icpSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a tenant's active ICP profile from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if icpSetFlags.tenantID == "" || icpSetFlags.file == "" {
			return fmt.Errorf("--tenant and --file are required")
		}

		data, err := os.ReadFile(icpSetFlags.file)
		if err != nil {
			return eris.Wrap(err, "read profile file")
		}

		var icp model.ICPProfile
		if err := json.Unmarshal(data, &icp); err != nil {
			return eris.Wrap(err, "parse profile file")
		}
		icp.TenantID = icpSetFlags.tenantID

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.UpsertICP(cmd.Context(), icp); err != nil {
			return err
		}
		fmt.Printf("active ICP profile set for tenant %s\n", icp.TenantID)
		return nil
	},
}

var icpShowTenant string

var icpShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a tenant's active ICP profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if icpShowTenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		icp, err := env.Store.GetActiveICP(cmd.Context(), icpShowTenant)
		if err != nil {
			return err
		}
		if icp == nil {
			fmt.Printf("tenant %s has no active ICP profile\n", icpShowTenant)
			return nil
		}
		return printJSON(icp)
	},
}

func init() {
	icpSetCmd.Flags().StringVar(&icpSetFlags.tenantID, "tenant", "", "tenant that owns the profile (required)")
	icpSetCmd.Flags().StringVar(&icpSetFlags.file, "file", "", "path to the profile JSON (required)")
	icpShowCmd.Flags().StringVar(&icpShowTenant, "tenant", "", "tenant to look up (required)")

	icpCmd.AddCommand(icpSetCmd, icpShowCmd)
	rootCmd.AddCommand(icpCmd)
}
