package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/fetcher"
)

var importFlags struct {
	tenantID string
	name     string
	icpID    string
}

var importCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "Create a qualification job from a CSV/XLSX file or ftp:// URL",
	Long:  "Reads company rows from a local .csv or .xlsx file, or from an ftp:// URL pointing at one, and creates a pending qualification job with one item per company.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFlags.tenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		items, err := fetcher.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("source %s contains no importable companies", args[0])
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		j, err := env.Store.CreateJob(cmd.Context(), importFlags.tenantID, importFlags.icpID, importFlags.name, items)
		if err != nil {
			return err
		}

		zap.L().Info("job created",
			zap.String("job_id", j.ID),
			zap.Int("items", j.TotalItems),
		)
		fmt.Printf("created job %s with %d companies\n", j.ID, j.TotalItems)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.tenantID, "tenant", "", "tenant that owns the job (required)")
	importCmd.Flags().StringVar(&importFlags.name, "name", "", "human-readable job name")
	importCmd.Flags().StringVar(&importFlags.icpID, "icp", "", "ICP profile ID to qualify against (default: tenant's active profile)")
	rootCmd.AddCommand(importCmd)
}
