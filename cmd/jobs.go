package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadgrid/prospect-cli/internal/job"
	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage qualification jobs",
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Run a pending qualification job to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSecrets(); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		finished, err := env.Runner.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return printJSON(job.Summarize(finished))
	},
}

var jobsResetCmd = &cobra.Command{
	Use:   "reset <job-id>",
	Short: "Return a completed job to pending for a re-run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Runner.Reset(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("job %s reset to pending\n", args[0])
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's progress and grade buckets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		j, err := env.Store.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(j)
	},
}

var jobsListFlags struct {
	tenantID string
	status   string
	limit    int
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List qualification jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		jobs, err := env.Store.ListJobs(cmd.Context(), store.JobFilter{
			TenantID: jobsListFlags.tenantID,
			Status:   model.JobStatus(jobsListFlags.status),
			Limit:    jobsListFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsListFlags.tenantID, "tenant", "", "filter by tenant")
	jobsListCmd.Flags().StringVar(&jobsListFlags.status, "status", "", "filter by status (pending, processing, completed, failed)")
	jobsListCmd.Flags().IntVar(&jobsListFlags.limit, "limit", 0, "maximum number of jobs to return")

	jobsCmd.AddCommand(jobsRunCmd, jobsResetCmd, jobsStatusCmd, jobsListCmd)
	rootCmd.AddCommand(jobsCmd)
}
