package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadgrid/prospect-cli/internal/prospect"
)

var discoverFlags struct {
	tenantID        string
	segmento        string
	porte           string
	localizacao     string
	quantidade      int
	faturamentoMin  float64
	faturamentoMax  float64
	funcionariosMin int
	funcionariosMax int
	page            int
	pageSize        int
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a one-shot discovery and print the ranked page as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSecrets(); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		raw := prospect.RawFilter{
			Segmento:           discoverFlags.segmento,
			Porte:              discoverFlags.porte,
			Localizacao:        discoverFlags.localizacao,
			QuantidadeDesejada: discoverFlags.quantidade,
			Page:               discoverFlags.page,
			PageSize:           discoverFlags.pageSize,
		}
		if cmd.Flags().Changed("faturamento-min") {
			raw.FaturamentoMin = &discoverFlags.faturamentoMin
		}
		if cmd.Flags().Changed("faturamento-max") {
			raw.FaturamentoMax = &discoverFlags.faturamentoMax
		}
		if cmd.Flags().Changed("funcionarios-min") {
			raw.FuncionariosMin = &discoverFlags.funcionariosMin
		}
		if cmd.Flags().Changed("funcionarios-max") {
			raw.FuncionariosMax = &discoverFlags.funcionariosMax
		}

		result, err := env.Pipeline.Discover(cmd.Context(), discoverFlags.tenantID, raw)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return nil
	},
}

func init() {
	f := discoverCmd.Flags()
	f.StringVar(&discoverFlags.tenantID, "tenant", "", "tenant whose ICP profile drives scoring")
	f.StringVar(&discoverFlags.segmento, "segmento", "", "sector, e.g. tecnologia")
	f.StringVar(&discoverFlags.porte, "porte", "", "size tier, e.g. pequena, media, grande")
	f.StringVar(&discoverFlags.localizacao, "localizacao", "", `location, e.g. "São Paulo, SP"`)
	f.IntVar(&discoverFlags.quantidade, "quantidade", 0, "desired result count (default 20, max 100)")
	f.Float64Var(&discoverFlags.faturamentoMin, "faturamento-min", 0, "minimum annual revenue")
	f.Float64Var(&discoverFlags.faturamentoMax, "faturamento-max", 0, "maximum annual revenue")
	f.IntVar(&discoverFlags.funcionariosMin, "funcionarios-min", 0, "minimum headcount")
	f.IntVar(&discoverFlags.funcionariosMax, "funcionarios-max", 0, "maximum headcount")
	f.IntVar(&discoverFlags.page, "page", 1, "result page")
	f.IntVar(&discoverFlags.pageSize, "page-size", 0, "page size (default 20, max 50)")
	rootCmd.AddCommand(discoverCmd)
}
