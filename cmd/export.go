package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/pkg/notion"
)

// gradeRank orders grades for the --min-grade cutoff.
var gradeRank = map[model.Grade]int{
	model.GradeAPlus: 5,
	model.GradeA:     4,
	model.GradeB:     3,
	model.GradeC:     2,
	model.GradeD:     1,
}

var exportFlags struct {
	target   string
	minGrade string
}

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Push a job's qualified leads to Salesforce or Notion",
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
		if j.Status != model.JobStatusCompleted {
			return eris.Errorf("job %s is %s, only completed jobs can be exported", j.ID, j.Status)
		}

		leads, err := env.Store.ListQualifiedLeads(cmd.Context(), j.ID)
		if err != nil {
			return err
		}
		leads = filterByGrade(leads, model.Grade(exportFlags.minGrade))
		if len(leads) == 0 {
			fmt.Println("no qualified leads match the grade filter")
			return nil
		}

		var exported int
		switch strings.ToLower(exportFlags.target) {
		case "salesforce":
			exported, err = exportSalesforce(cmd.Context(), leads)
		case "notion":
			exported, err = exportNotion(cmd.Context(), leads)
		default:
			return eris.Errorf("unsupported export target %q (want salesforce or notion)", exportFlags.target)
		}
		if err != nil {
			return err
		}

		fmt.Printf("exported %d of %d qualified leads to %s\n", exported, len(leads), exportFlags.target)
		return nil
	},
}

func filterByGrade(leads []model.QualifiedLead, minGrade model.Grade) []model.QualifiedLead {
	cutoff, ok := gradeRank[minGrade]
	if !ok {
		return leads
	}
	var out []model.QualifiedLead
	for _, lead := range leads {
		if gradeRank[lead.Grade] >= cutoff {
			out = append(out, lead)
		}
	}
	return out
}

func exportSalesforce(ctx context.Context, leads []model.QualifiedLead) (int, error) {
	client, err := initSalesforce()
	if err != nil {
		return 0, err
	}

	records := make([]map[string]any, 0, len(leads))
	for _, lead := range leads {
		rec := map[string]any{
			"Company":     lead.LegalName,
			"Website":     lead.Website,
			"City":        lead.City,
			"State":       lead.Region,
			"Description": fmt.Sprintf("CNPJ %s, score %d (%s)", lead.TaxID, lead.TotalScore, lead.Grade),
			"LeadSource":  "prospect-cli",
			"Rating":      string(lead.Grade),
		}
		if len(lead.Emails) > 0 {
			rec["Email"] = lead.Emails[0]
		}
		if len(lead.DecisionMakers) > 0 {
			rec["LastName"] = lead.DecisionMakers[0].Name
			rec["Title"] = lead.DecisionMakers[0].Title
		} else {
			rec["LastName"] = lead.LegalName
		}
		records = append(records, rec)
	}

	results, err := client.InsertCollection(ctx, "Lead", records)
	if err != nil {
		return 0, err
	}

	exported := 0
	for i, res := range results {
		if res.Success {
			exported++
			continue
		}
		zap.L().Warn("salesforce lead insert failed",
			zap.String("company", leads[i].LegalName),
			zap.Strings("errors", res.Errors),
		)
	}
	return exported, nil
}

func exportNotion(ctx context.Context, leads []model.QualifiedLead) (int, error) {
	if cfg.Notion.Token == "" || cfg.Notion.LeadDB == "" {
		return 0, eris.New("notion token and lead database ID are required (PROSPECT_NOTION_TOKEN, PROSPECT_NOTION_LEAD_DB)")
	}
	client := notion.NewClient(cfg.Notion.Token)

	exported := 0
	for _, lead := range leads {
		if _, err := client.CreatePage(ctx, notionLeadPage(cfg.Notion.LeadDB, lead)); err != nil {
			zap.L().Warn("notion page create failed",
				zap.String("company", lead.LegalName),
				zap.Error(err),
			)
			continue
		}
		exported++
	}
	return exported, nil
}

func notionLeadPage(databaseID string, lead model.QualifiedLead) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: lead.LegalName}}},
		},
		"CNPJ":  richText(lead.TaxID),
		"Score": notionapi.NumberProperty{Number: float64(lead.TotalScore)},
		"Grade": notionapi.SelectProperty{Select: notionapi.Option{Name: string(lead.Grade)}},
	}
	if lead.Website != "" {
		props["Website"] = notionapi.URLProperty{URL: lead.Website}
	}
	if lead.City != "" {
		props["Cidade"] = richText(lead.City)
	}
	if len(lead.Emails) > 0 {
		props["Email"] = notionapi.EmailProperty{Email: lead.Emails[0]}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
	}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.target, "target", "salesforce", "export target: salesforce or notion")
	exportCmd.Flags().StringVar(&exportFlags.minGrade, "min-grade", "", "only export leads at or above this grade (A+, A, B, C, D)")
	rootCmd.AddCommand(exportCmd)
}
