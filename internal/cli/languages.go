package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mgpai22/vtt-translate/internal/language"
	"github.com/mgpai22/vtt-translate/internal/translate"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages Azure Translator can translate to",
	Long: `List the Azure AI Translator translation languages with their writing
direction. Languages vtt-translate accepts for --source-language and
--target-language are marked as supported.

No Azure key is needed for this command.

Examples:
  vtt-translate languages
  vtt-translate languages --supported`,
	Args: cobra.NoArgs,
	RunE: runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)

	languagesCmd.Flags().
		Bool("supported", false, "Only list languages vtt-translate supports")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	onlySupported, _ := cmd.Flags().GetBool("supported")

	logger.Debugw("Fetching Azure language list", "endpoint", cfg.Azure.Endpoint)

	infos, err := translate.ListAzureLanguages(cmd.Context(), translate.Options{
		Endpoint: cfg.Azure.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to list languages: %w", err)
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		_, err := language.Parse(info.Code)
		supported := err == nil
		if onlySupported && !supported {
			continue
		}
		mark := ""
		if supported {
			mark = "yes"
		}
		rows = append(rows, []string{
			info.Code,
			info.Name,
			info.NativeName,
			strings.ToUpper(info.Dir),
			mark,
		})
	}

	logger.Debugw("Fetched Azure language list", "languages", len(infos), "shown", len(rows))

	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
		{title: "Code", align: text.AlignLeft},
		{title: "Name", align: text.AlignLeft},
		{title: "Native name", align: text.AlignLeft},
		{title: "Direction", align: text.AlignCenter},
		{title: "Supported", align: text.AlignCenter},
	}, rows))
	return nil
}
