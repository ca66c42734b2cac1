package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jonathan/salary-insights/internal/assistant"
	"github.com/jonathan/salary-insights/internal/llm"
	"github.com/jonathan/salary-insights/internal/observability"
)

var (
	askJSON    bool
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one compensation question",
	Long:  "Load the dataset, select the records relevant to the question and print the model's formatted answer.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the answer as JSON")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Show the query strategy")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return eris.New("question is empty")
	}

	client, err := llm.NewClient(ctx, &cfg.LLM)
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := loadRecords(ctx, cfg.Store)
	if err != nil {
		return err
	}

	answer, err := assistant.New(client).Ask(ctx, question, records)
	if err != nil {
		if reply, ok := assistant.FallbackReply(err); ok {
			_, werr := os.Stdout.WriteString(reply + "\n")
			return werr
		}
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	p := observability.NewPrinter(os.Stdout)
	if askVerbose {
		p.PrintStrategy(&answer.Strategy)
	}
	p.PrintReply(answer.Formatted)
	return nil
}
