package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/chatclient"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/observability"
)

var (
	chatServer    string
	chatFamilies  []string
	chatLevels    []string
	chatCountries []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server",
	Long:  "Open an interactive chat session against the /api/chat endpoint of a running server.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:8080", "Base URL of the API server")
	chatCmd.Flags().StringSliceVar(&chatFamilies, "family", nil, "Dashboard family filter sent with each question")
	chatCmd.Flags().StringSliceVar(&chatLevels, "level", nil, "Dashboard level filter sent with each question")
	chatCmd.Flags().StringSliceVar(&chatCountries, "country", nil, "Dashboard country filter sent with each question")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	conv := chatclient.NewConversation(chatclient.New(chatServer, nil))
	conv.SetFilters(dataset.Filter{Families: chatFamilies, Levels: chatLevels, Countries: chatCountries})
	return chatLoop(cmd.Context(), conv, os.Stdin, os.Stdout)
}

// chatLoop reads questions line by line until EOF or "exit".
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func chatLoop(ctx context.Context, conv *chatclient.Conversation, in io.Reader, out io.Writer) error {
	p := observability.NewPrinter(out)

	for _, m := range conv.Messages() {
		fmt.Fprintln(out, m.Text)
	}
	if !conv.Started() {
		fmt.Fprintln(out, "\nTry asking:")
		for _, q := range chatclient.QuickQuestions {
			fmt.Fprintf(out, "  • %s\n", q)
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := conv.Send(ctx, line)
		switch {
		case errors.Is(err, chatclient.ErrEmptyMessage), errors.Is(err, chatclient.ErrStaleReply):
			continue
		case err != nil:
			zap.L().Debug("chat request failed", zap.Error(err))
			fmt.Fprintln(out, reply.Text)
		case reply.Formatted != nil:
			p.PrintReply(*reply.Formatted)
		default:
			fmt.Fprintln(out, reply.Text)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
