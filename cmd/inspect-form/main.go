// Command inspect-form fetches the bin calendar page and prints its forms,
// scripts and iframes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"binday/internal/inspect"
	"binday/internal/logger"
	"binday/internal/scraper"
	"binday/internal/vocab"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd(out, errOut io.Writer) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "inspect-form",
		Short:         "Dump the form structure of the bin calendar page",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(logger.Options{Debug: v.GetBool("debug"), Output: errOut})
			return inspectPage(cmd.Context(), v.GetString("url"), v.GetString("save"), out)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.String("url", scraper.ServiceURL, "page to inspect")
	flags.String("save", "", "also write the raw page to this path")
	flags.Bool("debug", false, "enable debug logging")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("BINDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func inspectPage(ctx context.Context, target, save string, out io.Writer) error {
	fmt.Fprintf(out, "Fetching: %s\n", target)

	page, err := scraper.NewStatic(scraper.DefaultConfig(), nil).Fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	fmt.Fprintf(out, "Status: %d\n\n", page.StatusCode)

	if save != "" {
		if err := os.WriteFile(save, page.Body, 0644); err != nil {
			return fmt.Errorf("save page: %w", err)
		}
		logger.Info("Saved page", "path", save)
	}

	doc, err := page.Document()
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	return inspect.Write(out, doc, len(page.Body), vocab.Default())
}
