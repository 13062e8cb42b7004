package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"binday/internal/browser"
	"binday/internal/logger"
	"binday/internal/present"
	"binday/internal/schedule"
	"binday/internal/scraper"
	"binday/internal/vocab"
)

const header = "Aberdeen City Council - Bin Collection Schedule Checker"

// errMissingInput is returned after the missing-input message has been shown.
var errMissingInput = errors.New("street number and postcode are required")

// lookuper resolves a query into a schedule.
type lookuper interface {
	Lookup(ctx context.Context, q schedule.Query) (*schedule.Schedule, error)
}

// newStaticLookup and newBrowserLookup are variables so tests can swap the
// network-facing implementations out.
var newStaticLookup = func(_ context.Context, v *viper.Viper, rules *vocab.Ruleset) (lookuper, func(), error) {
	cfg := scraper.DefaultConfig()
	if u := v.GetString("url"); u != "" {
		cfg.ServiceURL = u
	}
	return scraper.NewStatic(cfg, rules), func() {}, nil
}

var newBrowserLookup = func(ctx context.Context, v *viper.Viper, rules *vocab.Ruleset) (lookuper, func(), error) {
	cfg := browser.DefaultConfig()
	if u := v.GetString("url"); u != "" {
		cfg.ServiceURL = u
	}
	cfg.Headless = v.GetBool("headless")
	cfg.ExecPath = v.GetString("chrome-path")
	sess, err := browser.NewSession(ctx, cfg, rules)
	if err != nil {
		return nil, nil, err
	}
	return sess, sess.Close, nil
}

// isTerminal reports whether prompts should be shown for in.
var isTerminal = func(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := newRootCmd(in, out, errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errMissingInput) {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "binday [street-number postcode]",
		Short: "Look up the next bin collections for an Aberdeen address",
		Long: `binday looks up the bin collection calendar for an Aberdeen City Council
address. Unless exactly two arguments are given it prompts for the street
number and postcode.

By default the calendar form is fetched and submitted over plain HTTP. Use
--browser to drive a headless Chrome through the embedded form instead.`,
		Example: `  binday 3 "AB10 1AB"
  binday --browser --headless=false 3 "AB10 1AB"`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Init(logger.Options{
				Debug:  v.GetBool("debug"),
				Quiet:  v.GetBool("quiet"),
				Output: errOut,
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), v, args, in, out)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.Bool("browser", false, "use a headless browser instead of plain HTTP")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Duration("timeout", 2*time.Minute, "overall lookup timeout")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("chrome-path", "", "path to the Chrome executable")
	flags.String("url", "", "calendar service URL")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("BINDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func runLookup(ctx context.Context, v *viper.Viper, args []string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, strings.Repeat("-", len(header)))

	// Any other argument count falls back to prompting.
	var number, postcode string
	if len(args) == 2 {
		number, postcode = args[0], args[1]
	} else {
		number, postcode = prompt(in, out, isTerminal(in))
	}

	q, err := schedule.NewQuery(number, postcode)
	if err != nil {
		fmt.Fprintln(out, "\nError: Both street number and postcode are required.")
		return errMissingInput
	}

	fmt.Fprintf(out, "\nLooking up bin collection schedule for %s...\n", q)

	if timeout := v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rules := vocab.Default()
	open := newStaticLookup
	if v.GetBool("browser") {
		open = newBrowserLookup
	}
	l, closeFn, err := open(ctx, v, rules)
	if err != nil {
		return fmt.Errorf("start lookup: %w", err)
	}
	defer closeFn()

	s, lerr := l.Lookup(ctx, q)
	if lerr != nil {
		logger.Debug("lookup failed", "error", lerr)
	}
	return present.Render(out, s, lerr)
}

// prompt reads the street number and postcode from in, one per line. Typed
// postcodes are upper-cased.
func prompt(in io.Reader, out io.Writer, interactive bool) (number, postcode string) {
	sc := bufio.NewScanner(in)
	read := func(label string) string {
		if interactive {
			fmt.Fprint(out, label)
		}
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	if interactive {
		fmt.Fprintln(out, "\nPlease enter your details:")
	}
	number = read("Street number: ")
	postcode = strings.ToUpper(read("Postcode: "))
	return number, postcode
}
