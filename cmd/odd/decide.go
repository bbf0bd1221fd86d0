package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"odd-hq/decisioning/pkg/cli"
	"odd-hq/decisioning/pkg/config"
	"odd-hq/decisioning/pkg/decisioning"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/server"
)

var decideFlags struct {
	rules  string
	event  string
	url    string
	ecid   string
	output string
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate the ruleset for one event",
	Long: `Evaluate the ruleset for one event and print the response envelope.

The ruleset comes from --rules, or from the configured source when omitted. The
event is read from --event ("-" for stdin) or built for the page given by --url.

Examples:
  # Page view of an anonymous visitor
  odd decide --rules rules.json --url https://luma.com/men

  # Returning visitor
  odd decide --rules rules.json --url https://luma.com/men --ecid 4

  # Full event, JSON output
  odd decide --rules rules.json --event event.json --output json`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.rules, "rules", "r", "", "rules.json to evaluate (uses the configured source when empty)")
	decideCmd.Flags().StringVarP(&decideFlags.event, "event", "e", "", "event JSON file, - for stdin")
	decideCmd.Flags().StringVarP(&decideFlags.url, "url", "u", "", "page URL to build a page view event for")
	decideCmd.Flags().StringVar(&decideFlags.ecid, "ecid", "", "visitor ECID for --url events")
	decideCmd.Flags().StringVarP(&decideFlags.output, "output", "o", "text", "output format: text, json")
}

func runDecide(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(decideFlags.output))
	if err != nil {
		return err
	}

	event, err := readEvent(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var overrides []config.Override
	if decideFlags.rules != "" {
		overrides = append(overrides, localRules(decideFlags.rules))
	}
	cfg, err := loadConfig(overrides...)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	defer a.Close()

	resp, err := a.client.SendEvent(cmd.Context(), event)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), responseSummary{resp})
}

// localRules evaluates a single rules.json on device, without refresh.
func localRules(path string) config.Override {
	return func(cfg *config.Config) {
		cfg.Client.Mode = config.ModeODD
		cfg.Rules.Source = "file"
		cfg.Rules.FilePath = path
		cfg.Rules.Watch = false
		cfg.Rules.PollingInterval = 0
	}
}

// readEvent loads --event or builds a page view for --url.
func readEvent(stdin io.Reader) (map[string]any, error) {
	switch {
	case decideFlags.event != "" && decideFlags.url != "":
		return nil, cli.NewConfigError("event", "--event and --url are mutually exclusive")
	case decideFlags.event == "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		return decodeEvent(raw)
	case decideFlags.event != "":
		raw, err := os.ReadFile(decideFlags.event)
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		return decodeEvent(raw)
	case decideFlags.url != "":
		var identityMap map[string]any
		if decideFlags.ecid != "" {
			identityMap = edge.IdentityMap(decideFlags.ecid)
		}
		return server.PageEvent(decideFlags.url, identityMap), nil
	default:
		return nil, cli.NewConfigError("event", "one of --event or --url is required")
	}
}

func decodeEvent(raw []byte) (map[string]any, error) {
	event, err := edge.DecodeObject(raw)
	if err != nil {
		return nil, cli.NewConfigError("event", err.Error())
	}
	return event, nil
}

// responseSummary prints a response envelope as text and as the envelope
// itself in JSON.
type responseSummary struct {
	*decisioning.Response
}

func (s responseSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "request id: %s\n", s.RequestID)
	fmt.Fprintf(&b, "ecid: %s\n", s.ECID())

	propositions := s.Propositions()
	fmt.Fprintf(&b, "propositions: %d\n", len(propositions))
	for _, p := range propositions {
		fmt.Fprintf(&b, "  - %v (scope %v)\n", p.ID, p.Scope)
	}

	items := s.ContentItems()
	fmt.Fprintf(&b, "content items: %d\n", len(items))
	for _, item := range items {
		kind := item.Type
		if kind == "" {
			kind = "replaceWith"
		}
		fmt.Fprintf(&b, "  - %s %s\n", item.Selector, kind)
	}
	return b.String()
}
