package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"odd-hq/decisioning/pkg/cli"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/ruleset"
	"odd-hq/decisioning/pkg/ruleset/source"
	"odd-hq/decisioning/pkg/telemetry/logging"
)

var rulesFlags struct {
	schema   bool
	maxDepth int
	out      string
	output   string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and download rulesets",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate rules.json files",
	Long: `Validate one or more rules.json files against the ruleset schema and parse
their rule trees. Every file is checked; the command fails if any is invalid.

Examples:
  odd rules validate rules.json
  odd rules validate --schema=false legacy/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRulesValidate,
}

var rulesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the configured rules artifact",
	Long: `Download the rules artifact of the configured organization and property,
validate it, and write it to --out or stdout.

Examples:
  ODD_CLIENT_ORG_ID=1234@AdobeOrg ODD_CLIENT_PROPERTY_TOKEN=abc odd rules fetch
  odd rules fetch --config odd.yaml --out rules.json`,
	Args: cobra.NoArgs,
	RunE: runRulesFetch,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesFetchCmd)

	rulesCmd.PersistentFlags().BoolVar(&rulesFlags.schema, "schema", true, "validate against the ruleset JSON schema")
	rulesCmd.PersistentFlags().IntVar(&rulesFlags.maxDepth, "max-depth", 32, "maximum condition nesting depth")
	rulesValidateCmd.Flags().StringVarP(&rulesFlags.output, "output", "o", "text", "output format: text, json")
	rulesFetchCmd.Flags().StringVar(&rulesFlags.out, "out", "", "output file (stdout when empty)")
}

// rulesReport describes one validated rules document.
type rulesReport struct {
	Path     string `json:"path"`
	Valid    bool   `json:"valid"`
	Provider string `json:"provider,omitempty"`
	Rules    int    `json:"rules"`
	Error    string `json:"error,omitempty"`
}

type rulesReports []rulesReport

func (r rulesReports) Text() string {
	var b strings.Builder
	for _, report := range r {
		if !report.Valid {
			fmt.Fprintf(&b, "%s: invalid: %s\n", report.Path, report.Error)
			continue
		}
		provider := report.Provider
		if provider == "" {
			provider = "none"
		}
		fmt.Fprintf(&b, "%s: ok (%d rules, provider %s)\n", report.Path, report.Rules, provider)
	}
	return b.String()
}

func rulesParser() *ruleset.Parser {
	return ruleset.NewParser().
		WithSchemaValidation(rulesFlags.schema).
		WithMaxDepth(rulesFlags.maxDepth)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(rulesFlags.output))
	if err != nil {
		return err
	}

	parser := rulesParser()
	reports := make(rulesReports, 0, len(args))
	invalid := 0
	for _, path := range args {
		report := rulesReport{Path: path}
		rs, err := parseRulesFile(parser, path)
		if err != nil {
			report.Error = err.Error()
			invalid++
		} else {
			report.Valid = true
			report.Provider = rs.Provider()
			report.Rules = len(rs.Rules)
		}
		reports = append(reports, report)
	}

	if err := formatter.FormatTo(cmd.OutOrStdout(), reports); err != nil {
		return err
	}
	if invalid > 0 {
		return cli.NewCommandError("rules validate", fmt.Errorf("%d of %d files invalid", invalid, len(args)))
	}
	return nil
}

func parseRulesFile(parser *ruleset.Parser, path string) (*ruleset.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(data)
}

func runRulesFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Client.OrgID == "" {
		return cli.NewConfigError("client.org_id", "org id is required to fetch rules")
	}

	logger, err := logging.New(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	src := source.NewHTTPSource(source.URLOptions{
		OrgID:         cfg.Client.OrgID,
		DatastreamID:  cfg.Client.DatastreamID,
		PropertyToken: cfg.Client.PropertyToken,
		RuleDomain:    cfg.Rules.Domain,
		RuleBasePath:  cfg.Rules.BasePath,
	}, edge.NewHTTPFetcher(cfg.Client.Timeout, logger))

	logger.Info("fetching rules", "url", src.URL())
	doc, err := src.Load(cmd.Context())
	if err != nil {
		return cli.NewCommandError("rules fetch", err)
	}

	rs, err := rulesParser().ParseDocument(doc)
	if err != nil {
		return cli.NewCommandError("rules fetch", err)
	}
	logger.Info("rules fetched", "provider", rs.Provider(), "rule_count", len(rs.Rules))

	out := cmd.OutOrStdout()
	if rulesFlags.out != "" {
		f, err := os.Create(rulesFlags.out)
		if err != nil {
			return cli.NewCommandError("rules fetch", err)
		}
		defer f.Close()
		out = f
	}

	formatter := &cli.JSONFormatter{Indent: true}
	if err := formatter.FormatTo(out, doc); err != nil {
		return cli.NewCommandError("rules fetch", err)
	}
	return nil
}
