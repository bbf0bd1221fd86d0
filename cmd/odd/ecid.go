package main

import (
	"github.com/spf13/cobra"

	"odd-hq/decisioning/pkg/cli"
	"odd-hq/decisioning/pkg/identity"
)

var ecidFlags struct {
	org    string
	fpid   string
	output string
}

var ecidCmd = &cobra.Command{
	Use:   "ecid",
	Short: "Generate an experience cloud id",
	Long: `Generate an experience cloud id (ECID).

Without --fpid a random ECID is printed. With --fpid the ECID is derived from
the organization and the first-party id, and is the same on every run.

Examples:
  odd ecid
  odd ecid --org 1234@AdobeOrg --fpid visitor-42 --output json`,
	Args: cobra.NoArgs,
	RunE: runECID,
}

func init() {
	rootCmd.AddCommand(ecidCmd)

	ecidCmd.Flags().StringVar(&ecidFlags.org, "org", "", "IMS organization id, required with --fpid")
	ecidCmd.Flags().StringVar(&ecidFlags.fpid, "fpid", "", "first-party id to derive the ECID from")
	ecidCmd.Flags().StringVarP(&ecidFlags.output, "output", "o", "text", "output format: text, json")
}

// ecidResult is the output of the ecid command.
type ecidResult struct {
	ECID  string `json:"ecid"`
	OrgID string `json:"orgId,omitempty"`
	FPID  string `json:"fpid,omitempty"`
}

func (r ecidResult) Text() string {
	return r.ECID + "\n"
}

func runECID(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(ecidFlags.output))
	if err != nil {
		return err
	}

	ids := identity.NewGenerator()
	result := ecidResult{OrgID: ecidFlags.org, FPID: ecidFlags.fpid}
	switch {
	case ecidFlags.fpid == "":
		result.ECID, err = ids.Random()
	case ecidFlags.org == "":
		return cli.NewConfigError("org", "--org is required with --fpid")
	default:
		result.ECID, err = ids.FromExternalID(ecidFlags.org, ecidFlags.fpid)
	}
	if err != nil {
		return cli.NewCommandError("ecid", err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), result)
}
