package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kitsunedns/dns"
	"kitsunedns/resolver"
)

func getCmdResolve(c *rootCommand) *cobra.Command {
	var qtypeName string
	var rootServer string

	resolveCmd := &cobra.Command{
		Use:   "resolve <domain>",
		Short: "Resolve a single domain and print the answer",
		Long:  "Resolve a domain iteratively from the root servers, without starting the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qtype, err := recordTypeFromName(qtypeName)
			if err != nil {
				return err
			}

			packet, ip, err := resolver.New(rootServer, c.logger).Resolve(args[0], qtype)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			answer := color.New(color.FgGreen, color.Bold)
			fmt.Fprintf(out, "%s resolved to %s\n", args[0], answer.Sprint(ip))

			if len(packet.Answers) > 0 {
				fmt.Fprintln(out)
				for _, rr := range packet.Answers {
					fmt.Fprintf(out, "  %s\t%d\t%s\t%s\n", rr.Name, rr.TTL, rr.Type, rr.DataString())
				}
			}
			return nil
		},
	}

	flags := resolveCmd.Flags()
	flags.StringVarP(&qtypeName, "type", "t", "A", "record type to query (A or AAAA)")
	flags.StringVar(&rootServer, "root-server", resolver.RootServer, "nameserver to start the resolution from")
	return resolveCmd
}

// recordTypeFromName maps a flag value to a queryable record type. Only
// address lookups can complete a resolution, so only A and AAAA are offered.
func recordTypeFromName(name string) (dns.RecordType, error) {
	switch strings.ToUpper(name) {
	case "A":
		return dns.TypeA, nil
	case "AAAA":
		return dns.TypeAAAA, nil
	default:
		return 0, fmt.Errorf("unsupported record type %q (use A or AAAA)", name)
	}
}
