package cli

import (
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the tree rpc",
}

func init() {
	queryCmd.AddCommand(rootQueryCmd)
	queryCmd.AddCommand(sizeCmd)
	queryCmd.AddCommand(getCmd)
	queryCmd.AddCommand(proofCmd)
}

var (
	rootQueryCmd = &cobra.Command{
		Use:   "root",
		Short: "query the root and the node count of the tree",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Root())
		},
	}

	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "query the number of node records held by the tree",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := client.Root()
			if err != nil {
				writeToConsole(nil, err)
			}
			writeToConsole(resp.Nodes, nil)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "query the entry stored under a key; the value is omitted when the key is absent",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Entry(args[0]))
		},
	}

	proofCmd = &cobra.Command{
		Use:   "proof <key>",
		Short: "query a membership or non-membership proof for a key",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Proof(args[0]))
		},
	}
)
