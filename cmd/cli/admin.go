package cli

import (
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "mutate the tree served by the rpc",
}

func init() {
	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txUpdateCmd)
	txCmd.AddCommand(txDeleteCmd)
}

var (
	txAddCmd = &cobra.Command{
		Use:   "add <key> <value>",
		Short: "insert a new entry",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Add(args[0], args[1]))
		},
	}

	txUpdateCmd = &cobra.Command{
		Use:   "update <key> <value>",
		Short: "replace the value of an existing entry",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Update(args[0], args[1]))
		},
	}

	txDeleteCmd = &cobra.Command{
		Use:   "delete <key>",
		Short: "remove an entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Delete(args[0]))
		},
	}
)
