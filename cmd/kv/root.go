package kv

import (
	"github.com/ValentinKolb/cloudstorage/cmd/util"
	"github.com/spf13/cobra"
)

var (
	session *util.Session

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Read and write typed values",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(syncCmd)

	// Add flags
	for _, cmd := range []*cobra.Command{setCmd, getCmd} {
		cmd.Flags().String("type", string(TypeString), util.WrapString("Type of the value (bool, int, double, string, url, data)"))
	}
	syncCmd.Flags().Bool("stats", false, util.WrapString("Print the statistics of the store backend after synchronising (raft backend only)"))
}

// openSession opens the store selected by the flags
func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

// closeSession closes the store opened by openSession
func closeSession(_ *cobra.Command, _ []string) error {
	if session == nil {
		return nil
	}
	return session.Close()
}
