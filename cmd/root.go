package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/cloudstorage/cmd/kv"
	"github.com/ValentinKolb/cloudstorage/cmd/util"
	"github.com/ValentinKolb/cloudstorage/cmd/watch"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "cloudstorage",
		Short: "typed values synchronised between devices",
		Long: fmt.Sprintf(`cloudstorage (v%s)

Read, write and watch typed values in a key-value store that is
synchronised between devices (file, redis or raft backend).

Every flag can also be set via environment variables in the format
CLOUDSTORAGE_<flag> (e.g. CLOUDSTORAGE_REDIS_ADDRESS=localhost:6379)
or in a .env / .env.local file.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cloudstorage",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cloudstorage v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(watch.WatchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
