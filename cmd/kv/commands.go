package kv

import (
	"fmt"
	"os"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store/dstore"
	"github.com/spf13/cobra"
)

// syncTimeout bounds the synchronisation done before a command exits
const syncTimeout = 30 * time.Second

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key and synchronises the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := valueType(cmd)
			if err != nil {
				return err
			}
			if err := SetValue(session.Sync, t, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set %s: %w", args[0], err)
			}
			if err := session.Synchronize(syncTimeout); err != nil {
				return fmt.Errorf("failed to synchronise: %w", err)
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := valueType(cmd)
			if err != nil {
				return err
			}
			if err := session.Synchronize(syncTimeout); err != nil {
				return fmt.Errorf("failed to synchronise: %w", err)
			}
			value, ok, err := GetValue(session.Sync, t, args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("key=%s, found=true, value=%s\n", args[0], value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key and synchronises the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Sync.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}
			if err := session.Synchronize(syncTimeout); err != nil {
				return fmt.Errorf("failed to synchronise: %w", err)
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Synchronises the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := session.Synchronize(syncTimeout); err != nil {
				return err
			}
			fmt.Printf("synchronised in %s\n", time.Since(start).Round(time.Millisecond))

			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				if ds, ok := session.Store.(*dstore.Store); ok {
					ds.WriteMetrics(os.Stdout)
				} else {
					fmt.Printf("no statistics available for the %s backend\n", session.Config.Backend)
				}
			}
			return nil
		},
	}
)

func valueType(cmd *cobra.Command) (ValueType, error) {
	raw, err := cmd.Flags().GetString("type")
	if err != nil {
		return "", err
	}
	return ParseValueType(raw)
}
