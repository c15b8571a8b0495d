package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show firmware and hardware identity of the device",
		RunE: func(_ *cobra.Command, _ []string) error {
			client, cleanup, err := root.client()
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := client.Info()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "platform\t%s\n", info.Platform)
			fmt.Fprintf(w, "version\t%s\n", info.Version)
			fmt.Fprintf(w, "machine\t%s\n", info.Machine)
			if info.FlashSize > 0 {
				fmt.Fprintf(w, "flash\t%d bytes\n", info.FlashSize)
			}
			if info.FreeMemory > 0 {
				fmt.Fprintf(w, "free memory\t%d bytes\n", info.FreeMemory)
			}
			if info.MAC != "" {
				fmt.Fprintf(w, "mac\t%s\n", info.MAC)
			}

			return w.Flush()
		},
	}
}
