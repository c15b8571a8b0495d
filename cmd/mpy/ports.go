package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hirossan4049/mpy-sdk/board"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and recognized boards",
		RunE: func(_ *cobra.Command, _ []string) error {
			ports, err := board.Discover()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tVID:PID\tBOARD\tCHIP")
			for _, p := range ports {
				id, name, chip := "-", "-", "-"
				if p.VID != "" {
					id = p.VID + ":" + p.PID
				}
				if p.Board != nil {
					name = p.Board.Name
					chip = p.Board.Chip
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Path, id, name, chip)
			}

			return w.Flush()
		},
	}
}
