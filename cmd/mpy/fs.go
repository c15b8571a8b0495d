package main

import (
	"fmt"
	"os"
	"path"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hirossan4049/mpy-sdk/device"
)

func newLsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory on the device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}

			client, cleanup, err := root.client()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := client.ListDir(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Kind, e.Name)
			}

			return w.Flush()
		},
	}
}

func newGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote> [local]",
		Short: "Copy a file from the device",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			remote := args[0]
			local := path.Base(remote)
			if len(args) == 2 {
				local = args[1]
			}

			client, cleanup, err := root.client()
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := client.ReadFile(remote)
			if err != nil {
				return err
			}
			if err := os.WriteFile(local, data, 0o644); err != nil {
				return err
			}

			fmt.Printf("%s -> %s (%d bytes)\n", remote, local, len(data))

			return nil
		},
	}
}

func newPutCmd(root *rootOptions) *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "put <local> [remote]",
		Short: "Copy a file to the device",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			local := args[0]
			remote := "/" + path.Base(local)
			if len(args) == 2 {
				remote = args[1]
			}

			data, err := os.ReadFile(local)
			if err != nil {
				return err
			}

			opts := []device.ClientOption{device.WithOpTimeout(root.timeout)}
			if chunkSize > 0 {
				opts = append(opts, device.WithChunkSize(chunkSize))
			}

			session, cleanup, err := root.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := device.NewClient(session, opts...)
			if err != nil {
				return err
			}

			err = client.WriteFile(remote, data, func(written, total int) {
				fmt.Printf("\r%s: %d/%d bytes", remote, written, total)
			})
			fmt.Println()
			if err != nil {
				return err
			}

			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "payload bytes per write chunk (default 2048)")

	return cmd
}

func newRmCmd(root *rootOptions) *cobra.Command {
	var recurseDir bool

	cmd := &cobra.Command{
		Use:   "rm <remote>",
		Short: "Delete a file or empty directory on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			client, cleanup, err := root.client()
			if err != nil {
				return err
			}
			defer cleanup()

			if recurseDir {
				return client.Rmdir(args[0])
			}

			return client.Remove(args[0])
		},
	}
	cmd.Flags().BoolVarP(&recurseDir, "dir", "d", false, "remove an empty directory instead of a file")

	return cmd
}
