package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newExecCmd(root *rootOptions) *cobra.Command {
	var scriptPath string

	cmd := &cobra.Command{
		Use:   "exec [code]",
		Short: "Run Python code on the device and print its output",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			code := strings.Join(args, " ")
			if scriptPath != "" {
				data, err := os.ReadFile(scriptPath)
				if err != nil {
					return err
				}
				code = string(data)
			}
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("nothing to run; pass code or --file")
			}

			session, cleanup, err := root.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := session.Execute(code, root.timeout)
			if err != nil {
				return err
			}

			if res.Output != "" {
				fmt.Println(res.Output)
			}
			if res.ExitCode != 0 {
				fmt.Fprintln(os.Stderr, res.ErrOutput)
				os.Exit(res.ExitCode)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "file", "f", "", "run a local script file instead of inline code")

	return cmd
}

func newResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Interrupt running code and return the REPL to a clean prompt",
		RunE: func(_ *cobra.Command, _ []string) error {
			session, cleanup, err := root.connect()
			if err != nil {
				return err
			}
			defer cleanup()

			return session.Reset()
		},
	}
}
