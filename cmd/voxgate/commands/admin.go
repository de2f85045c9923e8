package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var errLocalOnly = errors.New("this command works on the local store and does not accept --remote")

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Remove an enrollment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.remote != "" {
				return errLocalOnly
			}
			username := args[0]

			application, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Enrollment().Delete(cmd.Context(), username); err != nil {
				return err
			}
			return root.print(cmd.OutOrStdout(), map[string]any{"username": username, "status": "deleted"}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s\n", username)
			})
		},
	}
}

func newPurgeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired enrollments now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.remote != "" {
				return errLocalOnly
			}

			application, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			n := application.Housekeeping().Purge(cmd.Context())
			return root.print(cmd.OutOrStdout(), map[string]any{"removed": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d expired enrollment(s)\n", n)
			})
		},
	}
}
