package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

func newEnrollCmd(root *rootOptions) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "enroll <username>",
		Short: "Enroll a username with a password and a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			secret, audio, err := creds.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if root.remote != "" {
				if _, err := voxsdk.NewClient(root.remote).Enroll(ctx, username, string(secret), audio); err != nil {
					return err
				}
			} else {
				application, err := openApp(cmd)
				if err != nil {
					return err
				}
				defer application.Close()

				if err := application.Enrollment().Enroll(ctx, username, secret, audio); err != nil {
					return err
				}
			}

			return root.print(cmd.OutOrStdout(), voxsdk.EnrollResponse{Username: username}, func(w io.Writer) {
				fmt.Fprintf(w, "Enrolled %s\n", username)
			})
		},
	}
	creds.register(cmd)
	return cmd
}
