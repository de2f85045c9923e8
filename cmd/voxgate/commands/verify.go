package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/voxgate/pkg/voxsdk"
)

// ErrRejected is returned when the password matched but the voice did not,
// so scripts see a non-zero exit.
var ErrRejected = errors.New("verification rejected")

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "verify <username>",
		Short: "Verify a password and recording against an enrollment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			secret, audio, err := creds.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var resp voxsdk.LoginResponse
			if root.remote != "" {
				r, err := voxsdk.NewClient(root.remote).Verify(ctx, username, string(secret), audio)
				if err != nil {
					return err
				}
				resp = *r
			} else {
				application, err := openApp(cmd)
				if err != nil {
					return err
				}
				defer application.Close()

				d, err := application.Verification().Verify(ctx, username, secret, audio)
				if err != nil {
					return err
				}
				resp = voxsdk.LoginResponse{Accepted: d.Accepted, Similarity: d.Similarity, Reason: string(d.Reason)}
			}

			if err := root.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "accepted=%t similarity=%.4f reason=%s\n", resp.Accepted, resp.Similarity, resp.Reason)
			}); err != nil {
				return err
			}
			if !resp.Accepted {
				return fmt.Errorf("%w: %s", ErrRejected, resp.Reason)
			}
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}
