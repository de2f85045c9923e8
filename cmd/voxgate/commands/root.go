package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/app"
)

type rootOptions struct {
	remote string
	format string
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "voxgate",
		Short: "Voice biometric enrollment and verification",
		Long: `voxgate binds an account to a password and a voice sample, then checks
later attempts against both.

Commands:
  serve     Run the HTTP service
  enroll    Enroll a username with a password and a recording
  verify    Verify a password and recording against an enrollment
  delete    Remove an enrollment
  purge     Remove expired enrollments now

Configuration comes from VOXGATE_* environment variables, optionally layered
over a YAML file named by VOXGATE_CONFIG_FILE.

Examples:
  voxgate serve
  voxgate enroll alice --audio alice.wav --password-stdin < pw.txt
  voxgate verify alice --audio attempt.webm --password hunter2
  voxgate verify alice --audio attempt.wav --password hunter2 --remote http://localhost:8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.remote, "remote", "", "base URL of a running voxgate server; enroll and verify go through its API")
	root.PersistentFlags().StringVar(&opts.format, "format", "table", "output format: table, json")

	root.AddCommand(
		newServeCmd(),
		newEnrollCmd(opts),
		newVerifyCmd(opts),
		newDeleteCmd(opts),
		newPurgeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// openApp assembles the application from the environment for commands that
// work on the local store. Logs go to stderr so stdout stays parseable.
func openApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, app.Options{LogOutput: cmd.ErrOrStderr()})
}

func (o *rootOptions) print(w io.Writer, v any, table func(io.Writer)) error {
	if o.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(w)
	return nil
}

// credentialFlags are shared by enroll and verify.
type credentialFlags struct {
	audioPath     string
	password      string
	passwordStdin bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.audioPath, "audio", "", "path to a WAV or WebM/Opus recording")
	cmd.Flags().StringVar(&f.password, "password", "", "account password")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("audio")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func (f *credentialFlags) load(cmd *cobra.Command) (secret, audio []byte, err error) {
	secret = []byte(f.password)
	if f.passwordStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, fmt.Errorf("read password: %w", err)
		}
		secret = []byte(strings.TrimRight(string(data), "\r\n"))
	}
	if len(secret) == 0 {
		return nil, nil, errors.New("a password is required: use --password or --password-stdin")
	}

	audio, err = os.ReadFile(f.audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read audio: %w", err)
	}
	return secret, audio, nil
}
