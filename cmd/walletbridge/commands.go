// file: cmd/walletbridge/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/bridge"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "walletbridge",
		Short: "Drive a wallet adapter session from the terminal",
		Long: `walletbridge connects a wallet adapter to the in-process development
wallet and runs lifecycle and signing operations against it.

Readiness requires an interactive terminal on stdin. Set
WALLETBRIDGE_ASSUME_TTY=1 to run under CI or with redirected input.

Example:
  walletbridge status
  walletbridge connect --config ~/.config/walletbridge/config.yaml
  walletbridge sign-message --message "hello"
  walletbridge submit --payload '{"function":"0x1::coin::transfer"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to configuration file (default "+configDefaultHint+")")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newStatusCmd(flags),
		newConnectCmd(flags),
		newSignMessageCmd(flags),
		newSubmitCmd(flags),
	)
	return root
}

const configDefaultHint = "~/.config/walletbridge/config.yaml"

// withApp builds the app, runs fn, and tears the session down.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(flags.configPath, flags.debug)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "walletbridge %s (commit %s, built %s, %s)\n",
				Version, commitHash, buildDate, runtime.Version())
			return err
		},
	}
}

type statusOutput struct {
	Wallet     string `json:"wallet"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
	Connected  bool   `json:"connected"`
	Network    string `json:"network"`
	ChainID    string `json:"chainId,omitempty"`
	Endpoint   string `json:"apiEndpoint,omitempty"`
	Address    string `json:"address,omitempty"`
	Errors     any    `json:"errors,omitempty"`
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show readiness, connection and network state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				a.waitReady(ctx, wait)
				snap := a.adapter.Snapshot()
				m := a.metrics.Snapshot()
				out := statusOutput{
					Wallet:     a.adapter.Name(),
					URL:        a.adapter.URL(),
					ReadyState: string(snap.ReadyState),
					Connected:  snap.Connected,
					Network:    string(snap.Network.Name),
					ChainID:    snap.Network.ChainID,
					Endpoint:   snap.Network.APIEndpoint,
					Address:    snap.Account.Address,
				}
				if len(m.Errors) > 0 {
					out.Errors = m.Errors
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to wait for provider detection")
	return cmd
}

type accountOutput struct {
	Address         string `json:"address"`
	PublicKey       string `json:"publicKey"`
	AuthKey         string `json:"authKey"`
	MinKeysRequired *int   `json:"minKeysRequired,omitempty"`
	Network         string `json:"network"`
	ChainID         string `json:"chainId"`
	Endpoint        string `json:"apiEndpoint"`
}

func newConnectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect and print the account and network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.connect(ctx); err != nil {
					return errors.Wrap(err, "connect failed")
				}
				acc := a.adapter.Account()
				net := a.adapter.Network()
				return writeJSON(cmd.OutOrStdout(), accountOutput{
					Address:         acc.Address,
					PublicKey:       hexutil.Encode(acc.PublicKey),
					AuthKey:         hexutil.Encode(acc.AuthKey),
					MinKeysRequired: acc.MinKeysRequired,
					Network:         string(net.Name),
					ChainID:         net.ChainID,
					Endpoint:        net.APIEndpoint,
				})
			})
		},
	}
}

func newSignMessageCmd(flags *rootFlags) *cobra.Command {
	var (
		message string
		nonce   string
	)
	cmd := &cobra.Command{
		Use:   "sign-message",
		Short: "Connect and sign an arbitrary message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if message == "" {
				return errors.New("--message is required")
			}
			if nonce == "" {
				nonce = strconv.FormatInt(time.Now().UnixNano(), 10)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.connect(ctx); err != nil {
					return errors.Wrap(err, "connect failed")
				}
				resp, err := a.adapter.SignMessage(ctx, bridge.SignMessagePayload{
					Address:     true,
					Application: true,
					ChainID:     true,
					Message:     message,
					Nonce:       nonce,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "message to sign")
	cmd.Flags().StringVar(&nonce, "nonce", "", "nonce to include (default: current time)")
	return cmd
}

func newSubmitCmd(flags *rootFlags) *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Connect, sign and submit a transaction payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !json.Valid([]byte(payload)) {
				return errors.WithHint(errors.New("--payload must be a JSON document"),
					`for example --payload '{"function":"0x1::coin::transfer"}'`)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.connect(ctx); err != nil {
					return errors.Wrap(err, "connect failed")
				}
				resp, err := a.adapter.SignAndSubmitTransaction(ctx, bridge.Payload(payload))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "transaction payload as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
