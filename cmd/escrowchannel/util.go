package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/programhttp"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
)

// parseAmount parses an amount with up to seven decimal places into
// stroops.
func parseAmount(s string) (uint64, error) {
	v, err := amount.ParseInt64(s)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("parsing amount %q: cannot be negative", s)
	}
	return uint64(v), nil
}

func formatAmount(v uint64) string {
	if v > 1<<63-1 {
		return fmt.Sprintf("%d stroops", v)
	}
	return amount.StringFromInt64(int64(v))
}

// addressFlag parses the address in the config key.
func addressFlag(key string) (*keypair.FromAddress, error) {
	s := viper.GetString(key)
	if s == "" {
		return nil, fmt.Errorf("--%s required", key)
	}
	a, err := keypair.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("cannot parse --%s: %w", key, err)
	}
	return a, nil
}

// amountFlag parses the amount in the config key, zero if unset.
func amountFlag(key string) (uint64, error) {
	s := viper.GetString(key)
	if s == "" {
		return 0, nil
	}
	v, err := parseAmount(s)
	if err != nil {
		return 0, fmt.Errorf("cannot parse --%s: %w", key, err)
	}
	return v, nil
}

// signersFlag parses the secret seeds in the config key.
func signersFlag(key string) ([]*keypair.Full, error) {
	seeds := viper.GetStringSlice(key)
	signers := make([]*keypair.Full, 0, len(seeds))
	for _, s := range seeds {
		kp, err := keypair.ParseFull(s)
		if err != nil {
			return nil, fmt.Errorf("cannot parse --%s: %w", key, err)
		}
		signers = append(signers, kp)
	}
	return signers, nil
}

// parseFunding parses ADDRESS=AMOUNT.
func parseFunding(s string) (*keypair.FromAddress, uint64, error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("parsing funding %q: expected ADDRESS=AMOUNT", s)
	}
	a, err := keypair.ParseAddress(parts[0])
	if err != nil {
		return nil, 0, fmt.Errorf("parsing funding %q: %w", s, err)
	}
	v, err := parseAmount(parts[1])
	if err != nil {
		return nil, 0, fmt.Errorf("parsing funding %q: %w", s, err)
	}
	return a, v, nil
}

func newClient() *programhttp.Client {
	return &programhttp.Client{BaseURL: viper.GetString("server")}
}

// openInput opens the file, or the command's input if the name is empty or
// "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// createOutput creates the file, or returns the command's output if the name
// is empty or "-".
func createOutput(cmd *cobra.Command, name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
