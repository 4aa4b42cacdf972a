package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/go/keypair"
)

func newChannelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channel <address>",
		Short: "shows a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := keypair.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("cannot parse address: %w", err)
			}
			c, err := newClient().Channel(cmd.Context(), address)
			if err != nil {
				return err
			}
			return msg.NewEncoder(cmd.OutOrStdout()).Encode(c)
		},
	}
}

func newIdentityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identity <address>",
		Short: "shows an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := keypair.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("cannot parse address: %w", err)
			}
			i, err := newClient().Identity(cmd.Context(), address)
			if err != nil {
				return err
			}
			return msg.NewEncoder(cmd.OutOrStdout()).Encode(i)
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generates a new key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keypair.Random()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "address:", kp.Address())
			fmt.Fprintln(cmd.OutOrStdout(), "seed:", kp.Seed())
			return nil
		},
	}
}
