package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/escrowchannel/program"
)

func newInstructionCmd() *cobra.Command {
	instructionCmd := &cobra.Command{
		Use:   "instruction",
		Short: "builds unsigned instructions",
	}
	instructionCmd.PersistentFlags().String("out", "-", "file to write the envelope to")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "builds an instruction registering a display name for a party",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := addressFlag("identity")
			if err != nil {
				return err
			}
			party, err := addressFlag("party")
			if err != nil {
				return err
			}
			return writeInstruction(cmd, &program.RegisterIdentity{
				Identity:    identity,
				Party:       party,
				DisplayName: viper.GetString("name"),
			})
		},
	}
	registerCmd.Flags().String("identity", "", "address of the identity record, whose key must sign")
	registerCmd.Flags().String("party", "", "address of the registering party")
	registerCmd.Flags().String("name", "", "display name")

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "builds an instruction opening a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := &program.OpenChannel{}
			var err error
			if op.Channel, err = addressFlag("channel"); err != nil {
				return err
			}
			if op.Owner, err = addressFlag("owner"); err != nil {
				return err
			}
			if op.PartyA, err = addressFlag("party-a"); err != nil {
				return err
			}
			if op.PartyB, err = addressFlag("party-b"); err != nil {
				return err
			}
			if op.ContributionA, err = amountFlag("contribution-a"); err != nil {
				return err
			}
			if op.ContributionB, err = amountFlag("contribution-b"); err != nil {
				return err
			}
			return writeInstruction(cmd, op)
		},
	}
	openCmd.Flags().String("channel", "", "address of the channel record, whose key must sign")
	openCmd.Flags().String("owner", "", "address of the escrow owner")
	openCmd.Flags().String("party-a", "", "address of party a")
	openCmd.Flags().String("contribution-a", "0", "amount party a contributes")
	openCmd.Flags().String("party-b", "", "address of party b")
	openCmd.Flags().String("contribution-b", "0", "amount party b contributes")

	reallocateCmd := &cobra.Command{
		Use:   "reallocate",
		Short: "builds an instruction reallocating the balances of a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := &program.ReallocateBalance{}
			var err error
			if op.Channel, err = addressFlag("channel"); err != nil {
				return err
			}
			if op.Signer1, err = addressFlag("signer-1"); err != nil {
				return err
			}
			if op.Signer2, err = addressFlag("signer-2"); err != nil {
				return err
			}
			if op.NewBalanceA, err = amountFlag("balance-a"); err != nil {
				return err
			}
			if op.NewBalanceB, err = amountFlag("balance-b"); err != nil {
				return err
			}
			return writeInstruction(cmd, op)
		},
	}
	reallocateCmd.Flags().String("channel", "", "address of the channel record")
	reallocateCmd.Flags().String("signer-1", "", "address of the first co-signer")
	reallocateCmd.Flags().String("signer-2", "", "address of the second co-signer")
	reallocateCmd.Flags().String("balance-a", "0", "new balance of party a")
	reallocateCmd.Flags().String("balance-b", "0", "new balance of party b")

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "builds an instruction closing a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := &program.CloseChannel{}
			var err error
			if op.Channel, err = addressFlag("channel"); err != nil {
				return err
			}
			if op.Owner, err = addressFlag("owner"); err != nil {
				return err
			}
			if op.Signer, err = addressFlag("signer"); err != nil {
				return err
			}
			if op.RecipientA, err = addressFlag("recipient-a"); err != nil {
				return err
			}
			if op.RecipientB, err = addressFlag("recipient-b"); err != nil {
				return err
			}
			return writeInstruction(cmd, op)
		},
	}
	closeCmd.Flags().String("channel", "", "address of the channel record")
	closeCmd.Flags().String("owner", "", "address of the escrow owner")
	closeCmd.Flags().String("signer", "", "address of the closing party")
	closeCmd.Flags().String("recipient-a", "", "address receiving party a's balance")
	closeCmd.Flags().String("recipient-b", "", "address receiving party b's balance")

	instructionCmd.AddCommand(registerCmd, openCmd, reallocateCmd, closeCmd)
	return instructionCmd
}

func writeInstruction(cmd *cobra.Command, op interface{}) error {
	i, err := program.NewInstruction(viper.GetString("program-id"), op)
	if err != nil {
		return err
	}
	out, err := createOutput(cmd, viper.GetString("out"))
	if err != nil {
		return err
	}
	defer out.Close()
	return msg.WriteEnvelope(out, program.Envelope{Instruction: i, Signatures: []program.Signature{}})
}
