package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/msg"
)

func newSignCmd() *cobra.Command {
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "adds signatures to an envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signers, err := signersFlag("signer")
			if err != nil {
				return err
			}
			if len(signers) == 0 {
				return errors.New("--signer required")
			}
			in, err := openInput(cmd, viper.GetString("in"))
			if err != nil {
				return err
			}
			defer in.Close()
			e, err := msg.ReadEnvelope(in)
			if err != nil {
				return err
			}
			e, err = e.Sign(viper.GetString("program-id"), signers...)
			if err != nil {
				return err
			}
			out, err := createOutput(cmd, viper.GetString("out"))
			if err != nil {
				return err
			}
			defer out.Close()
			return msg.WriteEnvelope(out, e)
		},
	}
	signCmd.Flags().String("in", "-", "file to read the envelope from")
	signCmd.Flags().String("out", "-", "file to write the signed envelope to")
	signCmd.Flags().StringSlice("signer", nil, "secret seed to sign with, repeatable")
	return signCmd
}
