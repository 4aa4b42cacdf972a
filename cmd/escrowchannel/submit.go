package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/msg"
)

func newSubmitCmd() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "submits a signed envelope to a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, viper.GetString("in"))
			if err != nil {
				return err
			}
			defer in.Close()
			e, err := msg.ReadEnvelope(in)
			if err != nil {
				return err
			}
			result, err := newClient().Submit(cmd.Context(), e)
			if err != nil {
				return err
			}
			log.Infow("instruction processed", "instruction", result.InstructionID.String(), "type", string(result.Type))
			return msg.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
	submitCmd.Flags().String("in", "-", "file to read the envelope from")
	return submitCmd
}
