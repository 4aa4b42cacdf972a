package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/horizon"
	"github.com/stellar/escrowchannel/submit"
	"github.com/stellar/escrowchannel/txbuild"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

func newEscrowCmd() *cobra.Command {
	escrowCmd := &cobra.Command{
		Use:   "escrow",
		Short: "manages the owner's escrow account on the Stellar network",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "creates the escrow account, funded by the creator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEscrow()
		},
	}
	f := createCmd.Flags()
	f.String("horizon-url", "http://localhost:8000", "Horizon URL")
	f.String("creator-signer", "", "secret seed of the account funding the escrow account")
	f.String("escrow", "", "address of the escrow account to create")
	f.String("starting-balance", "10", "starting balance of the escrow account")

	escrowCmd.AddCommand(createCmd)
	return escrowCmd
}

func createEscrow() error {
	creator, err := keypair.ParseFull(viper.GetString("creator-signer"))
	if err != nil {
		return fmt.Errorf("cannot parse --creator-signer: %w", err)
	}
	escrow, err := addressFlag("escrow")
	if err != nil {
		return err
	}
	startingBalance, err := amountFlag("starting-balance")
	if err != nil {
		return err
	}
	if startingBalance > 1<<63-1 {
		return fmt.Errorf("starting balance %s too large", formatAmount(startingBalance))
	}

	client := &horizonclient.Client{HorizonURL: viper.GetString("horizon-url")}
	root, err := client.Root()
	if err != nil {
		return fmt.Errorf("getting network details from horizon: %w", err)
	}
	h := &horizon.Horizon{HorizonClient: client}
	seqNum, err := h.GetSequenceNumber(creator.FromAddress())
	if err != nil {
		return err
	}

	tx, err := txbuild.CreateEscrow(txbuild.CreateEscrowParams{
		Creator:         creator.FromAddress(),
		Escrow:          escrow,
		SequenceNumber:  seqNum + 1,
		StartingBalance: int64(startingBalance),
	})
	if err != nil {
		return err
	}
	tx, err = tx.Sign(root.NetworkPassphrase, creator)
	if err != nil {
		return fmt.Errorf("signing tx: %w", err)
	}
	submitter := &submit.Submitter{
		SubmitTxer:        h,
		NetworkPassphrase: root.NetworkPassphrase,
		BaseFee:           txnbuild.MinBaseFee,
		Logger:            rootLog,
	}
	hash, err := submitter.SubmitTx(tx)
	if err != nil {
		return err
	}
	log.Infow("escrow account created", "escrow", escrow.Address(), "starting_balance", formatAmount(startingBalance), "hash", hash)
	return nil
}
