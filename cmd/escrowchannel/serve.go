package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/horizon"
	"github.com/stellar/escrowchannel/ledger"
	"github.com/stellar/escrowchannel/ledger/memledger"
	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/escrowchannel/programhttp"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/escrowchannel/store/badgerstore"
	"github.com/stellar/escrowchannel/store/memstore"
	"github.com/stellar/escrowchannel/store/pgstore"
	"github.com/stellar/escrowchannel/submit"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serves the program over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	f := serveCmd.Flags()
	f.String("listen", ":8080", "address to listen for HTTP requests on")
	f.String("ledger", "memory", "ledger holding funds (memory, horizon)")
	f.String("horizon-url", "http://localhost:8000", "Horizon URL of the horizon ledger")
	f.String("network-passphrase", "", "network passphrase of the horizon ledger, defaults to the passphrase reported by Horizon")
	f.StringSlice("ledger-signer", nil, "secret seed the horizon ledger signs transfers with, repeatable")
	f.Int64("base-fee", txnbuild.MinBaseFee, "base fee of transactions submitted by the horizon ledger")
	f.String("fee-account-signer", "", "secret seed of an account that pays fee bumps of transfers below the base fee")
	f.StringSlice("fund", nil, "ADDRESS=AMOUNT to fund on the memory ledger at startup, repeatable")
	f.String("store", "memory", "record store (memory, badger, postgres)")
	f.String("badger-dir", "escrowchannel-data", "directory of the badger store")
	f.String("postgres-url", "", "URL of the postgres store")
	f.Bool("require-distinct-cosigners", false, "reject reallocations co-signed twice by the same party")
	f.Bool("reject-closed-channel", false, "reject reallocations and closes of closed channels")
	return serveCmd
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := newLedger()
	if err != nil {
		return err
	}
	s, err := newStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	p := program.NewProgram(program.Config{
		ProgramID: viper.GetString("program-id"),
		Ledger:    l,
		Store:     s,
		Policy: state.Policy{
			RequireDistinctCosigners: viper.GetBool("require-distinct-cosigners"),
			RejectClosedChannel:      viper.GetBool("reject-closed-channel"),
		},
		Logger: rootLog,
	})

	server := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           programhttp.New(p, rootLog),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		log.Infow("serving", "listen", server.Addr, "program_id", p.ProgramID())
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLedger() (ledger.Ledger, error) {
	switch kind := viper.GetString("ledger"); kind {
	case "memory":
		l := memledger.New()
		for _, s := range viper.GetStringSlice("fund") {
			a, v, err := parseFunding(s)
			if err != nil {
				return nil, err
			}
			if err := l.Fund(a, v); err != nil {
				return nil, err
			}
			log.Infow("funded account", "account", a.Address(), "amount", formatAmount(v))
		}
		return l, nil
	case "horizon":
		return newHorizonLedger()
	default:
		return nil, fmt.Errorf("unknown ledger %q", kind)
	}
}

func newHorizonLedger() (*horizon.Ledger, error) {
	client := &horizonclient.Client{HorizonURL: viper.GetString("horizon-url")}
	networkPassphrase := viper.GetString("network-passphrase")
	if networkPassphrase == "" {
		root, err := client.Root()
		if err != nil {
			return nil, fmt.Errorf("getting network details from horizon: %w", err)
		}
		networkPassphrase = root.NetworkPassphrase
	}
	signers, err := signersFlag("ledger-signer")
	if err != nil {
		return nil, err
	}

	// Transfers pay the base fee themselves, unless a fee account is
	// configured to pay for them with fee bumps.
	baseFee := viper.GetInt64("base-fee")
	submitter := &submit.Submitter{
		SubmitTxer:        &horizon.Horizon{HorizonClient: client},
		NetworkPassphrase: networkPassphrase,
		BaseFee:           baseFee,
		Logger:            rootLog,
	}
	if seed := viper.GetString("fee-account-signer"); seed != "" {
		feeAccount, err := keypair.ParseFull(seed)
		if err != nil {
			return nil, fmt.Errorf("cannot parse --fee-account-signer: %w", err)
		}
		submitter.FeeAccount = feeAccount.FromAddress()
		submitter.FeeAccountSigners = []*keypair.Full{feeAccount}
		baseFee = 0
	}

	return horizon.NewLedger(horizon.Config{
		HorizonClient:     client,
		NetworkPassphrase: networkPassphrase,
		BaseFee:           baseFee,
		Signers:           signers,
		Submitter:         submitter,
		Logger:            rootLog,
	}), nil
}

func newStore(ctx context.Context) (store.Store, error) {
	switch kind := viper.GetString("store"); kind {
	case "memory":
		return memstore.New(), nil
	case "badger":
		return badgerstore.Open(viper.GetString("badger-dir"), rootLog)
	case "postgres":
		s, err := pgstore.Open(viper.GetString("postgres-url"))
		if err != nil {
			return nil, err
		}
		if err := s.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
