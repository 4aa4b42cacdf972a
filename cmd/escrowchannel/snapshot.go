package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"github.com/stellar/escrowchannel/program"
)

func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "exports the records held by a server",
	}
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "writes every record to the file, gzip compressed if the file name ends in .gz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newClient().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			err = writeSnapshotFile(args[0], s)
			if err != nil {
				return err
			}
			log.Infow("snapshot exported", "file", args[0], "channels", len(s.Channels), "identities", len(s.Identities))
			return nil
		},
	}
	snapshotCmd.AddCommand(exportCmd)
	return snapshotCmd
}

func writeSnapshotFile(filename string, s program.Snapshot) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", filename, cerr)
		}
	}()
	return writeSnapshot(f, strings.HasSuffix(filename, ".gz"), s)
}

func writeSnapshot(w io.Writer, compress bool, s program.Snapshot) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if !compress {
		_, err = w.Write(b)
		return err
	}
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(b); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	return nil
}
