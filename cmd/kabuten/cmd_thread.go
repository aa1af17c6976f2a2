package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kabuten/internal/thread"
)

var threadOut string

// threadCmd groups thread persistence handoff commands
var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Export or import a sector thread as NDJSON",
}

var threadExportCmd = &cobra.Command{
	Use:   "export [sector]",
	Short: "Write a sector's saved thread as NDJSON (stdout or --out)",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadExport,
}

var threadImportCmd = &cobra.Command{
	Use:   "import [sector] [file]",
	Short: "Replace a sector's saved thread with an NDJSON file",
	Args:  cobra.ExactArgs(2),
	RunE:  runThreadImport,
}

func init() {
	threadExportCmd.Flags().StringVarP(&threadOut, "out", "o", "", "Output file (default: stdout)")
	threadCmd.AddCommand(threadExportCmd)
	threadCmd.AddCommand(threadImportCmd)
}

func runThreadExport(cmd *cobra.Command, args []string) error {
	key := args[0]
	sectors, st, err := openStoreAndRoster()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, ok := findSector(sectors, key); !ok {
		return fmt.Errorf("unknown sector: %s", key)
	}
	entries, _, err := st.LoadThread(key)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if threadOut != "" {
		f, err := os.Create(threadOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", threadOut, err)
		}
		defer f.Close()
		w = f
	}
	if err := thread.WriteEntries(w, entries); err != nil {
		return err
	}
	if threadOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries for %s to %s\n", len(entries), key, threadOut)
	}
	return nil
}

func runThreadImport(cmd *cobra.Command, args []string) error {
	key, path := args[0], args[1]
	sectors, st, err := openStoreAndRoster()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, ok := findSector(sectors, key); !ok {
		return fmt.Errorf("unknown sector: %s", key)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := thread.ReadEntries(bufio.NewReader(f))
	if err != nil {
		return err
	}
	if err := st.SaveThread(key, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries into %s\n", len(entries), key)
	return nil
}
