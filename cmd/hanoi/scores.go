// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zintix-labs/hanoilab/stats"
)

var (
	scoresCmd = &cobra.Command{
		Use:   "scores",
		Short: "Manage local best scores",
	}

	scoresListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print best scores per disk count",
		Args:  cobra.NoArgs,
		RunE:  runScoresList,
	}

	scoresExportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Write best scores as JSON (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScoresExport,
	}

	scoresImportCmd = &cobra.Command{
		Use:   "import <file|->",
		Short: "Merge best scores from an export file; only improvements are kept",
		Args:  cobra.ExactArgs(1),
		RunE:  runScoresImport,
	}

	scoresClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all local best scores",
		Args:  cobra.NoArgs,
		RunE:  runScoresClear,
	}

	clearYes bool
)

func init() {
	scoresClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm deletion")
	scoresCmd.AddCommand(scoresListCmd, scoresExportCmd, scoresImportCmd, scoresClearCmd)
}

func runScoresList(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	fmt.Fprint(out, stats.LedgerTable(e.lab.Ledger().Snapshot()))
	if e.lab.Ledger().Degraded() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: scores storage unavailable, showing in-memory values")
	}
	return nil
}

func runScoresExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	raw, err := e.lab.Ledger().Export(e.lab.Now())
	if err != nil {
		return err
	}
	if len(args) == 0 || args[0] == "-" {
		_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
		return err
	}
	return os.WriteFile(args[0], raw, 0o600)
}

func runScoresImport(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if args[0] == "-" {
		raw, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.lab.Ledger().Import(cmd.Context(), raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported: %d record(s) improved\n", n)
	return nil
}

func runScoresClear(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.lab.Ledger().Clear(cmd.Context(), clearYes); err != nil {
		if !clearYes {
			return fmt.Errorf("%w (pass --yes to confirm)", err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "scores cleared")
	return nil
}
