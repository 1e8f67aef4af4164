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
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/puzzle"
	"github.com/zintix-labs/hanoilab/stats"
	"github.com/zintix-labs/hanoilab/storage/httprank"
)

var (
	leaderboardCmd = &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Inspect or copy the global leaderboard",
	}

	leaderboardShowCmd = &cobra.Command{
		Use:   "show <disks>",
		Short: "Print the top entries and a summary for one disk count",
		Args:  cobra.ExactArgs(1),
		RunE:  runLeaderboardShow,
	}

	leaderboardCopyCmd = &cobra.Command{
		Use:   "copy --to <url>",
		Short: "Copy every board from the configured leaderboard to a remote server",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCopy,
	}

	showFormat string
	copyTo     string
	copyMerge  bool
)

func init() {
	leaderboardShowCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "output format: table|json|yaml")
	leaderboardCopyCmd.Flags().StringVar(&copyTo, "to", "", "destination leaderboard base url")
	leaderboardCopyCmd.Flags().BoolVar(&copyMerge, "merge", false, "merge into the destination instead of replacing it")
	leaderboardCopyCmd.MarkFlagRequired("to")
	leaderboardCmd.AddCommand(leaderboardShowCmd, leaderboardCopyCmd)
}

func parseDisks(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !puzzle.ValidDiskCount(n) {
		return 0, errs.Warnf("disks must be %d-%d, got %q", puzzle.MinDisks, puzzle.MaxDisks, s)
	}
	return n, nil
}

func runLeaderboardShow(cmd *cobra.Command, args []string) error {
	disks, err := parseDisks(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Leaderboard.Timeout)
	defer cancel()
	list, err := e.lab.Board().Top(ctx, disks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rep := stats.Summarize(disks, list)
	switch showFormat {
	case "json":
		return rep.WriteWith(out, stats.JSONRender[stats.BoardReport]{})
	case "yaml":
		return rep.WriteWith(out, stats.YAMLRender[stats.BoardReport]{})
	case "table", "":
		fmt.Fprint(out, stats.LeaderboardTable(disks, list))
		fmt.Fprint(out, rep.Table())
		return nil
	default:
		return errs.Warnf("unknown format %q", showFormat)
	}
}

func runLeaderboardCopy(cmd *cobra.Command, _ []string) error {
	dst, err := httprank.New(copyTo)
	if err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := copyBoards(cmd.Context(), e.lab.Board(), dst, copyMerge, e.cfg.Leaderboard.Timeout)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "copied %d board(s) to %s\n", n, copyTo)
	return nil
}

// copyBoards 逐一複製 3..10 的名單；空名單略過。
// merge 時把來源逐筆插入目的名單（仍保持排序與 K 筆上限），否則整份覆蓋。
func copyBoards(ctx context.Context, src *leaderboard.Qualifier, dst leaderboard.RankedStore, merge bool, timeout time.Duration) (int, error) {
	bar := pb.StartNew(puzzle.MaxDisks - puzzle.MinDisks + 1)
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	copied := 0
	for d := puzzle.MinDisks; d <= puzzle.MaxDisks; d++ {
		if err := copyOne(ctx, src, dst, d, merge, timeout); err != nil {
			if errs.IsKind(err, errs.NotFound) {
				bar.Increment()
				continue
			}
			return copied, err
		}
		copied++
		bar.Increment()
	}
	return copied, nil
}

func copyOne(ctx context.Context, src *leaderboard.Qualifier, dst leaderboard.RankedStore, disks int, merge bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	list, err := src.Top(ctx, disks)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errs.NotFoundf("board %d is empty", disks)
	}
	if merge {
		cur, err := dst.FetchTopK(ctx, disks)
		if err != nil {
			return err
		}
		for _, e := range list {
			cur, _, _ = leaderboard.Insert(cur, e)
		}
		list = cur
	}
	return dst.WriteTopK(ctx, disks, list)
}
