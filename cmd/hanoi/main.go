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

// hanoi 終端機版河內塔與本機成績、排行榜管理工具。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	dataDir     string
	inMemory    bool
	boardDriver string
	boardURL    string

	rootCmd = &cobra.Command{
		Use:           "hanoi",
		Short:         "Towers of Hanoi in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	pf.StringVar(&dataDir, "data-dir", "", "directory for scores, preferences and the sqlite leaderboard")
	pf.BoolVar(&inMemory, "in-memory", false, "keep scores and preferences in memory only")
	pf.StringVar(&boardDriver, "board", "", "leaderboard driver: memory|sqlite|remote")
	pf.StringVar(&boardURL, "board-url", "", "remote leaderboard base url (implies --board remote)")

	rootCmd.AddCommand(playCmd, scoresCmd, leaderboardCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "hanoi:", err)
		os.Exit(1)
	}
}
