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
	"github.com/spf13/cobra"
	"github.com/zintix-labs/hanoilab/tui"
)

var playDisks int

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return tui.Run(cmd.Context(), e.lab, tui.Options{
			Disks:   playDisks,
			Timeout: e.cfg.Leaderboard.Timeout,
		})
	},
}

func init() {
	playCmd.Flags().IntVarP(&playDisks, "disks", "n", 0, "disks for the first game (3-10, default: saved preference)")
}
