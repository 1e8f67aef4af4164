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

// Package perf 以 runtime/pprof 包住一段執行，結束後寫出 profile。
//
// 用於 cmd/svr 的 -pprof 旗標：伺服器停止時才落檔。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/zintix-labs/hanoilab/errs"
)

// DefaultDir profile 預設寫入路徑
const DefaultDir = "build/profiling"

type Mode string

const (
	ModeOff    Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	default:
		return ModeOff, errs.Warnf("unknown pprof mode %q (cpu|heap|allocs)", s)
	}
}

// Run 依 mode 執行 exe 並把 profile 寫到 dir/<mode>.pprof；ModeOff 直接執行。
// CPU profile 涵蓋整段執行；heap 與 allocs 在 exe 結束後各拍一次。
func Run(dir string, mode Mode, exe func()) error {
	if mode == ModeOff {
		exe()
		return nil
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "create profiling directory")
	}
	f, err := os.Create(filepath.Join(dir, string(mode)+".pprof"))
	if err != nil {
		return errs.Wrap(err, "create profile")
	}
	defer f.Close()

	switch mode {
	case ModeCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			return errs.Wrap(err, "start cpu profile")
		}
		exe()
		pprof.StopCPUProfile()
		return nil
	case ModeHeap:
		exe()
		// 讓快照只留下仍存活的物件
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errs.Wrap(err, "write heap profile")
		}
		return nil
	default:
		exe()
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "write allocs profile")
		}
		return nil
	}
}
