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

package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/storage"
	"github.com/zintix-labs/hanoilab/themes"
)

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage disabled")
}
func (brokenKV) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (brokenKV) Delete(context.Context, string) error      { return errors.New("storage disabled") }

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(themes.FS)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDefaults(t *testing.T) {
	p, err := New(context.Background(), storage.NewMemory(), mustCatalog(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	v := p.Values()
	if !v.ScoresVisible || v.Theme != "classic" || v.Disks != 3 {
		t.Fatalf("defaults %+v", v)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	_ = kv.Set(ctx, storage.KeyScoreVisible, "maybe")
	_ = kv.Set(ctx, storage.KeyTheme, "neon")
	_ = kv.Set(ctx, storage.KeyDisks, "42")
	p, _ := New(ctx, kv, mustCatalog(t), Options{})
	v := p.Values()
	if !v.ScoresVisible || v.Theme != "classic" || v.Disks != 3 {
		t.Fatalf("invalid stored values leaked: %+v", v)
	}
}

func TestChangesPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	cat := mustCatalog(t)
	p, _ := New(ctx, kv, cat, Options{})

	if p.ToggleVisible(ctx) {
		t.Fatalf("toggle should hide")
	}
	if th := p.CycleTheme(ctx); th.ID != "ocean" {
		t.Fatalf("cycle theme got %s", th.ID)
	}
	for range 20 {
		p.IncDisks(ctx)
	}
	if p.Disks() != 10 {
		t.Fatalf("disks not clamped at 10: %d", p.Disks())
	}

	again, _ := New(ctx, kv, cat, Options{})
	v := again.Values()
	if v.ScoresVisible || v.Theme != "ocean" || v.Disks != 10 {
		t.Fatalf("reloaded %+v", v)
	}
	for range 20 {
		again.DecDisks(ctx)
	}
	if again.Disks() != 3 {
		t.Fatalf("disks not clamped at 3: %d", again.Disks())
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	p, _ := New(ctx, storage.NewMemory(), mustCatalog(t), Options{})
	bad := "neon"
	if _, err := p.Apply(ctx, Patch{Theme: &bad}); err == nil {
		t.Fatalf("unknown theme accepted")
	}
	n := 11
	if _, err := p.Apply(ctx, Patch{Disks: &n}); err == nil {
		t.Fatalf("disks 11 accepted")
	}
	theme, disks, hide := "MONO", 5, false
	v, err := p.Apply(ctx, Patch{Theme: &theme, Disks: &disks, ScoresVisible: &hide})
	if err != nil {
		t.Fatal(err)
	}
	if v.Theme != "mono" || v.Disks != 5 || v.ScoresVisible {
		t.Fatalf("apply %+v", v)
	}
}

func TestBrokenStorageDegrades(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, brokenKV{}, mustCatalog(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Degraded() {
		t.Fatalf("failed reads should degrade")
	}
	if p.IncDisks(ctx) != 4 || p.Disks() != 4 {
		t.Fatalf("value should stay in memory")
	}
}

func TestDegradedOption(t *testing.T) {
	p, err := New(context.Background(), storage.NewMemory(), mustCatalog(t), Options{Degraded: true})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Degraded() {
		t.Fatalf("degraded option ignored")
	}
	// 記憶體替代品仍可正常寫入
	p.ToggleVisible(context.Background())
	if p.Values().ScoresVisible {
		t.Fatalf("toggle lost")
	}
}
