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

package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/storage"
)

var _ storage.KV = (*Store)(nil)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, storage.KeyTheme)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, storage.KeyTheme, "amber"))
	v, ok, err := s.Get(ctx, storage.KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "amber", v)

	require.NoError(t, s.Delete(ctx, storage.KeyTheme))
	_, ok, err = s.Get(ctx, storage.KeyTheme)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0
	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, storage.KeyDisks, "5"))
	require.NoError(t, s.Close())
	// 重複 Close 不應出錯
	require.NoError(t, s.Close())

	s2, err := Open(cfg)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(ctx, storage.KeyDisks)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestGCRunnerStopsOnClose(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	s, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.stop)
	require.NoError(t, s.Close())
	select {
	case <-s.done:
	default:
		t.Fatal("gc loop still running after Close")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Equal(t, errs.Fatal, mustE(t, err).ErrLv)
}

func TestCanceledContext(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)
}

func mustE(t *testing.T, err error) *errs.E {
	t.Helper()
	e, ok := errs.AsErr(err)
	require.True(t, ok, "expected *errs.E, got %T", err)
	return e
}
