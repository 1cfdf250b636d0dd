package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laptoptracker/laptop-tracker/internal/store"
)

type failingStore struct {
	store.MemoryStore
}

func (f *failingStore) Save(context.Context, []string) error {
	return errors.New("read-only")
}

func TestMigrate_MergesIntoTarget(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore()
	dst := store.NewMemoryStore()
	require.NoError(t, src.Save(ctx, []string{"OLD123", "OLD456"}))
	require.NoError(t, dst.Save(ctx, []string{"OLD456", "WIN789"}))

	out, err := migrate(ctx, src, dst)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Copied)
	assert.Equal(t, 2, out.Existing)
	assert.Equal(t, 3, out.Total)

	got, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD123", "OLD456", "WIN789"}, got)
}

func TestMigrate_NothingNewSkipsSave(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore()
	dst := &failingStore{}
	require.NoError(t, dst.MemoryStore.Save(ctx, []string{"A"}))
	require.NoError(t, src.Save(ctx, []string{"A"}))

	out, err := migrate(ctx, src, dst)
	require.NoError(t, err)
	assert.Zero(t, out.Copied)
}

func TestMigrate_SaveFailure(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryStore()
	require.NoError(t, src.Save(ctx, []string{"A"}))

	_, err := migrate(ctx, src, &failingStore{})
	assert.ErrorContains(t, err, "save target: read-only")
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified-devices.json")
	require.NoError(t, os.WriteFile(path, []byte(`["A","B"]`), 0o600))

	tests := []struct {
		name    string
		opts    options
		want    string
		wantErr string
	}{
		{
			name: "file to memory",
			opts: options{from: store.BackendFile, to: store.BackendMemory, filePath: path, format: "plain"},
			want: "copied 2 serials (0 already present, 2 total)\n",
		},
		{
			name:    "missing target",
			opts:    options{from: store.BackendFile, filePath: path, format: "plain"},
			wantErr: "-to is required",
		},
		{
			name:    "same backend",
			opts:    options{from: store.BackendFile, to: store.BackendFile, filePath: path, format: "plain"},
			wantErr: "-to is required",
		},
		{
			name:    "bad format",
			opts:    options{from: store.BackendFile, to: store.BackendMemory, filePath: path, format: "xml"},
			wantErr: "invalid format",
		},
		{
			name:    "unknown backend",
			opts:    options{from: store.BackendFile, to: "sqlite", filePath: path, format: "plain"},
			wantErr: `open sqlite store`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := run(context.Background(), tt.opts, &buf)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
