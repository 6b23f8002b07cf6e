package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMonuments() []types.Monument {
	return []types.Monument{
		{ID: 1, Description: "a lighthouse", Asset: "http://localhost/assets/1.png", Position: types.Coordinate{X: 2, Y: 2}},
		{ID: 2, Description: "a bridge", Asset: "http://localhost/assets/2.png", Position: types.Coordinate{X: -4, Y: 7}},
		{ID: 1, Description: "a lighthouse", Asset: "http://localhost/assets/1b.png", Position: types.Coordinate{X: 2, Y: 2}},
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		open func(t *testing.T, dir string) MonumentRepository
	}{
		{
			name: "jsonl",
			open: func(t *testing.T, dir string) MonumentRepository {
				r, err := NewJSONLRepository(filepath.Join(dir, "monuments.jsonl"))
				require.NoError(t, err)
				return r
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T, dir string) MonumentRepository {
				r, err := NewSQLiteRepository(ctx, filepath.Join(dir, "monuments.db"))
				require.NoError(t, err)
				return r
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			r := tt.open(t, dir)
			got, err := r.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)

			for _, m := range testMonuments() {
				require.NoError(t, r.Append(ctx, m))
			}
			require.NoError(t, r.Close(ctx))

			// reopen as a restarted process would
			r = tt.open(t, dir)
			defer r.Close(ctx)
			got, err = r.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, testMonuments(), got)
		})
	}
}

func TestJSONLRepositoryIncompleteTrailingLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "monuments.jsonl")

	r, err := NewJSONLRepository(path)
	require.NoError(t, err)
	require.NoError(t, r.Append(ctx, testMonuments()[0]))

	// simulate a crash part way through the second write
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":2,"description":"a bri`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testMonuments()[:1], got)
	require.NoError(t, r.Close(ctx))

	// reopening drops the fragment so new records start on a fresh line
	r, err = NewJSONLRepository(path)
	require.NoError(t, err)
	defer r.Close(ctx)
	require.NoError(t, r.Append(ctx, testMonuments()[1]))

	got, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testMonuments()[:2], got)
}

func TestJSONLRepositoryCorruptLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "monuments.jsonl")
	content := `{"id":1,"description":"a","asset":"x","position":{"x":0,"y":0},"under_construction":false}
not json
{"id":2,"description":"b","asset":"y","position":{"x":1,"y":1},"under_construction":false}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := NewJSONLRepository(path)
	require.NoError(t, err)
	defer r.Close(ctx)

	_, err = r.Load(ctx)
	assert.Error(t, err)
}

func TestJSONLRepositoryLineFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "monuments.jsonl")

	r, err := NewJSONLRepository(path)
	require.NoError(t, err)
	require.NoError(t, r.Append(ctx, types.Monument{ID: 5, Description: "a tower", Asset: "a.png", Position: types.Coordinate{X: 1, Y: 3}}))
	require.NoError(t, r.Close(ctx))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"id":5,"description":"a tower","asset":"a.png","position":{"x":1,"y":3},"under_construction":false}`+"\n", string(b))
}

func TestJSONLRepositoryAppendAfterClose(t *testing.T) {
	ctx := context.Background()
	r, err := NewJSONLRepository(filepath.Join(t.TempDir(), "monuments.jsonl"))
	require.NoError(t, err)
	require.NoError(t, r.Close(ctx))
	require.NoError(t, r.Close(ctx))

	assert.Error(t, r.Append(ctx, testMonuments()[0]))
}

func TestNewRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tests := []struct {
		name    string
		connStr string
		want    interface{}
		wantErr bool
	}{
		{name: "jsonl", connStr: "jsonl://" + filepath.Join(dir, "log", "monuments.jsonl"), want: &JSONLRepository{}},
		{name: "sqlite", connStr: "sqlite://" + filepath.Join(dir, "monuments.db"), want: &SQLiteRepository{}},
		{name: "unknown scheme", connStr: "redis://localhost:6379", wantErr: true},
		{name: "bad url", connStr: "://nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRepository(ctx, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer got.Close(ctx)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestPathFromURL(t *testing.T) {
	assert.Equal(t, "assets/monuments.jsonl", pathFromURL("jsonl://assets/monuments.jsonl", "jsonl"))
	// the default log lives outside the served assets directory
	assert.Equal(t, "data/monuments.jsonl", pathFromURL(DefaultDatabaseURL, "jsonl"))
	assert.Equal(t, "/var/lib/monuments.db", pathFromURL("sqlite:///var/lib/monuments.db", "sqlite"))
}
