package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/metrics"
	"github.com/google/uuid"
)

const (
	// MaxUploadSize bounds the body of a generation callback
	MaxUploadSize = 32 << 20
	// MonumentAssetsDir is the directory under the assets root that holds generated images
	MonumentAssetsDir = "monuments"
)

// MonumentCompleter records the asset of a finished monument. It reports
// false when the monument is unknown.
type MonumentCompleter interface {
	CompleteMonument(ctx context.Context, id types.MonumentID, asset string) bool
}

// HandleGeneration accepts the image produced for a build request and
// completes the matching monument.
func HandleGeneration(completer MonumentCompleter, assetsDir string, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			log.Warn("failed to parse generation form: %v", err)
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		id, err := parseMonumentID(r.FormValue("prompt_id"))
		if err != nil {
			log.Warn("failed to parse prompt_id: %v", err)
			http.Error(w, "Invalid prompt_id", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			log.Warn("failed to read file for monument %d: %v", id, err)
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		name := uuid.NewString() + ".png"
		if err := saveAsset(filepath.Join(assetsDir, MonumentAssetsDir), name, file); err != nil {
			log.Error("failed to save asset for monument %d: %v", id, err)
			http.Error(w, "Failed to save file", http.StatusInternalServerError)
			return
		}
		asset := AssetURL(publicURL, name)

		// the update outlives a caller that hangs up
		if !completer.CompleteMonument(context.WithoutCancel(r.Context()), id, asset) {
			log.Warn("Received generation for unknown monument %d", id)
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAssets serves the files under assetsDir. Directories and dotfiles,
// such as uploads still being written, are not found.
func HandleAssets(assetsDir string) http.Handler {
	return http.FileServer(assetFileSystem{fs: http.Dir(assetsDir)})
}

type assetFileSystem struct {
	fs http.FileSystem
}

func (a assetFileSystem) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return nil, os.ErrNotExist
		}
	}

	f, err := a.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}

func HandleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics.Snapshot()); err != nil {
			log.Error("failed to encode metrics: %v", err)
			http.Error(w, "Failed to encode metrics", http.StatusInternalServerError)
			return
		}
	}
}

// AssetURL is the public URL of a generated image named name.
func AssetURL(publicURL string, name string) string {
	return strings.TrimSuffix(publicURL, "/") + "/assets/" + MonumentAssetsDir + "/" + name
}

func parseMonumentID(s string) (types.MonumentID, error) {
	if s == "" {
		return 0, fmt.Errorf("prompt_id is missing")
	}
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q: %v", s, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("prompt_id must not be zero")
	}
	return types.MonumentID(id), nil
}

// saveAsset writes src to dir/name. The file only appears under its final
// name once fully written.
func saveAsset(dir string, name string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %v", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod file: %v", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to rename file: %v", err)
	}
	return nil
}
