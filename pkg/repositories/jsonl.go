package repositories

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
)

// JSONLRepository stores one JSON encoded monument per line in an append-only file.
type JSONLRepository struct {
	path string
	lock sync.Mutex
	file *os.File
}

// NewJSONLRepository opens (creating if needed) the log file at path.
// An incomplete trailing line left by an interrupted write is truncated.
func NewJSONLRepository(path string) (*JSONLRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	if err := truncateIncompleteLine(path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open monument log %s: %v", path, err)
	}

	return &JSONLRepository{
		path: path,
		file: file,
	}, nil
}

func (r *JSONLRepository) Append(ctx context.Context, monument types.Monument) error {
	line, err := json.Marshal(monument)
	if err != nil {
		return fmt.Errorf("failed to marshal monument: %v", err)
	}
	line = append(line, '\n')

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.file == nil {
		return fmt.Errorf("monument log %s is closed", r.path)
	}
	if _, err := r.file.Write(line); err != nil {
		return fmt.Errorf("failed to write monument: %v", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync monument log: %v", err)
	}

	return nil
}

func (r *JSONLRepository) Load(ctx context.Context) ([]types.Monument, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open monument log %s: %v", r.path, err)
	}
	defer file.Close()

	return readMonuments(file)
}

func (r *JSONLRepository) Close(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// readMonuments decodes newline-terminated records. A final line without a
// terminating newline is an interrupted write and is skipped.
func readMonuments(rd io.Reader) ([]types.Monument, error) {
	var monuments []types.Monument
	reader := bufio.NewReader(rd)
	for lineNumber := 1; ; lineNumber++ {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read monument log: %v", err)
		}
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				log.Warn("Skipping incomplete monument record at line %d", lineNumber)
			}
			return monuments, nil
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var monument types.Monument
		if err := json.Unmarshal(line, &monument); err != nil {
			return nil, fmt.Errorf("failed to decode monument at line %d: %v", lineNumber, err)
		}
		monuments = append(monuments, monument)
	}
}

func truncateIncompleteLine(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open monument log %s: %v", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat monument log %s: %v", path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	// walk backwards to the last newline
	const chunkSize = 4096
	buf := make([]byte, chunkSize)
	end := size
	for end > 0 {
		start := end - chunkSize
		if start < 0 {
			start = 0
		}
		n, err := file.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read monument log %s: %v", path, err)
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep := start + int64(i) + 1
			if keep == size {
				return nil
			}
			log.Warn("Truncating %d bytes of incomplete monument record from %s", size-keep, path)
			return file.Truncate(keep)
		}
		end = start
	}

	log.Warn("Truncating %d bytes of incomplete monument record from %s", size, path)
	return file.Truncate(0)
}
