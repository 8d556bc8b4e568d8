package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/operant/pkg/domain"
)

const (
	journalExt = ".jsonl"
	metaExt    = ".meta.json"
)

// Journal implements ports.Journal as one JSON-lines file per session.
// Every Append is synced before it returns.
type Journal struct {
	BasePath string

	mu sync.Mutex
}

// NewJournal creates a journal in basePath. Empty means ".operant/journal".
func NewJournal(basePath string) *Journal {
	if basePath == "" {
		basePath = filepath.Join(".operant", "journal")
	}
	return &Journal{BasePath: basePath}
}

func (j *Journal) path(sessionID string) string {
	return filepath.Join(j.BasePath, sessionID+journalExt)
}

// Begin writes the session's metadata next to its journal.
func (j *Journal) Begin(ctx context.Context, meta domain.SessionMeta) error {
	if meta.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := writeAtomic(j.BasePath, meta.SessionID+metaExt, data); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}
	return nil
}

// Meta reads what Begin wrote.
func (j *Journal) Meta(ctx context.Context, sessionID string) (domain.SessionMeta, error) {
	data, err := os.ReadFile(filepath.Join(j.BasePath, sessionID+metaExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.SessionMeta{}, domain.ErrSessionNotFound
		}
		return domain.SessionMeta{}, fmt.Errorf("failed to read session metadata: %w", err)
	}
	var meta domain.SessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.SessionMeta{}, fmt.Errorf("session %s metadata: %w", sessionID, err)
	}
	return meta, nil
}

// Append writes rec as one line at the end of the session's file.
func (j *Journal) Append(ctx context.Context, sessionID string, rec domain.TrialRecord) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to fsync journal: %w", err)
	}
	return nil
}

// Load reads the session's records in append order. A torn final line, left by a
// crash in the middle of Append, is ignored.
func (j *Journal) Load(ctx context.Context, sessionID string) ([]domain.TrialRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}
	f, err := os.Open(j.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var (
		records []domain.TrialRecord
		torn    error
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if torn != nil {
			return nil, torn
		}
		var rec domain.TrialRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			torn = fmt.Errorf("journal %s line %d: %w", sessionID, line, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

// List returns the journaled session IDs.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(j.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == journalExt {
			sessions = append(sessions, strings.TrimSuffix(entry.Name(), journalExt))
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}
