// Package files provides the text picker and text saver the HUD uses to
// import and export scripts. Both move whole UTF-8 documents; neither looks
// inside them.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mobile-next/omniclick/utils"
)

const (
	DefaultSaveName = "script.json"

	// maxPickSize bounds how much a picked document may hold.
	maxPickSize = 16 << 20
)

var (
	// ErrCancelled means the user, or the configuration, produced no file.
	ErrCancelled = errors.New("file selection cancelled")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Picked is a document chosen through a Picker.
type Picked struct {
	Slot     string `json:"slot"`
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

type Picker interface {
	Pick(ctx context.Context, slot string) (Picked, error)
}

type Saver interface {
	Save(ctx context.Context, fileName, content string) error
}

// FilePicker resolves a slot name ("import", "song", "layout", ...) to a
// configured path and reads it.
type FilePicker struct {
	Slots map[string]string
}

func (p *FilePicker) Pick(ctx context.Context, slot string) (Picked, error) {
	path, ok := p.Slots[slot]
	if !ok || strings.TrimSpace(path) == "" {
		return Picked{}, fmt.Errorf("slot %q: %w", slot, ErrCancelled)
	}

	path, err := utils.ExpandHome(path)
	if err != nil {
		return Picked{}, err
	}

	content, err := readText(ctx, path)
	if err != nil {
		return Picked{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Picked{
		Slot:     slot,
		FileName: displayName(path),
		Content:  content,
	}, nil
}

func readText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPickSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxPickSize {
		return "", fmt.Errorf("file larger than %d bytes", maxPickSize)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}

	return string(data), nil
}

func displayName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fallbackName()
	}
	return name
}

func fallbackName() string {
	return fmt.Sprintf("selected-%s.json", uuid.NewString()[:8])
}

// DirSaver writes saved documents into a single directory.
type DirSaver struct {
	Dir         string
	DefaultName string
}

func (s *DirSaver) Save(ctx context.Context, fileName, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := utils.ExpandHome(s.Dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dst := filepath.Join(dir, s.sanitize(fileName))
	if err := utils.WriteFileAtomic(dst, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	utils.Verbose("saved %d bytes to %s", len(content), dst)
	return nil
}

// sanitize keeps only the final path element so a name cannot escape Dir.
func (s *DirSaver) sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))

	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		if s.DefaultName != "" {
			return s.DefaultName
		}
		return DefaultSaveName
	}
	return name
}
