// Package extract walks a vault folder and produces plain-text documents
// for chunking. Format-specific extraction covers markdown and plain text,
// JSON, CSV, HTML, and PDF; unknown extensions are attempted as UTF-8 text.
package extract

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaultmcp/vaultmcp/internal/chunk"
	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

// DefaultMaxFileSize bounds how large a file the extractor will read.
const DefaultMaxFileSize = 10 << 20 // 10MB

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".obsidian":    true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// binaryExts are extensions skipped without reading the file.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ico": true, ".bmp": true, ".svg": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".wav": true,
	".zip": true, ".gz": true, ".tar": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".db": true, ".sqlite": true, ".pyc": true, ".o": true, ".a": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

// Extractor reads vault files into documents.
type Extractor struct {
	maxFileSize int64
	log         *slog.Logger
}

// NewExtractor builds an Extractor. maxFileSize <= 0 takes the default.
func NewExtractor(maxFileSize int64, log *slog.Logger) *Extractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{maxFileSize: maxFileSize, log: log}
}

// ExtractAll walks the vault and extracts every supported file. Per-file
// failures are logged and skipped; only a walk-level failure (vault missing,
// permission on the root) is an error. Paths in the result are absolute.
func (e *Extractor) ExtractAll(vaultPath string) ([]chunk.Document, error) {
	root, err := filepath.Abs(vaultPath)
	if err != nil {
		return nil, verrs.New(verrs.ErrCodeInvalidPath, fmt.Sprintf("resolve vault path %s", vaultPath), err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, verrs.New(verrs.ErrCodeInvalidPath, fmt.Sprintf("vault path %s", vaultPath), err)
	}
	if !info.IsDir() {
		return nil, verrs.New(verrs.ErrCodeInvalidPath, fmt.Sprintf("vault path %s is not a directory", vaultPath), nil)
	}

	var docs []chunk.Document
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			e.log.Warn("skipping unreadable path",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !IndexablePath(path) {
			return nil
		}

		doc, err := e.ExtractFile(path)
		if err != nil {
			e.log.Warn("extraction failed, skipping file",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if walkErr != nil {
		return nil, verrs.ExtractionError(fmt.Sprintf("walk vault %s", vaultPath), walkErr)
	}
	return docs, nil
}

// ExtractFile reads and extracts one file.
func (e *Extractor) ExtractFile(path string) (chunk.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return chunk.Document{}, verrs.New(verrs.ErrCodeFileNotFound, fmt.Sprintf("stat %s", path), err)
	}
	if info.Size() > e.maxFileSize {
		return chunk.Document{}, verrs.New(verrs.ErrCodeFileTooLarge,
			fmt.Sprintf("%s is %d bytes, limit %d", path, info.Size(), e.maxFileSize), nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return chunk.Document{}, verrs.New(verrs.ErrCodeFilePermission, fmt.Sprintf("read %s", path), err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	text, err := ExtractBytes(content, ext)
	if err != nil {
		return chunk.Document{}, verrs.ExtractionError(fmt.Sprintf("extract %s", path), err)
	}

	return chunk.Document{
		Path:     path,
		Content:  text,
		FileType: FileType(path),
		Modified: info.ModTime().UTC(),
	}, nil
}

// ExtractBytes extracts text from raw content based on the extension
// (leading dot included).
func ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".json":
		return extractJSON(content)
	case ".csv":
		return extractCSV(content)
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}

// SkipDir reports whether a directory name is never descended into:
// hidden directories and well-known vendor/build trees. The watcher uses
// the same predicate so watch-driven and full-sync state agree.
func SkipDir(name string) bool {
	return skipDirs[name] || strings.HasPrefix(name, ".")
}

// IndexablePath reports whether a file path is eligible for indexing:
// not hidden, not a known binary format.
func IndexablePath(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return !binaryExts[strings.ToLower(filepath.Ext(path))]
}

// FileType is the lowercase extension without the dot, or "none" for
// extensionless files.
func FileType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "none"
	}
	return ext[1:]
}
