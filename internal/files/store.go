// Package files is the attachment/avatar storage collaborator. Files live
// under one configured directory as user{id}_{sanitized-name}; retrieval
// goes through the authenticated HTTP handler, never direct serving.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension allow-lists, matched case-insensitively. A receipt with any
// other extension is silently dropped: the expense is still saved, just
// without an attachment.
var (
	attachmentExts = map[string]bool{
		"pdf": true, "png": true, "jpg": true, "jpeg": true, "doc": true,
	}
	avatarExts = map[string]bool{
		"png": true, "jpg": true, "jpeg": true,
	}
)

// AllowedAttachment reports whether the filename's extension is on the
// receipt allow-list.
func AllowedAttachment(filename string) bool {
	return allowedExt(filename, attachmentExts)
}

// AllowedAvatar reports whether the filename's extension is on the avatar
// allow-list.
func AllowedAvatar(filename string) bool {
	return allowedExt(filename, avatarExts)
}

func allowedExt(filename string, allowed map[string]bool) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && allowed[ext]
}

// Store persists uploaded files under a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the upload under user{id}_{sanitized-name} and returns the
// stored name. Two same-named uploads from one user collide at the path
// level and the later write wins.
func (s *Store) Save(userID int64, originalName string, src io.Reader) (string, error) {
	name := StoredName(userID, originalName)
	if name == "" {
		return "", fmt.Errorf("unusable filename %q", originalName)
	}

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Open returns the stored file for reading.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	// Stored names never contain separators; reject anything that tries
	// to escape the directory.
	if name != filepath.Base(name) || name == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}

// OwnedBy reports whether a stored name belongs to the given user.
func OwnedBy(name string, userID int64) bool {
	return strings.HasPrefix(name, fmt.Sprintf("user%d_", userID))
}

// StoredName builds the collision-resistant storage name for an upload.
// Returns "" when sanitizing leaves nothing usable.
func StoredName(userID int64, originalName string) string {
	sanitized := SanitizeFilename(originalName)
	if sanitized == "" {
		return ""
	}
	return fmt.Sprintf("user%d_%s", userID, sanitized)
}

// SanitizeFilename strips path components and every byte outside
// [A-Za-z0-9._-], so the result is always safe as a single path element.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return ""
	}
	return cleaned
}
