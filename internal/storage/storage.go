// Package storage exposes the drop-folder hierarchy:
//
//	<root>/<template>/            pending spreadsheets
//	<root>/<template>/<sent>/     processed spreadsheets
//
// A directory is a managed drop folder only when it contains the sent sub-directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/spreadsheet"

	"github.com/spf13/afero"
)

type Storage struct {
	fs      afero.Fs
	root    string
	sentDir string
}

func New(fs afero.Fs, root, sentDir string) *Storage {
	return &Storage{fs: fs, root: filepath.Clean(root), sentDir: sentDir}
}

func (s *Storage) Root() string { return s.root }

func (s *Storage) SentDir() string { return s.sentDir }

// EnsureRoot creates the drop-folder root if it is missing.
func (s *Storage) EnsureRoot() error {
	return s.fs.MkdirAll(s.root, 0o755)
}

// ValidName rejects names that would escape the root or collide with the sent area.
func (s *Storage) ValidName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperr.E(apperr.ErrValidation, "name must not be empty")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return apperr.E(apperr.ErrValidation, "invalid name %q", name)
	case name == s.sentDir:
		return apperr.E(apperr.ErrValidation, "%q is reserved", name)
	}
	return nil
}

// DropFolders lists immediate sub-directories of the root that contain the sent area.
func (s *Storage) DropFolders() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.E(apperr.ErrNotFound, "drop root %s does not exist", s.root)
	}
	if err != nil {
		return nil, fmt.Errorf("read drop root: %w", err)
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ok, err := afero.DirExists(s.fs, filepath.Join(s.root, e.Name(), s.sentDir))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if ok {
			folders = append(folders, e.Name())
		}
	}
	return folders, nil
}

// PendingFiles lists spreadsheet files sitting directly in a drop folder, sorted by name.
func (s *Storage) PendingFiles(folder string) ([]string, error) {
	return s.listFiles(filepath.Join(s.root, folder), spreadsheet.IsSpreadsheet)
}

// AllFiles lists every regular file directly in a drop folder.
func (s *Storage) AllFiles(folder string) ([]string, error) {
	return s.listFiles(filepath.Join(s.root, folder), nil)
}

// SentFiles lists the files archived under a drop folder's sent area.
func (s *Storage) SentFiles(folder string) ([]string, error) {
	return s.listFiles(filepath.Join(s.root, folder, s.sentDir), nil)
}

func (s *Storage) listFiles(dir string, keep func(string) bool) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if keep != nil && !keep(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a reader for a pending file. The caller closes it.
func (s *Storage) Open(folder, file string) (io.ReadCloser, error) {
	if err := s.ValidName(folder); err != nil {
		return nil, err
	}
	if err := s.ValidName(file); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(filepath.Join(s.root, folder, file))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.E(apperr.ErrNotFound, "file %s/%s not found", folder, file)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", folder, file, err)
	}
	return f, nil
}

// MoveToSent archives a processed file into the folder's sent area.
func (s *Storage) MoveToSent(folder, file string) error {
	from := filepath.Join(s.root, folder, file)
	to := filepath.Join(s.root, folder, s.sentDir, file)
	if err := s.fs.Rename(from, to); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.Wrap(apperr.ErrNotFound, err, "file %s/%s not found", folder, file)
		}
		return fmt.Errorf("move %s to %s: %w", from, to, err)
	}
	return nil
}

// CreateFolder creates a drop folder together with its sent area.
func (s *Storage) CreateFolder(name string) error {
	if err := s.ValidName(name); err != nil {
		return err
	}
	dir := filepath.Join(s.root, name)
	exists, err := afero.Exists(s.fs, dir)
	if err != nil {
		return err
	}
	if exists {
		return apperr.E(apperr.ErrConflict, "folder %q already exists", name)
	}
	if err := s.fs.MkdirAll(filepath.Join(dir, s.sentDir), 0o755); err != nil {
		return fmt.Errorf("create folder %q: %w", name, err)
	}
	return nil
}

// RenameFolder moves a drop folder when its template is renamed.
func (s *Storage) RenameFolder(oldName, newName string) error {
	if err := s.ValidName(newName); err != nil {
		return err
	}
	from := filepath.Join(s.root, oldName)
	to := filepath.Join(s.root, newName)

	ok, err := afero.DirExists(s.fs, from)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E(apperr.ErrNotFound, "folder %q not found", oldName)
	}
	exists, err := afero.Exists(s.fs, to)
	if err != nil {
		return err
	}
	if exists {
		return apperr.E(apperr.ErrConflict, "folder %q already exists", newName)
	}
	if err := s.fs.Rename(from, to); err != nil {
		return fmt.Errorf("rename folder %q: %w", oldName, err)
	}
	return nil
}

// RemoveFolder deletes an empty drop folder. A folder holding pending or sent
// files is refused; a missing folder is reported with found=false.
func (s *Storage) RemoveFolder(name string) (found bool, err error) {
	dir := filepath.Join(s.root, name)
	ok, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return true, fmt.Errorf("read folder %q: %w", name, err)
	}
	for _, e := range entries {
		if e.Name() != s.sentDir {
			return true, apperr.E(apperr.ErrValidation, "folder %q is not empty", name)
		}
	}
	sent, err := s.SentFiles(name)
	if err != nil {
		return true, err
	}
	if len(sent) > 0 {
		return true, apperr.E(apperr.ErrValidation, "folder %q has sent files", name)
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return true, fmt.Errorf("remove folder %q: %w", name, err)
	}
	return true, nil
}

// WriteFile stores an uploaded spreadsheet directly in a drop folder.
func (s *Storage) WriteFile(folder, file string, r io.Reader) error {
	if err := s.ValidName(folder); err != nil {
		return err
	}
	if err := s.ValidName(file); err != nil {
		return err
	}
	if !spreadsheet.IsSpreadsheet(file) {
		return apperr.E(apperr.ErrValidation, "%q is not a spreadsheet", file)
	}
	ok, err := afero.DirExists(s.fs, filepath.Join(s.root, folder, s.sentDir))
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E(apperr.ErrNotFound, "drop folder %q not found", folder)
	}
	if err := afero.WriteReader(s.fs, filepath.Join(s.root, folder, file), r); err != nil {
		return fmt.Errorf("write %s/%s: %w", folder, file, err)
	}
	return nil
}
