package storage

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"sms-gateway/internal/apperr"

	"github.com/spf13/afero"
)

func newTestStorage(t *testing.T) (*Storage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s := New(fs, "/drop", "sent")
	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("ensure root: %v", err)
	}
	return s, fs
}

func mustWrite(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDropFoldersRequireSentArea(t *testing.T) {
	s, fs := newTestStorage(t)
	if err := s.CreateFolder("promo"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fs.MkdirAll("/drop/incidental", 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, fs, "/drop/stray.xlsx", "x")

	got, err := s.DropFolders()
	if err != nil {
		t.Fatalf("drop folders: %v", err)
	}
	if want := []string{"promo"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("DropFolders = %v, want %v", got, want)
	}
}

func TestDropFoldersMissingRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/nowhere", "sent")
	if _, err := s.DropFolders(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPendingFilesExcludeSentAndOtherTypes(t *testing.T) {
	s, fs := newTestStorage(t)
	if err := s.CreateFolder("promo"); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, fs, "/drop/promo/jan.xlsx", "a")
	mustWrite(t, fs, "/drop/promo/feb.xls", "b")
	mustWrite(t, fs, "/drop/promo/readme.txt", "c")
	mustWrite(t, fs, "/drop/promo/sent/old.xlsx", "d")

	got, err := s.PendingFiles("promo")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"feb.xls", "jan.xlsx"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("PendingFiles = %v, want %v", got, want)
	}
}

func TestOpenAndMoveToSent(t *testing.T) {
	s, fs := newTestStorage(t)
	if err := s.CreateFolder("promo"); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, fs, "/drop/promo/jan.xlsx", "payload")

	rc, err := s.Open("promo", "jan.xlsx")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "payload" {
		t.Fatalf("read %q", b)
	}

	if err := s.MoveToSent("promo", "jan.xlsx"); err != nil {
		t.Fatalf("move: %v", err)
	}
	pending, _ := s.PendingFiles("promo")
	sent, _ := s.SentFiles("promo")
	if len(pending) != 0 || !reflect.DeepEqual(sent, []string{"jan.xlsx"}) {
		t.Fatalf("pending=%v sent=%v", pending, sent)
	}

	if _, err := s.Open("promo", "jan.xlsx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound after move, got %v", err)
	}
	if err := s.MoveToSent("promo", "jan.xlsx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second move = %v, want ErrNotFound", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s, _ := newTestStorage(t)
	if _, err := s.Open("..", "passwd"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if _, err := s.Open("promo", "../x.xlsx"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestCreateRenameRemoveFolder(t *testing.T) {
	s, fs := newTestStorage(t)
	if err := s.CreateFolder("promo"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFolder("promo"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate create: want ErrConflict, got %v", err)
	}
	if err := s.CreateFolder("sent"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("reserved name: want ErrValidation, got %v", err)
	}

	if err := s.RenameFolder("promo", "sale"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := s.RenameFolder("promo", "other"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("rename missing: want ErrNotFound, got %v", err)
	}

	mustWrite(t, fs, "/drop/sale/jan.xlsx", "x")
	if _, err := s.RemoveFolder("sale"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("non-empty remove: want ErrValidation, got %v", err)
	}
	if err := fs.Remove("/drop/sale/jan.xlsx"); err != nil {
		t.Fatal(err)
	}
	found, err := s.RemoveFolder("sale")
	if err != nil || !found {
		t.Fatalf("remove: found=%v err=%v", found, err)
	}
	found, err = s.RemoveFolder("sale")
	if err != nil || found {
		t.Fatalf("remove missing: found=%v err=%v", found, err)
	}
}

func TestWriteFile(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.CreateFolder("promo"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile("promo", "jan.xlsx", strings.NewReader("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteFile("promo", "notes.txt", strings.NewReader("x")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if err := s.WriteFile("ghost", "jan.xlsx", strings.NewReader("x")); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	got, _ := s.PendingFiles("promo")
	if !reflect.DeepEqual(got, []string{"jan.xlsx"}) {
		t.Fatalf("pending = %v", got)
	}
}
