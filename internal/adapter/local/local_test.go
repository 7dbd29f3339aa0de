package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/testutil"
)

func readAll(t *testing.T, dir adapter.DirectoryEntry) ([][]adapter.Entry, error) {
	t.Helper()

	reader := dir.CreateReader()
	var pages [][]adapter.Entry
	for i := 0; i < 100; i++ {
		page, err := reader.ReadEntries(context.Background())
		if err != nil {
			return pages, err
		}
		if len(page) == 0 {
			return pages, nil
		}
		pages = append(pages, page)
	}
	t.Fatal("reader never returned an empty page")
	return nil, nil
}

func TestNew(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	if _, err := New(dir); err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := New(filepath.Join(dir, "missing")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("New(missing) error = %v, want ErrNotFound", err)
	}

	file := testutil.CreateTestFile(t, dir, "file.txt", []byte("x"))
	if _, err := New(file); !errors.Is(err, domain.ErrNotDirectory) {
		t.Errorf("New(file) error = %v, want ErrNotDirectory", err)
	}
}

func TestSource_EntryConfinedToRoot(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	src, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"../outside", "a/../../outside", "/etc/passwd"} {
		if _, err := src.Entry(context.Background(), p); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("Entry(%q) error = %v, want ErrPermissionDenied", p, err)
		}
	}

	if _, err := src.Entry(context.Background(), "nope.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Entry(nope.txt) error = %v, want ErrNotFound", err)
	}
}

func TestSource_FileEntry(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestFile(t, dir, "docs/report.txt", []byte("hello world"))

	src, _ := New(dir)
	entry, err := src.Entry(context.Background(), "docs/report.txt")
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if entry.IsDir() {
		t.Fatal("expected a file entry")
	}

	fe, ok := entry.(adapter.FileEntry)
	if !ok {
		t.Fatal("entry does not implement FileEntry")
	}

	c, err := fe.File(context.Background())
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if c.Name != "report.txt" || c.Path != "docs/report.txt" || c.Size != 11 {
		t.Errorf("File() = %+v", c)
	}
	if c.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want text/plain", c.MimeType)
	}

	rc, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello world" {
		t.Errorf("content = %q", data)
	}
}

func TestSource_FileRemovedAfterListing(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	path := testutil.CreateTestFile(t, dir, "gone.txt", []byte("x"))

	src, _ := New(dir)
	entry, err := src.Entry(context.Background(), "gone.txt")
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(path)

	if _, err := entry.(adapter.FileEntry).File(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("File() error = %v, want ErrNotFound", err)
	}
}

func TestDirReader_Paging(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestTree(t, dir, map[string]int64{
		"a.txt":     1,
		"b.txt":     2,
		"c.txt":     3,
		"d.txt":     4,
		"e.txt":     5,
		"sub/f.txt": 6,
	})

	src, _ := New(dir)
	src.SetPageSize(2)

	root, err := src.Entry(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	de, ok := root.(adapter.DirectoryEntry)
	if !ok {
		t.Fatal("root does not implement DirectoryEntry")
	}

	pages, err := readAll(t, de)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}

	total := 0
	dirs := 0
	for _, page := range pages {
		if len(page) > 2 {
			t.Errorf("page has %d entries, want at most 2", len(page))
		}
		for _, e := range page {
			total++
			if e.IsDir() {
				dirs++
			}
		}
	}
	if total != 6 || dirs != 1 {
		t.Errorf("got %d entries (%d dirs), want 6 (1 dir)", total, dirs)
	}
}

func TestDirReader_EmptyDirectory(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestTree(t, dir, map[string]int64{"empty/": 0})

	src, _ := New(dir)
	entry, err := src.Entry(context.Background(), "empty")
	if err != nil {
		t.Fatal(err)
	}

	reader := entry.(adapter.DirectoryEntry).CreateReader()
	for i := 0; i < 2; i++ {
		page, err := reader.ReadEntries(context.Background())
		if err != nil || len(page) != 0 {
			t.Errorf("call %d: ReadEntries() = %d entries, %v; want empty page", i, len(page), err)
		}
	}
}

func TestDirReader_ChildPaths(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestTree(t, dir, map[string]int64{"photos/2024/beach.jpg": 10})

	src, _ := New(dir)
	entry, _ := src.Entry(context.Background(), "photos")

	pages, err := readAll(t, entry.(adapter.DirectoryEntry))
	if err != nil || len(pages) != 1 || len(pages[0]) != 1 {
		t.Fatalf("unexpected listing: %v %v", pages, err)
	}

	year := pages[0][0].(adapter.DirectoryEntry)
	pages, err = readAll(t, year)
	if err != nil || len(pages) != 1 {
		t.Fatalf("unexpected listing: %v %v", pages, err)
	}

	c, err := pages[0][0].(adapter.FileEntry).File(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Path != "photos/2024/beach.jpg" || c.MimeType != "image/jpeg" {
		t.Errorf("File() = %+v", c)
	}
}

func TestDirReader_Cancelled(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestFile(t, dir, "a.txt", []byte("x"))

	src, _ := New(dir)
	root, _ := src.Entry(context.Background(), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := root.(adapter.DirectoryEntry).CreateReader().ReadEntries(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadEntries() error = %v, want context.Canceled", err)
	}
}

func TestDirReader_CloseReleasesDirectory(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestTree(t, dir, map[string]int64{"a.txt": 1, "b.txt": 2, "c.txt": 3})

	src, _ := New(dir)
	src.SetPageSize(1)
	root, _ := src.Entry(context.Background(), "")
	reader := root.(adapter.DirectoryEntry).CreateReader()

	page, err := reader.ReadEntries(context.Background())
	if err != nil || len(page) != 1 {
		t.Fatalf("first page = %d entries, err %v", len(page), err)
	}

	closer, ok := reader.(io.Closer)
	if !ok {
		t.Fatal("dirReader does not implement io.Closer")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r := reader.(*dirReader); r.file != nil {
		t.Error("directory handle still open after Close")
	}

	page, err = reader.ReadEntries(context.Background())
	if err != nil || len(page) != 0 {
		t.Errorf("closed reader returned %d entries, err %v", len(page), err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
