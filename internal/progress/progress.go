package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Reporter receives events while a drop payload is being resolved.
// Implementations must be safe for concurrent use: directories are walked
// in parallel.
type Reporter interface {
	// DirectoryOpened is called when the listing of a directory starts
	DirectoryOpened(path string)
	// PageRead reports one non-empty page of a directory listing
	PageRead(path string, entries int)
	// FileFound reports a materialized file candidate
	FileFound(path string, size int64)
	// EntryDropped reports an entry that was skipped because it failed
	EntryDropped(path string, err error)
	// Finished reports the end of a resolve pass
	Finished(files int, elapsed time.Duration)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type    UpdateType
	Path    string
	Entries int
	Size    int64
	Error   error
	Elapsed time.Duration

	DirectoriesOpened int
	PagesRead         int
	FilesFound        int
	BytesFound        int64
	EntriesDropped    int
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateDirectory UpdateType = iota
	UpdatePage
	UpdateFile
	UpdateDropped
	UpdateFinished
)

func (t UpdateType) String() string {
	switch t {
	case UpdateDirectory:
		return "directory"
	case UpdatePage:
		return "page"
	case UpdateFile:
		return "file"
	case UpdateDropped:
		return "dropped"
	case UpdateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback Callback
	mu       sync.Mutex

	directories int
	pages       int
	files       int
	bytes       int64
	dropped     int
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// snapshot fills the running totals; caller holds r.mu
func (r *CallbackReporter) snapshot(u Update) Update {
	u.DirectoriesOpened = r.directories
	u.PagesRead = r.pages
	u.FilesFound = r.files
	u.BytesFound = r.bytes
	u.EntriesDropped = r.dropped
	return u
}

// emit calls the callback outside the lock so a callback may call back
// into the reporter
func (r *CallbackReporter) emit(update Update, callback Callback) {
	if callback != nil {
		callback(update)
	}
}

// DirectoryOpened counts a directory and reports it
func (r *CallbackReporter) DirectoryOpened(path string) {
	r.mu.Lock()
	r.directories++
	update := r.snapshot(Update{Type: UpdateDirectory, Path: path})
	callback := r.callback
	r.mu.Unlock()

	r.emit(update, callback)
}

// PageRead counts a page and reports it
func (r *CallbackReporter) PageRead(path string, entries int) {
	r.mu.Lock()
	r.pages++
	update := r.snapshot(Update{Type: UpdatePage, Path: path, Entries: entries})
	callback := r.callback
	r.mu.Unlock()

	r.emit(update, callback)
}

// FileFound counts a file and its size and reports it
func (r *CallbackReporter) FileFound(path string, size int64) {
	r.mu.Lock()
	r.files++
	r.bytes += size
	update := r.snapshot(Update{Type: UpdateFile, Path: path, Size: size})
	callback := r.callback
	r.mu.Unlock()

	r.emit(update, callback)
}

// EntryDropped counts a dropped entry and reports it
func (r *CallbackReporter) EntryDropped(path string, err error) {
	r.mu.Lock()
	r.dropped++
	update := r.snapshot(Update{Type: UpdateDropped, Path: path, Error: err})
	callback := r.callback
	r.mu.Unlock()

	r.emit(update, callback)
}

// Finished reports the totals of the pass and resets the counters
func (r *CallbackReporter) Finished(files int, elapsed time.Duration) {
	r.mu.Lock()
	update := r.snapshot(Update{Type: UpdateFinished, Elapsed: elapsed})
	update.FilesFound = files
	r.directories, r.pages, r.files, r.bytes, r.dropped = 0, 0, 0, 0, 0
	callback := r.callback
	r.mu.Unlock()

	r.emit(update, callback)
}

// WriterReporter writes one line per event
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterReporter creates a reporter that writes to w
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

func (r *WriterReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *WriterReporter) DirectoryOpened(path string) {
	r.printf("open  %s/", displayPath(path))
}

func (r *WriterReporter) PageRead(path string, entries int) {
	r.printf("page  %s/ (%d entries)", displayPath(path), entries)
}

func (r *WriterReporter) FileFound(path string, size int64) {
	r.printf("file  %s (%s)", path, FormatBytes(size))
}

func (r *WriterReporter) EntryDropped(path string, err error) {
	r.printf("skip  %s: %v", path, err)
}

func (r *WriterReporter) Finished(files int, elapsed time.Duration) {
	r.printf("done  %d files in %s", files, elapsed.Round(time.Millisecond))
}

func displayPath(path string) string {
	if path == "" {
		return "."
	}
	return path
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) DirectoryOpened(path string)               {}
func (NullReporter) PageRead(path string, entries int)         {}
func (NullReporter) FileFound(path string, size int64)         {}
func (NullReporter) EntryDropped(path string, err error)       {}
func (NullReporter) Finished(files int, elapsed time.Duration) {}

// FormatBytes formats a size with binary units, e.g. "1.5 KiB"
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

var (
	_ Reporter = (*CallbackReporter)(nil)
	_ Reporter = (*WriterReporter)(nil)
	_ Reporter = NullReporter{}
)
