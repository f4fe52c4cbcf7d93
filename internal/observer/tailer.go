// Package observer ingests foreground-app change events. An OS-level agent
// appends one line per event to a spool file; the tailer follows that file
// and forwards package IDs to the engine.
//
// Line format (written by the platform agent):
//
//	<unix_nano>,<package_id>
//
// Example:
//
//	1709012345678901234,com.example.video
package observer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yamakit/timekeeper/internal/util"
)

const (
	// Upper bound per pass so a huge backlog cannot stall the loop.
	maxLinesPerPass = 10_000

	// Fallback poll interval when no filesystem event arrives.
	pollInterval = 30 * time.Second
)

// Handler receives each foreground package ID in file order.
type Handler func(packageID string)

// Tailer follows the event spool from a persisted byte offset, so restarts
// neither replay nor drop events. fsnotify wakes it between polls.
type Tailer struct {
	path       string
	offsetPath string
	handler    Handler

	malformed int
}

func NewTailer(path string, handler Handler) *Tailer {
	return &Tailer{
		path:       path,
		offsetPath: path + ".offset",
		handler:    handler,
	}
}

// Run follows the spool until the context is cancelled. The spool file not
// existing yet is not an error; the tailer waits for it to appear.
func (t *Tailer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("observer: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: the spool file itself may not exist yet.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("observer: watch %s: %w", filepath.Dir(t.path), err)
	}

	util.LogInfof("observer: following %s", t.path)
	if err := t.processNew(); err != nil {
		util.LogWarnf("observer: initial pass failed: %v", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != t.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := t.processNew(); err != nil {
				util.LogWarnf("observer: pass failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.LogErrorf("observer: watch error: %v", err)
		case <-ticker.C:
			if err := t.processNew(); err != nil {
				util.LogWarnf("observer: pass failed: %v", err)
			}
		}
	}
}

// processNew reads lines appended since the last pass and forwards them in
// order. The byte offset and the spool's inode are persisted beside the
// spool after every pass.
func (t *Tailer) processNew() error {
	if _, err := os.Stat(t.path); os.IsNotExist(err) {
		return nil
	}

	offset, inode, err := t.readOffset()
	if err != nil {
		return fmt.Errorf("read offset: %w", err)
	}

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat spool: %w", err)
	}
	// A changed inode means the spool was replaced, even if the new file
	// already grew past the stored offset.
	currentInode, hasInode := util.InodeOf(info)
	if hasInode && inode != 0 && currentInode != inode {
		util.LogWarnf("observer: spool replaced (inode %d -> %d), restarting from 0", inode, currentInode)
		offset = 0
	}
	// Offset past EOF means the spool was rotated or truncated.
	if offset > info.Size() {
		util.LogWarnf("observer: offset %d beyond spool size %d, restarting from 0", offset, info.Size())
		offset = 0
	}
	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			return fmt.Errorf("seek spool: %w", err)
		}
	}

	reader := bufio.NewReader(f)
	lines := 0
	consumed := offset
	for lines < maxLinesPerPass {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// A tail without its newline is an in-progress agent write.
			// It stays unconsumed, and the offset stays behind it, so the
			// next pass re-reads the completed line exactly once.
			break
		}
		if err != nil {
			return fmt.Errorf("read spool: %w", err)
		}
		consumed += int64(len(line))
		lines++

		pkg, ok := parseLine(line)
		if !ok {
			t.malformed++
			util.LogWarnf("observer: skipping malformed line %q (%d total)", strings.TrimSuffix(line, "\n"), t.malformed)
			continue
		}
		t.handler(pkg)
	}

	if consumed != offset || (hasInode && currentInode != inode) {
		if err := t.writeOffset(consumed, currentInode); err != nil {
			return fmt.Errorf("write offset: %w", err)
		}
	}
	return nil
}

// MalformedCount returns how many lines were skipped as unparseable.
func (t *Tailer) MalformedCount() int {
	return t.malformed
}

func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	ts, pkg, found := strings.Cut(line, ",")
	if !found || pkg == "" {
		return "", false
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return "", false
	}
	return pkg, true
}

// readOffset loads the persisted "<offset>,<inode>" pair. A bare offset
// without an inode is accepted; the inode then reads as zero.
func (t *Tailer) readOffset() (int64, uint64, error) {
	data, err := os.ReadFile(t.offsetPath)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	offsetPart, inodePart, _ := strings.Cut(strings.TrimSpace(string(data)), ",")
	offset, err := strconv.ParseInt(offsetPart, 10, 64)
	if err != nil || offset < 0 {
		// Corrupt offset file: start over rather than fail the loop.
		util.LogWarnf("observer: corrupt offset file, restarting from 0")
		return 0, 0, nil
	}
	inode, _ := strconv.ParseUint(inodePart, 10, 64)
	return offset, inode, nil
}

func (t *Tailer) writeOffset(offset int64, inode uint64) error {
	record := strconv.FormatInt(offset, 10) + "," + strconv.FormatUint(inode, 10)
	return os.WriteFile(t.offsetPath, []byte(record), 0644)
}
