package observer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventLine(pkg string) string {
	return fmt.Sprintf("%d,%s\n", time.Now().UnixNano(), pkg)
}

func writeSpool(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestProcessNewForwardsInOrder(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "events.log")
	writeSpool(t, spool, eventLine("com.a")+eventLine("com.b")+eventLine("com.a"))

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })

	require.NoError(t, tailer.processNew())
	assert.Equal(t, []string{"com.a", "com.b", "com.a"}, got)
}

func TestProcessNewResumesFromOffset(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "events.log")
	writeSpool(t, spool, eventLine("com.first"))

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })
	require.NoError(t, tailer.processNew())
	require.Equal(t, []string{"com.first"}, got)

	// Only lines appended after the last pass are forwarded.
	writeSpool(t, spool, eventLine("com.second"))
	require.NoError(t, tailer.processNew())
	assert.Equal(t, []string{"com.first", "com.second"}, got)

	// A fresh tailer picks up the persisted offset: nothing replays.
	var replay []string
	tailer2 := NewTailer(spool, func(pkg string) { replay = append(replay, pkg) })
	require.NoError(t, tailer2.processNew())
	assert.Empty(t, replay)
}

func TestProcessNewSkipsMalformedLines(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "events.log")
	writeSpool(t, spool,
		eventLine("com.good")+
			"not-a-timestamp,com.bad\n"+
			"12345\n"+
			"\n"+
			eventLine("com.other"))

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })
	require.NoError(t, tailer.processNew())

	assert.Equal(t, []string{"com.good", "com.other"}, got)
	assert.Equal(t, 3, tailer.MalformedCount())
}

func TestProcessNewMissingSpoolIsNotAnError(t *testing.T) {
	tailer := NewTailer(filepath.Join(t.TempDir(), "never-written.log"), func(string) {
		t.Fatal("handler must not fire")
	})
	assert.NoError(t, tailer.processNew())
}

func TestProcessNewRecoversFromTruncation(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "events.log")
	writeSpool(t, spool, eventLine("com.a")+eventLine("com.b"))

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })
	require.NoError(t, tailer.processNew())
	require.Len(t, got, 2)

	// Rotation: the spool restarts smaller than the stored offset.
	require.NoError(t, os.WriteFile(spool, []byte(eventLine("com.fresh")), 0644))
	require.NoError(t, tailer.processNew())
	assert.Equal(t, []string{"com.a", "com.b", "com.fresh"}, got)
}

func TestProcessNewDeliversEachEventOnce(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "events.log")
	// The agent crashed mid-write: the second line has no newline yet.
	writeSpool(t, spool, eventLine("app.one")+"1709012345678901234,app.two")

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })

	// Repeated passes must not replay; the partial tail stays pending.
	for i := 0; i < 3; i++ {
		require.NoError(t, tailer.processNew())
	}
	assert.Equal(t, []string{"app.one"}, got)

	// Once the agent finishes the line, it is delivered exactly once.
	writeSpool(t, spool, "\n"+eventLine("app.three"))
	require.NoError(t, tailer.processNew())
	assert.Equal(t, []string{"app.one", "app.two", "app.three"}, got)
	assert.Equal(t, 0, tailer.MalformedCount())
}

func TestProcessNewDetectsReplacedSpool(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "events.log")
	writeSpool(t, spool, eventLine("com.a"))

	var got []string
	tailer := NewTailer(spool, func(pkg string) { got = append(got, pkg) })
	require.NoError(t, tailer.processNew())
	require.Equal(t, []string{"com.a"}, got)

	// Replace the spool with a NEW file that is already larger than the
	// stored offset. Only the inode identity can catch this.
	next := spool + ".next"
	writeSpool(t, next, eventLine("com.x")+eventLine("com.y")+eventLine("com.z"))
	require.NoError(t, os.Rename(next, spool))

	require.NoError(t, tailer.processNew())
	assert.Equal(t, []string{"com.a", "com.x", "com.y", "com.z"}, got)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		wantPkg string
		wantOK  bool
	}{
		{"1709012345678901234,com.example.video", "com.example.video", true},
		{"1709012345678901234,com_underscore.app", "com_underscore.app", true},
		{"", "", false},
		{"   ", "", false},
		{"no-comma", "", false},
		{"abc,com.example", "", false},
		{"1709012345678901234,", "", false},
	}
	for _, tt := range tests {
		pkg, ok := parseLine(tt.line)
		assert.Equal(t, tt.wantOK, ok, "line %q", tt.line)
		assert.Equal(t, tt.wantPkg, pkg, "line %q", tt.line)
	}
}
