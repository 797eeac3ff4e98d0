package combine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
	"relax3d/internal/pipeline"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n+"\n"), 0o644))
	}
}

func TestCandidatesAndNames(t *testing.T) {
	tcs := map[string]struct {
		min, max float64
		want     []string
	}{
		"whole range":     {1, 2, []string{"L1.txt", "L1.5.txt", "L1.6.txt", "L2.txt"}},
		"decimals capped": {3, 3.5, []string{"L3.txt", "L3.5.txt"}},
		"fractional min":  {1.5, 2.6, []string{"L1.5.txt", "L2.txt", "L2.5.txt", "L2.6.txt"}},
		"empty":           {4, 3, nil},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			var got []string
			for _, v := range Candidates(tc.min, tc.max) {
				got = append(got, FileName("L", v))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFileListKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "S1.txt", "S1.6.txt", "S3.txt", "L2.txt")
	assert.Equal(t, []string{"S1.txt", "S1.6.txt", "S3.txt"}, FileList(dir, "S", 1, 3))
	assert.Empty(t, FileList(dir, "S", 4, 9))
}

func TestStripHeader(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "relax3d.dat")
	require.NoError(t, os.WriteFile(p, []byte("h1 \nh2\r\nh3\nbody1\nbody2"), 0o644))

	path, removed, err := StripHeader(dir, "relax3d.dat", 3)
	require.NoError(t, err)
	assert.Equal(t, p, path)
	assert.Equal(t, []string{"h1", "h2", "h3"}, removed)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "body1\nbody2", string(b))

	_, _, err = StripHeader(dir, "relax3d.dat", 3)
	assert.ErrorContains(t, err, "fewer than 3 lines")
}

func TestStripHeaderFallsBackToWorkingDir(t *testing.T) {
	cwd := t.TempDir()
	t.Chdir(cwd)
	require.NoError(t, os.WriteFile("relax3d.dat", []byte("a\nb\nc\nd\n"), 0o644))

	path, removed, err := StripHeader(t.TempDir(), "relax3d.dat", 3)
	require.NoError(t, err)
	assert.Equal(t, "relax3d.dat", path)
	assert.Len(t, removed, 3)

	_, _, err = StripHeader(t.TempDir(), "other.dat", 3)
	assert.ErrorIs(t, err, ErrDatNotFound)
}

type fixture struct {
	cfg     *config.Config
	dir     string
	desk    *desktop.Fake
	starter *driver.FakeStarter
	events  *pipeline.MemoryReporter
	auto    *Automation
}

func newFixture(t *testing.T, extra pipeline.Reporter) *fixture {
	t.Helper()
	t.Setenv("PROGRAMFILES", "")
	t.Setenv("PROGRAMFILES(X86)", "")
	tools := t.TempDir()
	touch(t, tools, "combine.exe")
	cfg := &config.Config{ToolsDir: tools}
	cfg.ApplyDefaults()

	f := &fixture{cfg: cfg, dir: t.TempDir(), desk: desktop.NewFake(), events: pipeline.NewMemoryReporter()}
	clock := driver.NewFakeClock(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	f.starter = driver.NewFakeStarter(f.desk, clock)
	f.auto = New(Config{
		Config:   cfg,
		Desktop:  f.desk,
		Starter:  f.starter,
		Clock:    clock,
		Reporter: pipeline.MultiReporter{f.events, extra},
		Logger:   zerolog.Nop(),
	})
	return f
}

// alts counts Alt+F menu openings in the recorded key downs.
func alts(keys []uint8) int {
	n := 0
	for i := 1; i < len(keys); i++ {
		if keys[i-1] == desktop.VKMenu && keys[i] == 'F' {
			n++
		}
	}
	return n
}

func TestRunCombinesEveryFile(t *testing.T) {
	f := newFixture(t, nil)
	touch(t, f.dir, "L1.txt", "L1.5.txt", "L2.txt")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "relax3d.dat"), []byte("x\ny\nz\ndata\n"), 0o644))
	f.desk.AddWindow(desktop.DialogClass, "Open")

	res, err := f.auto.Run(context.Background(), Job{Type: "L", Min: 1, Max: 2, Dir: f.dir})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusDone, res.Status)
	assert.Equal(t, []string{"L1.txt", "L1.5.txt", "L2.txt"}, res.Processed)
	assert.Equal(t, []string{"x", "y", "z"}, res.Removed)
	assert.Equal(t, []string{"combine"}, f.starter.Launched())
	assert.Contains(t, f.desk.ClosedTitles(), "combine")

	keys := f.desk.KeyDowns()
	assert.Equal(t, 3, alts(keys))
	// second file: Ctrl+A, Delete, the name (digits on the keypad, dots on the main row), Enter
	name := []uint8{'L', desktop.VKNumpad0 + 1, desktop.VKOEMPeriod, desktop.VKNumpad0 + 5, desktop.VKOEMPeriod, 'T', 'X', 'T'}
	want := append([]uint8{desktop.VKControl, 'A', desktop.VKDelete}, name...)
	want = append(want, desktop.VKReturn)
	assert.Contains(t, string(keys), string(want))

	assert.Equal(t, 3, f.events.Count(pipeline.EventStageDone))
	assert.Equal(t, 1, f.events.Count(pipeline.EventRunDone))
}

func TestRunWithoutDialogFails(t *testing.T) {
	f := newFixture(t, nil)
	touch(t, f.dir, "S5.txt")
	dat := filepath.Join(f.dir, "relax3d.dat")
	require.NoError(t, os.WriteFile(dat, []byte("1\n2\n3\n4\n"), 0o644))

	res, err := f.auto.Run(context.Background(), Job{Type: "S", Min: 5, Max: 5, Dir: f.dir})
	require.Error(t, err)
	assert.True(t, driver.IsDiscovery(err))
	assert.Equal(t, pipeline.StatusFailed, res.Status)
	assert.Equal(t, "S5.txt", f.events.Events()[len(f.events.Events())-1].Stage)
	assert.Contains(t, f.desk.ClosedTitles(), "combine")

	b, err := os.ReadFile(dat)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n4\n", string(b), "header kept on failure")
}

func TestRunCancelsBetweenFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAfterFirst := pipeline.ReporterFunc(func(e pipeline.Event) {
		if e.Kind == pipeline.EventStageDone {
			cancel()
		}
	})
	f := newFixture(t, stopAfterFirst)
	touch(t, f.dir, "L1.txt", "L2.txt")
	f.desk.AddWindow(desktop.DialogClass, "Open: Select File for Unit 10")

	res, err := f.auto.Run(ctx, Job{Type: "L", Min: 1, Max: 2, Dir: f.dir})
	assert.True(t, driver.IsCancelled(err))
	assert.Equal(t, pipeline.StatusCancelled, res.Status)
	assert.Equal(t, []string{"L1.txt"}, res.Processed)
	assert.Equal(t, 1, alts(f.desk.KeyDowns()))
	assert.Equal(t, 1, f.events.Count(pipeline.EventRunCancelled))
}

func TestRunNoFiles(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.auto.Run(context.Background(), Job{Type: "L", Min: 1, Max: 2, Dir: f.dir})
	assert.ErrorContains(t, err, "no matching files")
	assert.Empty(t, f.starter.Launched())
}

func TestRunMissingExecutable(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.Remove(filepath.Join(f.cfg.ToolsDir, "combine.exe")))
	touch(t, f.dir, "L1.txt")
	_, err := f.auto.Run(context.Background(), Job{Type: "L", Min: 1, Max: 1, Dir: f.dir})
	assert.True(t, driver.IsProcess(err))
}
