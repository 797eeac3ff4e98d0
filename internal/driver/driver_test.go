package driver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"relax3d/internal/desktop"
)

func testClock() *FakeClock {
	return NewFakeClock(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
}

func TestNumpadCodes(t *testing.T) {
	cases := map[rune]uint8{
		'0': 96, '7': 103, '9': 105,
		'.': 110, '-': 109,
		'a': 'A', 'R': 'R',
	}
	for r, want := range cases {
		got, ok := NumpadCode(r)
		if !ok || got != want {
			t.Fatalf("NumpadCode(%q) = %d,%v want %d", r, got, ok, want)
		}
	}
	if _, ok := NumpadCode('é'); ok {
		t.Fatalf("non-ascii rune should be unmappable")
	}
}

func TestMainRowCodes(t *testing.T) {
	if vk, _ := MainRowCode('-'); vk != 189 {
		t.Fatalf("'-' = %d", vk)
	}
	if vk, _ := MainRowCode('.'); vk != 190 {
		t.Fatalf("'.' = %d", vk)
	}
	if vk, _ := MainRowCode('3'); vk != 99 {
		t.Fatalf("'3' = %d", vk)
	}
	if vk, _ := MainRowCode('l'); vk != 'L' {
		t.Fatalf("'l' = %d", vk)
	}
}

func TestSendTwiceProducesTwoBurstsEachEndingInEnter(t *testing.T) {
	desk := desktop.NewFake()
	clock := testClock()
	kb := NewKeyboard(desk, clock, 0, zerolog.Nop())

	kb.Send([]string{"12"}, 100*time.Millisecond)
	kb.Send([]string{"12"}, 100*time.Millisecond)

	want := []uint8{97, 98, 13, 97, 98, 13}
	got := desk.KeyDowns()
	if len(got) != len(want) {
		t.Fatalf("keys = %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v want %v", got, want)
		}
	}
	// 4 chars at 50ms + 2 settles of 100ms
	if slept := clock.Slept(); slept != 400*time.Millisecond {
		t.Fatalf("slept %s", slept)
	}
}

func TestSendEmptyIsNoop(t *testing.T) {
	desk := desktop.NewFake()
	kb := NewKeyboard(desk, testClock(), 0, zerolog.Nop())
	kb.Send(nil, time.Second)
	if n := len(desk.Keys()); n != 0 {
		t.Fatalf("expected no key events, got %d", n)
	}
}

func TestSendSkipsUnmappableRunes(t *testing.T) {
	desk := desktop.NewFake()
	kb := NewKeyboard(desk, testClock(), 0, zerolog.Nop())
	kb.Send([]string{"1é2"}, 0)
	got := desk.KeyDowns()
	if len(got) != 3 || got[0] != 97 || got[1] != 98 || got[2] != 13 {
		t.Fatalf("keys = %v", got)
	}
}

func TestComboOrdering(t *testing.T) {
	desk := desktop.NewFake()
	kb := NewKeyboard(desk, testClock(), 0, zerolog.Nop())
	kb.Combo(desktop.VKMenu, 'F')
	want := []desktop.KeyEvent{
		{VK: desktop.VKMenu}, {VK: 'F'}, {VK: 'F', Up: true}, {VK: desktop.VKMenu, Up: true},
	}
	got := desk.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %+v want %+v", got, want)
		}
	}
}

func TestFindDialogStopsAtFirstMatch(t *testing.T) {
	desk := desktop.NewFake()
	desk.AddWindow(desktop.DialogClass, "B")
	desk.AddWindow(desktop.DialogClass, "C")
	loc := NewLocator(desk, zerolog.Nop())

	h, err := loc.FindDialog([]string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("FindDialog: %v", err)
	}
	if desk.WindowText(h) != "B" {
		t.Fatalf("matched %q", desk.WindowText(h))
	}
	lookups := desk.Lookups()
	if len(lookups) != 2 || lookups[0].Title != "A" || lookups[1].Title != "B" {
		t.Fatalf("lookups = %+v", lookups)
	}
	for _, l := range lookups {
		if l.Class != desktop.DialogClass {
			t.Fatalf("dialog lookup used class %q", l.Class)
		}
	}
}

func TestFindDialogIgnoresNonDialogClass(t *testing.T) {
	desk := desktop.NewFake()
	desk.AddWindow("Notepad", "Open")
	loc := NewLocator(desk, zerolog.Nop())
	_, err := loc.FindDialog([]string{"Open"})
	if !IsDiscovery(err) {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestFindWindowRaisesToForeground(t *testing.T) {
	desk := desktop.NewFake()
	h := desk.AddWindow("", "3_convert")
	loc := NewLocator(desk, zerolog.Nop())
	got, err := loc.FindWindow("3_convert")
	if err != nil || got != h {
		t.Fatalf("FindWindow = %v, %v", got, err)
	}
	if fg := desk.Foreground(); len(fg) != 1 || fg[0] != h {
		t.Fatalf("foreground = %v", fg)
	}
	if _, err := loc.FindWindow("missing"); !IsDiscovery(err) {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestFindWindowForegroundFailureIsNotFatal(t *testing.T) {
	desk := desktop.NewFake()
	desk.FailForeground = true
	desk.AddWindow("", "4_clip")
	if _, err := NewLocator(desk, zerolog.Nop()).FindWindow("4_clip"); err != nil {
		t.Fatalf("FindWindow: %v", err)
	}
}

func TestClickControl(t *testing.T) {
	desk := desktop.NewFake()
	dlg := desk.AddWindow(desktop.DialogClass, "Open")
	desk.AddChild(dlg, "Cancel")
	open := desk.AddChild(dlg, "打开(O)")
	loc := NewLocator(desk, zerolog.Nop())

	if err := loc.ClickControl(dlg, "打开(O)"); err != nil {
		t.Fatalf("ClickControl: %v", err)
	}
	if c := desk.Clicked(); len(c) != 1 || c[0] != open {
		t.Fatalf("clicked = %v", c)
	}
	if err := loc.ClickControl(dlg, "Save"); !IsDiscovery(err) {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestLaunchDiscoversWindow(t *testing.T) {
	desk := desktop.NewFake()
	clock := testClock()
	starter := NewFakeStarter(desk, clock)
	l := NewLauncher(`C:\r3d`, starter, NewLocator(desk, zerolog.Nop()), clock, zerolog.Nop())

	h, err := l.Launch(context.Background(), "3_convert", time.Second)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if h.Window == 0 || h.Process == nil || h.Name != "3_convert" {
		t.Fatalf("handle = %+v", h)
	}
	cmds := starter.Commands()
	if len(cmds) != 1 || cmds[0].Dir != l.ToolDir {
		t.Fatalf("commands = %+v", cmds)
	}
	if clock.Slept() != time.Second {
		t.Fatalf("grace not honoured: %s", clock.Slept())
	}
}

func TestLaunchMissingWindowTerminates(t *testing.T) {
	desk := desktop.NewFake()
	clock := testClock()
	starter := NewFakeStarter(desk, clock)
	starter.Hidden["4_clip"] = true
	l := NewLauncher("bin", starter, NewLocator(desk, zerolog.Nop()), clock, zerolog.Nop())

	_, err := l.Launch(context.Background(), "4_clip", time.Second)
	if !IsDiscovery(err) {
		t.Fatalf("expected discovery error, got %v", err)
	}
	if !starter.Last("4_clip").Terminated() {
		t.Fatalf("process should be terminated after discovery failure")
	}
}

func TestLaunchStartFailure(t *testing.T) {
	desk := desktop.NewFake()
	starter := NewFakeStarter(desk, testClock())
	starter.StartErr["5_exam"] = errors.New("file not found")
	l := NewLauncher("bin", starter, NewLocator(desk, zerolog.Nop()), testClock(), zerolog.Nop())
	if _, err := l.Launch(context.Background(), "5_exam", 0); !IsProcess(err) {
		t.Fatalf("expected process error, got %v", err)
	}
}

func TestLaunchSolverAdoptsRunningProcess(t *testing.T) {
	desk := desktop.NewFake()
	clock := testClock()
	starter := NewFakeStarter(desk, clock)
	starter.ExitOnStart["RELAX3D"] = true
	running := NewFakeProcess("RELAX3D.exe", 50)
	starter.Running["relax3d.exe"] = running
	l := NewLauncher("bin", starter, NewLocator(desk, zerolog.Nop()), clock, zerolog.Nop())

	h, err := l.LaunchSolver(context.Background(), filepath.Join("bin", "RELAX3D.exe"), "", 3*time.Second)
	if err != nil {
		t.Fatalf("LaunchSolver: %v", err)
	}
	if h.Process != Process(running) {
		t.Fatalf("expected adopted process")
	}

	starter.Running = map[string]*FakeProcess{}
	if _, err := l.LaunchSolver(context.Background(), filepath.Join("bin", "RELAX3D.exe"), "", 0); !IsProcess(err) {
		t.Fatalf("expected process error, got %v", err)
	}
}

func TestLaunchCancelledDuringGrace(t *testing.T) {
	desk := desktop.NewFake()
	starter := NewFakeStarter(desk, testClock())
	l := NewLauncher("bin", starter, NewLocator(desk, zerolog.Nop()), testClock(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Launch(ctx, "3_convert", time.Second); !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !starter.Last("3_convert").Terminated() {
		t.Fatalf("process should be terminated")
	}
}

func TestWaitCPUSucceedsOnFourthSample(t *testing.T) {
	clock := testClock()
	proc := NewFakeProcess("RELAX3D.exe", 95, 80, 40, 3)
	proc.clock = clock
	proc.window = time.Second
	start := clock.Now()
	var seen []float64
	d := NewDetector(clock, zerolog.Nop())
	// samples end at 1s, 3s, 5s and 7s
	res, err := d.WaitCPU(context.Background(), "init phase", proc, CPUPolicy{Threshold: 5, Interval: time.Second, Timeout: 10 * time.Second}, func(v float64) {
		seen = append(seen, v)
	})
	if err != nil {
		t.Fatalf("WaitCPU: %v", err)
	}
	if res.Samples != 4 || res.Last != 3 || len(seen) != 4 {
		t.Fatalf("result = %+v seen = %v", res, seen)
	}
	if res.Elapsed != 7*time.Second || clock.Now().Sub(start) != 7*time.Second {
		t.Fatalf("elapsed = %v, clock advanced %v", res.Elapsed, clock.Now().Sub(start))
	}
}

func TestWaitCPUTimesOut(t *testing.T) {
	clock := testClock()
	proc := NewFakeProcess("RELAX3D.exe", 90)
	proc.clock = clock
	proc.window = time.Second
	d := NewDetector(clock, zerolog.Nop())
	res, err := d.WaitCPU(context.Background(), "iterate phase", proc, CPUPolicy{Threshold: 5, Interval: 9 * time.Second, Timeout: time.Minute}, nil)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if res.Samples != 6 {
		t.Fatalf("samples = %d", res.Samples)
	}
	if Classify(err) != OutcomeTimedOut {
		t.Fatalf("classify = %s", Classify(err))
	}
}

func TestWaitCPUZeroTimeout(t *testing.T) {
	proc := NewFakeProcess("RELAX3D.exe", 1)
	d := NewDetector(testClock(), zerolog.Nop())
	res, err := d.WaitCPU(context.Background(), "init phase", proc, CPUPolicy{Threshold: 5}, nil)
	if !IsTimeout(err) || res.Samples != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestWaitCPUCancelledMidPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc := NewFakeProcess("RELAX3D.exe", 90, 90, 1)
	proc.OnSample = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	var successes int
	d := NewDetector(testClock(), zerolog.Nop())
	_, err := d.WaitCPU(ctx, "init phase", proc, CPUPolicy{Threshold: 5, Interval: time.Second, Timeout: time.Hour}, func(v float64) {
		if v < 5 {
			successes++
		}
	})
	if !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if successes != 0 || proc.SampleCount() != 2 {
		t.Fatalf("successes=%d samples=%d", successes, proc.SampleCount())
	}
}

func TestWaitCPUProcessExited(t *testing.T) {
	proc := NewFakeProcess("RELAX3D.exe", 90)
	proc.Exit()
	d := NewDetector(testClock(), zerolog.Nop())
	_, err := d.WaitCPU(context.Background(), "init phase", proc, CPUPolicy{Threshold: 5, Interval: time.Second, Timeout: time.Hour}, nil)
	if !IsProcess(err) || !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected process-exited error, got %v", err)
	}
}

func TestWaitExit(t *testing.T) {
	d := NewDetector(testClock(), zerolog.Nop())

	gone := NewFakeProcess("RELAX3D.exe")
	gone.Exit()
	if err := d.WaitExit(context.Background(), gone, 30*time.Second); err != nil {
		t.Fatalf("WaitExit: %v", err)
	}

	stuck := NewFakeProcess("RELAX3D.exe")
	err := d.WaitExit(context.Background(), stuck, 30*time.Second)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !stuck.Terminated() {
		t.Fatalf("stuck process should be terminated")
	}
}

func TestStageHandleTerminateJoinsErrors(t *testing.T) {
	desk := desktop.NewFake()
	proc := NewFakeProcess("x.exe")
	proc.TerminateErr = errors.New("access denied")
	h := &StageHandle{Name: "x", Window: 0xdead, Process: proc, desk: desk}
	err := h.Terminate()
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !errors.Is(err, proc.TerminateErr) {
		t.Fatalf("terminate error missing: %v", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != OutcomeSucceeded {
		t.Fatal("nil")
	}
	if Classify(ErrCancelled) != OutcomeCancelled || Classify(context.Canceled) != OutcomeCancelled {
		t.Fatal("cancelled")
	}
	if Classify(ErrDiscovery("window", "x")) != OutcomeFailed {
		t.Fatal("discovery")
	}
}
