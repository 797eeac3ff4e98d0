package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relax3d/internal/desktop"
)

func TestPreviewRunsGeometryAndFieldSetupOnly(t *testing.T) {
	h := newHarness(t)
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModePreview)

	res, run := h.run(t, plan)

	require.Equal(t, StatusDone, res.Status, res.Cause)
	assert.Equal(t, []string{"1_GEOMETRY", "2_initial"}, h.starter.Launched())
	assert.Equal(t, []string{"1_GEOMETRY", "2_initial"}, res.Completed)
	assert.Empty(t, res.OutputFile)
	// 2_initial is left to finish on its own
	assert.Equal(t, []string{"1_GEOMETRY"}, h.desk.ClosedTitles())

	want := keyCodes("L12.dxf", "0", "0", "1", "2", "3",
		"-1.5", "1.5", "0",
		"-1.5", "1.5", "100",
		"-1.5", "1.5", "-100")
	assert.Equal(t, want, h.desk.KeyDowns())

	snap := run.Snapshot()
	assert.Equal(t, PhaseDone, snap.Phase)
	assert.Empty(t, snap.Active)
	assert.Equal(t, []EventKind{
		EventRunStarted,
		EventStageStarted, EventStageDone,
		EventStageStarted, EventStageDone,
		EventRunDone,
	}, h.events.Kinds())
}

func TestPreprocessTypesFileNameWithoutDirectory(t *testing.T) {
	for _, file := range []string{"data/L12.dxf", `C:\work\L12.dxf`} {
		t.Run(file, func(t *testing.T) {
			h := newHarness(t)
			plan := h.preprocessPlan(t, file, OptionL, ModePreview)

			res, _ := h.run(t, plan)

			require.Equal(t, StatusDone, res.Status, res.Cause)
			keys := h.desk.KeyDowns()
			assert.NotContains(t, keys, uint8('/'))
			assert.NotContains(t, keys, uint8('\\'))
			want := keyCodes("L12.dxf", "0", "0", "1", "2", "3",
				"-1.5", "1.5", "0",
				"-1.5", "1.5", "100",
				"-1.5", "1.5", "-100")
			assert.Equal(t, want, keys)
		})
	}
}

func TestFullRunInvokesAllStagesInOrder(t *testing.T) {
	h := newHarness(t)
	dlg := h.desk.AddWindow(desktop.DialogClass, "Open")
	button := h.desk.AddChild(dlg, "打开(O)")
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModeRun)

	res, _ := h.run(t, plan)

	require.Equal(t, StatusDone, res.Status, res.Cause)
	order := []string{"1_GEOMETRY", "2_initial", "3_convert", "4_clip", "5_exam", "6_divide"}
	assert.Equal(t, order, h.starter.Launched())
	assert.Equal(t, order, res.Completed)
	assert.Equal(t, "L12.txt", res.OutputFile)
	assert.Equal(t, []string{"1_GEOMETRY", "3_convert", "4_clip", "5_exam", "6_divide"}, h.desk.ClosedTitles())
	assert.Equal(t, []desktop.Handle{button}, h.desk.Clicked())

	// the specific dialog title is tried first, the generic "Open" matches,
	// and the later candidates are never looked up
	var dialogLookups []string
	for _, l := range h.desk.Lookups() {
		if l.Class == desktop.DialogClass {
			dialogLookups = append(dialogLookups, l.Title)
		}
	}
	assert.Equal(t, []string{"Open: Select File for Unit 2", "Open"}, dialogLookups)

	// the output name is typed exactly once
	name := keyCodes("L12.txt")
	assert.Equal(t, 1, countSubsequence(h.desk.KeyDowns(), name))

	done := h.events.Events()
	last := done[len(done)-1]
	assert.Equal(t, EventRunDone, last.Kind)
	assert.Equal(t, "output L12.txt", last.Message)
}

func TestDivideFallsBackToEnterWithoutButton(t *testing.T) {
	h := newHarness(t)
	h.desk.AddWindow(desktop.DialogClass, "Select File")
	plan := h.preprocessPlan(t, "S7.dxf", OptionS, ModeRun)

	res, _ := h.run(t, plan)

	require.Equal(t, StatusDone, res.Status, res.Cause)
	assert.Empty(t, h.desk.Clicked())
	assert.Contains(t, h.desk.Keys(), desktop.KeyEvent{VK: desktop.VKReturn, Up: true})
}

func TestDivideWithoutDialogFailsWithDiscovery(t *testing.T) {
	h := newHarness(t)
	plan := h.preprocessPlan(t, "S7.dxf", OptionS, ModeRun)

	res, run := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "6_divide", res.Stage)
	assert.Equal(t, FailureDiscovery, res.Failure)
	assert.Contains(t, res.Cause, "dialog not found")
	assert.True(t, h.starter.Last("6_divide").Terminated())
	assert.Equal(t, PhaseFailed, run.Snapshot().Phase)
	assert.Equal(t, 0, h.events.Count(EventRunDone))
}

func TestMissingWindowAbortsStage(t *testing.T) {
	h := newHarness(t)
	h.starter.Hidden["2_initial"] = true
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModeRun)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "2_initial", res.Stage)
	assert.Equal(t, FailureDiscovery, res.Failure)
	assert.Equal(t, []string{"1_GEOMETRY"}, res.Completed)
	assert.Equal(t, []string{"1_GEOMETRY", "2_initial"}, h.starter.Launched())
	assert.True(t, h.starter.Last("2_initial").Terminated())
}

func TestStartFailureIsProcessFailure(t *testing.T) {
	h := newHarness(t)
	h.starter.StartErr["1_GEOMETRY"] = errors.New("access denied")
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModePreview)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, FailureProcess, res.Failure)
	assert.Contains(t, res.Cause, "access denied")
}

func TestPreflightReportsMissingExecutables(t *testing.T) {
	h := newHarness(t)
	h.runner.verify = true
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.ToolsDir, "1_GEOMETRY.exe"), nil, 0o755))
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModePreview)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "preflight", res.Stage)
	assert.Equal(t, FailureConfiguration, res.Failure)
	assert.Contains(t, res.Cause, "2_initial.exe")
	assert.NotContains(t, res.Cause, "1_GEOMETRY.exe")
	assert.Empty(t, h.starter.Launched())
}

func TestRelaxRunDrivesSolverThroughAllPhases(t *testing.T) {
	h := newHarness(t)
	h.starter.Samples["RELAX3D"] = []float64{50, 3, 90, 2}
	// init sends two commands, iterate one; the output command's Enter is the 4th
	h.exitSolverOnEnter(4)
	plan := h.relaxPlan(t, OptionL)
	before := testutil.ToFloat64(runsTotal.WithLabelValues("relax", "done"))

	res, run := h.run(t, plan)

	require.Equal(t, StatusDone, res.Status, res.Cause)
	assert.Equal(t, []string{"launch", "init", "iterate", "output"}, res.Completed)
	assert.Equal(t, []string{"RELAX3D"}, h.starter.Launched())
	cmd := h.starter.Commands()[0]
	assert.Equal(t, h.cfg.ToolsDir, cmd.Dir)

	proc := h.starter.Last("RELAX3D")
	assert.Equal(t, 4, proc.SampleCount())
	assert.False(t, proc.Terminated())
	assert.Equal(t, 4, h.events.Count(EventCPUSample))

	want := append([]uint8{desktop.VKSpace}, keyCodes("I", "1", "R", "O")...)
	assert.Equal(t, want, h.desk.KeyDowns())

	snap := run.Snapshot()
	assert.Equal(t, PhaseDone, snap.Phase)
	assert.Equal(t, 2.0, snap.LastCPU)
	assert.Empty(t, snap.Active)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("relax", "done")))
}

func TestRelaxPhaseTimeoutNamesThePhase(t *testing.T) {
	h := newHarness(t)
	h.cfg.Solver.PhaseTimeoutSeconds = 60
	h.starter.Samples["RELAX3D"] = []float64{90}
	plan := h.relaxPlan(t, OptionL)

	res, run := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "init", res.Stage)
	assert.Equal(t, FailureTimeout, res.Failure)
	assert.Contains(t, res.Cause, "init phase")
	assert.True(t, h.starter.Last("RELAX3D").Terminated())
	assert.Equal(t, PhaseFailed, run.Snapshot().Phase)
	assert.Equal(t, 0, h.events.Count(EventRunDone))
}

func TestRelaxIterateTimeoutIsDistinct(t *testing.T) {
	h := newHarness(t)
	h.cfg.Solver.PhaseTimeoutSeconds = 60
	h.starter.Samples["RELAX3D"] = []float64{1, 99}
	plan := h.relaxPlan(t, OptionL)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "iterate", res.Stage)
	assert.Contains(t, res.Cause, "iterate phase")
}

func TestRelaxSolverExitTimeoutTerminates(t *testing.T) {
	h := newHarness(t)
	h.starter.Samples["RELAX3D"] = []float64{1}
	plan := h.relaxPlan(t, OptionL)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "output", res.Stage)
	assert.Equal(t, FailureTimeout, res.Failure)
	assert.True(t, h.starter.Last("RELAX3D").Terminated())
}

func TestRelaxSolverExitingDuringPhaseIsProcessFailure(t *testing.T) {
	h := newHarness(t)
	h.starter.Samples["RELAX3D"] = []float64{90}
	// the first init command's Enter kills the solver
	h.exitSolverOnEnter(1)
	plan := h.relaxPlan(t, OptionL)

	res, _ := h.run(t, plan)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "init", res.Stage)
	assert.Equal(t, FailureProcess, res.Failure)
}

func TestCancelMidPollYieldsCancelled(t *testing.T) {
	h := newHarness(t)
	h.starter.Samples["RELAX3D"] = []float64{90}
	plan := h.relaxPlan(t, OptionL)
	run, ctx := h.newRun(plan)
	h.setOnEvent(func(e Event) {
		if e.Kind == EventCPUSample && h.events.Count(EventCPUSample) == 2 {
			run.Cancel()
		}
	})

	res := h.runner.Run(ctx, run, plan)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, "init", res.Stage)
	assert.Empty(t, res.Cause)
	assert.Equal(t, []string{"launch"}, res.Completed)
	assert.True(t, h.starter.Last("RELAX3D").Terminated())
	assert.Equal(t, 2, h.starter.Last("RELAX3D").SampleCount())

	kinds := h.events.Kinds()
	assert.Equal(t, EventRunCancelled, kinds[len(kinds)-1])
	assert.Equal(t, 0, h.events.Count(EventRunDone))
	assert.Equal(t, PhaseCancelled, run.Snapshot().Phase)
	assert.False(t, run.Cancel(), "cancel after the run finished")
}

func TestCancelBeforeFirstStageLaunchesNothing(t *testing.T) {
	h := newHarness(t)
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModeRun)
	run, ctx := h.newRun(plan)
	require.True(t, run.Cancel())
	require.False(t, run.Cancel())

	res := h.runner.Run(ctx, run, plan)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Empty(t, h.starter.Launched())
	assert.Empty(t, res.Completed)
}

func TestCancelBetweenStagesStopsBeforeNextLaunch(t *testing.T) {
	h := newHarness(t)
	plan := h.preprocessPlan(t, "L12.dxf", OptionL, ModeRun)
	run, ctx := h.newRun(plan)
	h.setOnEvent(func(e Event) {
		if e.Kind == EventStageDone && e.Stage == "2_initial" {
			run.Cancel()
		}
	})

	res := h.runner.Run(ctx, run, plan)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, []string{"1_GEOMETRY", "2_initial"}, h.starter.Launched())
	assert.Equal(t, "2_initial", res.Stage)
}

func countSubsequence(haystack, needle []uint8) int {
	n := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}
