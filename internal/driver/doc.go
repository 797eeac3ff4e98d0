// Package driver holds the building blocks that drive one legacy Windows
// program. It is split into small files by concern:
//
//   - locator.go: window, dialog and control discovery (Locator).
//   - keyboard.go: synthetic key bursts (Keyboard) and the key code tables.
//   - launcher.go: starting tools and the solver, window discovery (Launcher).
//   - completion.go: settle delays, CPU-quiescence and exit waits (Detector).
//   - process.go: Process/Starter abstraction over os/exec and gopsutil.
//   - handle.go: StageHandle, the program a stage is currently driving.
//   - errors.go: discovery/process/timeout errors, ErrCancelled, Classify.
//   - clock.go: Clock and the FakeClock used by tests.
//   - fake.go: FakeStarter and FakeProcess for tests.
//
// Keyboard bursts never take a context: once started they run to completion.
// Every other blocking call takes one and returns ErrCancelled when it is done.
package driver
