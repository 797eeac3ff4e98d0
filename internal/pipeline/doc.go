// Package pipeline sequences the legacy tools into the preprocessing and
// relaxation runs. It is structured into small files by concern:
//
//   - request.go: Request, Option, Mode and the output file naming rule.
//   - stage.go: the closed set of stage variants and completion policies.
//   - plan.go: Plan and the builders PlanPreprocess / PlanRelax.
//   - graph.go: stage chain as a graph (plan checks, DOT export).
//   - state.go: the run state machine (Machine, Phase).
//   - run.go: RunState, the per-run token (cancel, active handle, snapshot).
//   - runner.go: Runner, which executes a plan stage by stage.
//   - result.go: Result and failure classification.
//   - events.go: Event, Reporter implementations (log, memory, multi).
//   - broadcast.go: Broadcaster fan-out for streaming subscribers.
//   - controller.go: Controller, which serialises runs and records history.
//   - metrics.go: Prometheus collectors.
//
// Stages run strictly one after another and at most one launched program is
// active at a time. Cancellation is observed before each stage and at every
// settle and poll boundary, never in the middle of a keyboard burst.
package pipeline
