// Package trace is the structured logging layer of zealbuild.
//
// Include resolution and every toolchain stage report what they do as trace
// events, so a slow remote include or a hung tool can be located afterwards.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	zealbuild build --trace=- --trace-level=detail main.asm
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when a build fails
//   - MultiTracer: combines several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only failure dumps
//   - LevelPhase: driver and stage boundaries
//   - LevelDetail: include resolution events
//   - LevelDebug: everything
//
// # Scopes
//
//   - ScopeDriver: CLI commands and whole pipeline runs
//   - ScopeStage: one toolchain stage (assemble, link, extract)
//   - ScopeInclude: directive resolution and fetches
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "assemble", parentID)
//	defer span.End("")
package trace
