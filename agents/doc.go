// Package agents contains the four pipeline workers behind the uniform
// task contract: research (requirements analysis), cad (model generation),
// slicer (G-code generation), and printer (physical printing).
//
// The orchestrator consumes a worker only through Agent.Execute; the
// implementations here are self-contained placeholders that produce
// realistic outputs so the pipeline runs end to end in-process. Swapping
// one for an NLP service, a mesh engine, a slicer CLI wrapper, or a
// serial printer driver does not touch the orchestration core.
package agents
