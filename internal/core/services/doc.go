// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The reasoning loop lives here: the Planner maps a question and its
// evidence to one Decision, and the Orchestrator dispatches decisions to
// the leaf stages until the question is answered or a budget runs out.
//
// Services are pure Go with no CGO and no infrastructure dependencies.
package services
