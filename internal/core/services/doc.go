// Package services implements the driving port interfaces.
// Services contain the core ranking logic and orchestrate
// calls to driven ports (adapters).
//
// The query pipeline is:
//
//	normalise -> lexical || dense -> temporal filter -> fuse (RRF)
//	-> rerank (time budget) -> resolve parents -> confidence gate
//
// Services are pure Go with no CGO dependencies.
package services
