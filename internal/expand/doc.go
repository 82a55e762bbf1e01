// Package expand implements the template expansion engine for rule records.
//
// Rules are processed by a fixed, ordered chain of expander strategies:
// inheritance merging, defaults, stage context resolution ({:this:} style
// placeholders), and finally recursive field expansion ({input} style
// placeholders). Field expansion builds a dependency graph over the
// flattened field values, orders it topologically, and partially formats
// each value; values that still reference per-job parameters (wildcards,
// input, threads, ...) become LateFunc closures invoked by the execution
// engine once concrete job values exist.
//
// Why a strategy chain: each expander is a small value with one Expand
// method, applied in a fixed order to every rule. There is no shared
// mutable workflow object to subclass or patch; adding behavior means
// adding an element to the chain.
package expand
