// Package stage implements the stage path resolution engine.
//
// A stage is a named unit of work with declared input and output file-type
// patterns. Stages are collected in a Registry together with the virtual
// stage kinds (Project, Pipeline, Reference, GroupBy) that redirect or
// synthesize outputs instead of running computation.
//
// A dot-separated path string such as "myproject.trimQ20.assemble" is
// resolved into a Stack: the project at the root, the head stage with its
// parsed parameter values, a map from each required input type to the
// upstream Stack providing it, and the active grouping columns. Stacks are
// memoized per path, so resolving the same path twice yields the identical
// object.
package stage
