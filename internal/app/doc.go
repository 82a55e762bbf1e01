// Package app wires the application together: logger, workspace and
// definition loading, stage registration, rule expansion, and the
// resolution run that turns target paths into printed stage stacks.
package app
