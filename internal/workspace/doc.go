// Package workspace loads the YAML workspace configuration declaring
// projects (sample tables) and references (static file sets).
package workspace
