// Package cli parses command-line arguments, validates user input, and
// translates flags into the application configuration.
package cli
