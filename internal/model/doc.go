// Package model defines the rule-record data model and loads stage
// definitions from HCL files.
//
// A rule record is a bag of named fields (input, output, params, ...) where
// each expandable field is an argument tuple: positional values followed by
// named values. The template expansion engine operates on these records;
// this package only gets them off disk and into shape.
package model
