package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/stagewalk/internal/ctxlog"
	"github.com/vk/stagewalk/internal/fsutil"
)

// Loader reads stage definition files.
type Loader struct{}

// NewLoader creates a definition file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all recognized top-level blocks of a definition file.
type fileRoot struct {
	Stages    []*stageBlock    `hcl:"stage,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type stageBlock struct {
	Name    string          `hcl:"name,label"`
	AltName *string         `hcl:"altname,optional"`
	Doc     *string         `hcl:"doc,optional"`
	Env     *string         `hcl:"env,optional"`
	Params  []*paramBlock   `hcl:"param,block"`
	Require []*requireBlock `hcl:"require,block"`
	Rules   []*ruleBlock    `hcl:"rule,block"`
	Remain  hcl.Body        `hcl:",remain"`
}

type paramBlock struct {
	Name    string         `hcl:"name,label"`
	Key     string         `hcl:"key"`
	Type    string         `hcl:"type"`
	Value   *string        `hcl:"value,optional"`
	Default hcl.Expression `hcl:"default,optional"`
	Choices []string       `hcl:"choices,optional"`
}

// requireBlock declares one input key with its alternative extension
// groups, overriding the stage's inferred inputs.
type requireBlock struct {
	Key   string     `hcl:"key,label"`
	AnyOf [][]string `hcl:"any_of"`
}

type ruleBlock struct {
	Name string `hcl:"name,label"`

	Doc *string `hcl:"doc,optional"`

	Input     hcl.Expression `hcl:"input,optional"`
	Output    hcl.Expression `hcl:"output,optional"`
	Params    hcl.Expression `hcl:"params,optional"`
	Resources hcl.Expression `hcl:"resources,optional"`
	Log       hcl.Expression `hcl:"log,optional"`
	Benchmark hcl.Expression `hcl:"benchmark,optional"`

	Message  *string `hcl:"message,optional"`
	Threads  *int    `hcl:"threads,optional"`
	Priority *int    `hcl:"priority,optional"`

	WildcardConstraints map[string]string `hcl:"wildcard_constraints,optional"`

	Shell   *string `hcl:"shell,optional"`
	Script  *string `hcl:"script,optional"`
	Extends *string `hcl:"extends,optional"`

	Remain hcl.Body `hcl:",remain"`
}

type pipelineBlock struct {
	Name   string         `hcl:"name,label"`
	Hide   *bool          `hcl:"hide,optional"`
	Params []*paramBlock  `hcl:"param,block"`
	Stages hcl.Expression `hcl:"stages"`
}

// Load parses every .hcl file under the given paths and merges the declared
// stages and pipelines into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("access %s: %w", path, err)
		}
		found := []string{path}
		if info.IsDir() {
			if found, err = fsutil.FindFilesByExtension(path, ".hcl"); err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) != ".hcl" {
			continue
		}
		for _, f := range found {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	logger.Debug("discovered definition files", "count", len(files))

	model := &Model{Rules: make(map[string]*Rule)}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", file, diags)
		}

		for _, block := range root.Stages {
			def, err := l.translateStage(block, file)
			if err != nil {
				return nil, err
			}
			model.Stages = append(model.Stages, def)
			for _, rule := range def.Rules {
				if other, ok := model.Rules[rule.Name]; ok {
					return nil, fmt.Errorf(
						"rule '%s' (%s) already defined in %s", rule.Name, rule.Source, other.Source)
				}
				model.Rules[rule.Name] = rule
			}
		}
		for _, block := range root.Pipelines {
			def, err := l.translatePipeline(block, file)
			if err != nil {
				return nil, err
			}
			model.Pipelines = append(model.Pipelines, def)
		}
	}

	logger.Debug("definitions loaded",
		"stages", len(model.Stages), "pipelines", len(model.Pipelines), "rules", len(model.Rules))
	return model, nil
}

func (l *Loader) translateStage(block *stageBlock, file string) (*StageDef, error) {
	def := &StageDef{
		Name:    block.Name,
		AltName: deref(block.AltName),
		Doc:     deref(block.Doc),
		Env:     deref(block.Env),
		Source:  sourceOf(file, block.Remain),
	}
	for _, pb := range block.Params {
		param, err := l.translateParam(pb, file)
		if err != nil {
			return nil, fmt.Errorf("stage '%s': %w", block.Name, err)
		}
		def.Params = append(def.Params, param)
	}
	if len(block.Require) > 0 {
		def.Require = make(map[string][][]string, len(block.Require))
		for _, rb := range block.Require {
			def.Require[rb.Key] = rb.AnyOf
		}
	}
	for _, rb := range block.Rules {
		rule, err := l.translateRule(rb, file)
		if err != nil {
			return nil, fmt.Errorf("stage '%s': %w", block.Name, err)
		}
		def.Rules = append(def.Rules, rule)
	}
	return def, nil
}

func (l *Loader) translateParam(block *paramBlock, file string) (ParamDef, error) {
	def := ParamDef{
		Name:    block.Name,
		Key:     block.Key,
		Type:    block.Type,
		Value:   deref(block.Value),
		Choices: block.Choices,
	}
	if block.Default != nil {
		val, diags := block.Default.Value(nil)
		if diags.HasErrors() {
			return def, fmt.Errorf("param '%s' in %s: %w", block.Name, file, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return def, fmt.Errorf("param '%s' in %s: %w", block.Name, file, err)
		}
		def.Default = native
	}
	return def, nil
}

func (l *Loader) translateRule(block *ruleBlock, file string) (*Rule, error) {
	rule := &Rule{
		Name:                block.Name,
		Doc:                 deref(block.Doc),
		Message:             deref(block.Message),
		WildcardConstraints: block.WildcardConstraints,
		Shell:               deref(block.Shell),
		Script:              deref(block.Script),
		Extends:             deref(block.Extends),
		Source:              sourceOf(file, block.Remain),
	}
	if block.Threads != nil {
		rule.Threads = *block.Threads
	}
	if block.Priority != nil {
		rule.Priority = *block.Priority
	}
	if rule.Shell != "" && rule.Script != "" {
		return nil, fmt.Errorf("rule '%s' (%s): both shell and script set", rule.Name, rule.Source)
	}

	fields := []struct {
		name string
		expr hcl.Expression
	}{
		{"input", block.Input},
		{"output", block.Output},
		{"params", block.Params},
		{"resources", block.Resources},
		{"log", block.Log},
		{"benchmark", block.Benchmark},
	}
	for _, f := range fields {
		tuple, err := translateField(f.expr)
		if err != nil {
			return nil, fmt.Errorf("rule '%s' (%s): field %s: %w", rule.Name, rule.Source, f.name, err)
		}
		rule.SetField(f.name, tuple)
	}
	return rule, nil
}

func (l *Loader) translatePipeline(block *pipelineBlock, file string) (*PipelineDef, error) {
	def := &PipelineDef{
		Name:   block.Name,
		Hide:   block.Hide != nil && *block.Hide,
		Source: file,
	}
	for _, pb := range block.Params {
		param, err := l.translateParam(pb, file)
		if err != nil {
			return nil, fmt.Errorf("pipeline '%s': %w", block.Name, err)
		}
		def.Params = append(def.Params, param)
	}

	val, diags := block.Stages.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("pipeline '%s' in %s: %w", block.Name, file, diags)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("pipeline '%s' in %s: %w", block.Name, file, err)
	}
	list, ok := native.([]any)
	if !ok {
		return nil, fmt.Errorf("pipeline '%s' in %s: stages must be a list", block.Name, file)
	}
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			def.Stages = append(def.Stages, PipelineMemberDef{Name: e})
		case map[string]any:
			if len(e) != 1 {
				return nil, fmt.Errorf(
					"pipeline '%s' in %s: stage entry must name exactly one stage", block.Name, file)
			}
			for name, opts := range e {
				member := PipelineMemberDef{Name: name}
				if m, ok := opts.(map[string]any); ok {
					if hide, ok := m["hide"].(bool); ok {
						member.Hide = hide
					}
				}
				def.Stages = append(def.Stages, member)
			}
		default:
			return nil, fmt.Errorf(
				"pipeline '%s' in %s: bad stage entry %v", block.Name, file, entry)
		}
	}
	if len(def.Stages) == 0 {
		return nil, fmt.Errorf("pipeline '%s' in %s: no stages", block.Name, file)
	}
	return def, nil
}

// translateField evaluates a tuple-field expression. An absent attribute
// decodes to a nil expression value and yields a nil tuple.
func translateField(expr hcl.Expression) (*ArgsTuple, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return translateArgs(val)
}

func sourceOf(file string, body hcl.Body) string {
	if body == nil {
		return file
	}
	return fmt.Sprintf("%s:%d", file, body.MissingItemRange().Start.Line)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
