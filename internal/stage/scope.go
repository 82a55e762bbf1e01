package stage

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope is the handle for a stage that is currently being defined. It is
// returned by Registry.BeginStage and must be closed with Registry.EndStage.
// While open, the template expansion engine consults it for the contextual
// placeholder values ({:this:}, {:that:}, {:prev:}) and it collects the
// input and output file types inferred from rule templates.
type Scope struct {
	reg   *Registry
	stage *Stage
	// lastRules are the rules the stage had when the scope was opened; new
	// rules are ordered before them for the execution engine.
	lastRules []string
}

// Stage returns the stage being defined.
func (sc *Scope) Stage() *Stage { return sc.stage }

// AddRule records a rule as belonging to the scoped stage. Rules declared
// later in the same scope take precedence over earlier ones wherever both
// could produce the same output.
func (sc *Scope) AddRule(name string) {
	for _, last := range sc.lastRules {
		sc.reg.AddRuleOrder(name, last)
	}
	sc.stage.addRule(name)
}

// This resolves a {:this:} occurrence within item: the output file type is
// registered with the stage and the stage directory template is returned.
func (sc *Scope) This(item string) (string, error) {
	if _, err := sc.registerInOut("this", sc.stage.outputs, item); err != nil {
		return "", err
	}
	return sc.stage.Wildcards(sc.stage.name), nil
}

// That resolves a {:that:} occurrence: the alternate output directory of a
// stage declared with an altname. Unlike This, no output type is inferred;
// the alternate directory holds the complement of a splitting stage.
func (sc *Scope) That(_ string) (string, error) {
	if sc.stage.altname == "" {
		return "", &DefinitionError{
			Stage: sc.stage.name, Source: sc.stage.Source,
			Msg: "use of {:that:} requires altname",
		}
	}
	return sc.stage.Wildcards(sc.stage.altname), nil
}

// Prev handles a {:prev:} occurrence at definition time: the input file
// type is registered with the stage. The directory itself depends on the
// concrete stack and per-job wildcards, so ok is false to signal that
// resolution must be deferred.
func (sc *Scope) Prev(item string) (value string, ok bool, err error) {
	if _, err := sc.registerInOut("prev", sc.stage.inputs, item); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// inoutPatterns caches the inference regex per context name.
var inoutPatterns = map[string]*regexp.Regexp{}

func inoutPattern(name string) *regexp.Regexp {
	re, ok := inoutPatterns[name]
	if !ok {
		re = regexp.MustCompile(
			`^(?P<prefix>.*)\{:\s*` + name + `\s*:\}` +
				`(?P<infix>/?.*?)` +
				`(?P<target>\{:?\s*(?:target|sample|source)(?:\([^)]*\))?\s*:?\})?` +
				`(?P<suffix>.*)$`)
		inoutPatterns[name] = re
	}
	return re
}

// registerInOut infers a stage input/output file type from a rule template
// of the shape "{:NAME:}/{sample}.EXT" and adds it to the given set.
func (sc *Scope) registerInOut(name string, target map[string]bool, item string) (string, error) {
	re := inoutPattern(name)
	groups := re.FindStringSubmatch(item)
	if groups == nil {
		return "", &DefinitionError{
			Stage: sc.stage.name, Source: sc.stage.Source,
			Msg: fmt.Sprintf("malformed '{:%s:}' string: '%s'", name, item),
		}
	}
	prefix := groups[re.SubexpIndex("prefix")]
	if prefix != "" {
		return "", &DefinitionError{
			Stage: sc.stage.name, Source: sc.stage.Source,
			Msg: fmt.Sprintf("stage prefix '%s' in '%s' not supported", prefix, item),
		}
	}
	infix := groups[re.SubexpIndex("infix")]
	if infix != "" && infix != "/" {
		return "", &DefinitionError{
			Stage: sc.stage.name, Source: sc.stage.Source,
			Msg: fmt.Sprintf("filename prefix '%s' in '%s' not supported", infix, item),
		}
	}
	suffix := groups[re.SubexpIndex("suffix")]
	var normType string
	if groups[re.SubexpIndex("target")] != "" {
		normType = "/{sample}" + suffix
	} else {
		normType = "/" + suffix
	}
	if !strings.Contains(suffix, "{") {
		target[normType] = true
	}
	return normType, nil
}

// NormWildcards rewrites the wildcard aliases of a file pattern to their
// canonical forms so patterns compare equal across stages.
func NormWildcards(pattern string) string {
	for _, n := range []string{"{target}", "{source}", "{:target:}"} {
		pattern = strings.ReplaceAll(pattern, n, "{sample}")
	}
	for _, n := range []string{"{:targets:}", "{:sources:}"} {
		pattern = strings.ReplaceAll(pattern, n, "{:samples:}")
	}
	return pattern
}
