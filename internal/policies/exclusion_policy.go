package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/cel-go/cel"

	"cascade-builds/internal/types"
)

// ExclusionPolicy filters repositories out of a build plan. Each rule has an
// optional CEL condition over the target and a list of glob patterns
// matched against "owner/name" (or just the name when the pattern has no
// slash).
type ExclusionPolicy struct {
	rules []compiledRule
}

type compiledRule struct {
	name     string
	when     string
	program  cel.Program
	patterns []string
}

func NewExclusionPolicy(rules []types.ExclusionRule) (ExclusionPolicy, error) {
	env, err := newConditionEnv()
	if err != nil {
		return ExclusionPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create exclusion condition environment").
			WithCause(err)
	}
	policy := ExclusionPolicy{}
	for i, rule := range rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		compiled := compiledRule{name: name, when: strings.TrimSpace(rule.When)}
		for _, pattern := range rule.Repositories {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			if !doublestar.ValidatePattern(pattern) {
				return ExclusionPolicy{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("exclusion rule %s has invalid pattern %q", name, pattern))
			}
			compiled.patterns = append(compiled.patterns, pattern)
		}
		if compiled.when != "" {
			program, err := compileCondition(env, compiled.when)
			if err != nil {
				return ExclusionPolicy{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("exclusion rule %s has invalid condition", name)).
					WithCause(err)
			}
			compiled.program = program
		}
		policy.rules = append(policy.rules, compiled)
	}
	return policy, nil
}

// Excludes reports whether repo is left out when building around target.
func (p ExclusionPolicy) Excludes(target types.CatalogEntry, variant types.PlanVariant, repo types.RepositoryID) (bool, error) {
	for _, rule := range p.rules {
		active, err := rule.applies(target, variant)
		if err != nil {
			return false, err
		}
		if active && rule.matches(repo) {
			return true, nil
		}
	}
	return false, nil
}

// Active lists the names of rules whose condition holds for target.
func (p ExclusionPolicy) Active(target types.CatalogEntry, variant types.PlanVariant) ([]string, error) {
	var names []string
	for _, rule := range p.rules {
		active, err := rule.applies(target, variant)
		if err != nil {
			return nil, err
		}
		if active {
			names = append(names, rule.name)
		}
	}
	return names, nil
}

func (r compiledRule) applies(target types.CatalogEntry, variant types.PlanVariant) (bool, error) {
	if r.program == nil {
		return true, nil
	}
	out, _, err := r.program.Eval(map[string]any{
		"target": map[string]string{
			"owner":  target.Repo.Owner,
			"name":   target.Repo.Name,
			"branch": string(target.Branch),
		},
		"variant": string(variant),
	})
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("exclusion rule %s condition failed for %s", r.name, target.Repo)).
			WithCause(err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("exclusion rule %s condition %q did not return bool", r.name, r.when))
	}
	return result, nil
}

func (r compiledRule) matches(repo types.RepositoryID) bool {
	for _, pattern := range r.patterns {
		subject := repo.FullName()
		if !strings.Contains(pattern, "/") {
			subject = repo.Name
		}
		if ok, err := doublestar.Match(pattern, subject); err == nil && ok {
			return true
		}
	}
	return false
}

func newConditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("target", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("variant", cel.StringType),
	)
}

func compileCondition(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return prg, nil
}
