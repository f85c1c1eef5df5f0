// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// exprGate evaluates a CEL boolean expression over a `paper` variable, e.g.
//
//	paper.categories.exists(c, c.startsWith("eess."))
//	paper.title.contains("forecast") && size(paper.authors) <= 10
type exprGate struct {
	source string
	prg    cel.Program
}

// compileFilter compiles src once so every record reuses the program.
func compileFilter(src string) (*exprGate, error) {
	env, err := cel.NewEnv(cel.Variable("paper", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("creating expression environment: %w", err)
	}
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, configErr("filter_expr", "compile error: %v", issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, configErr("filter_expr", "expression must return bool, got %s", out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, configErr("filter_expr", "program error: %v", err)
	}
	return &exprGate{source: src, prg: prg}, nil
}

// Match reports whether rec satisfies the expression.
func (g *exprGate) Match(rec types.PaperRecord) (bool, error) {
	out, _, err := g.prg.Eval(map[string]any{"paper": paperVars(rec)})
	if err != nil {
		return false, fmt.Errorf("evaluating filter: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter returned %T, want bool", out.Value())
	}
	return ok, nil
}

func paperVars(rec types.PaperRecord) map[string]any {
	authors := rec.Authors
	if authors == nil {
		authors = []string{}
	}
	categories := rec.Categories
	if categories == nil {
		categories = []string{}
	}
	return map[string]any{
		"id":         rec.ID,
		"title":      rec.Title,
		"abstract":   rec.Abstract,
		"authors":    authors,
		"categories": categories,
		"keyword":    rec.Keyword,
		"published":  rec.Published,
	}
}
