package item

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/store"
)

// queryEnv declares the item fields a query predicate can see and the
// q_* parameters the intent is bound to. Text fields are lower-cased before
// evaluation.
var queryEnv = mustQueryEnv()

func mustQueryEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("type", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("raw_text", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("archived", cel.BoolType),
		cel.Variable("q_types", cel.ListType(cel.StringType)),
		cel.Variable("q_statuses", cel.ListType(cel.StringType)),
		cel.Variable("q_tags", cel.ListType(cel.StringType)),
		cel.Variable("q_terms", cel.ListType(cel.StringType)),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create query environment: %v", err))
	}
	return env
}

// queryPredicate is a compiled QueryIntent.
type queryPredicate struct {
	program cel.Program
	params  map[string]any
}

// BuildQueryExpression returns the CEL expression for an intent. Only the
// filters the intent sets appear in it.
func BuildQueryExpression(q *intake.QueryIntent) string {
	var clauses []string
	if len(q.Types) > 0 {
		clauses = append(clauses, "type in q_types")
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, "status in q_statuses")
	}
	if len(q.Tags) > 0 {
		clauses = append(clauses, "q_tags.exists(t, t in tags)")
	}
	if len(queryTerms(q.SearchText)) > 0 {
		clauses = append(clauses, "q_terms.all(w, title.contains(w) || description.contains(w) || raw_text.contains(w) || tags.exists(t, t.contains(w)))")
	}
	if !q.IncludeArchived {
		clauses = append(clauses, "!archived")
	}
	if len(clauses) == 0 {
		return "true"
	}
	return strings.Join(clauses, " && ")
}

func compileQuery(q *intake.QueryIntent) (*queryPredicate, error) {
	expr := BuildQueryExpression(q)
	ast, issues := queryEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile query %q: %w", expr, issues.Err())
	}
	program, err := queryEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build query program: %w", err)
	}

	types := make([]string, 0, len(q.Types))
	for _, t := range q.Types {
		types = append(types, string(t))
	}
	statuses := make([]string, 0, len(q.Statuses))
	for _, st := range q.Statuses {
		statuses = append(statuses, string(st))
	}
	return &queryPredicate{
		program: program,
		params: map[string]any{
			"q_types":    types,
			"q_statuses": statuses,
			"q_tags":     lowerAll(q.Tags),
			"q_terms":    queryTerms(q.SearchText),
		},
	}, nil
}

func (p *queryPredicate) match(item *store.Item) (bool, error) {
	vars := map[string]any{
		"type":        string(item.Type),
		"status":      string(item.Status),
		"title":       strings.ToLower(item.Title),
		"description": strings.ToLower(item.Description),
		"raw_text":    strings.ToLower(item.RawText),
		"tags":        lowerAll(item.Tags),
		"archived":    item.IsArchived(),
	}
	for k, v := range p.params {
		vars[k] = v
	}
	out, _, err := p.program.Eval(vars)
	if err != nil {
		return false, err
	}
	matched, ok := out.Value().(bool)
	return ok && matched, nil
}

// Query returns the user's items matching a structured query intent.
func (s *Service) Query(ctx context.Context, userID int32, q *intake.QueryIntent) ([]*store.Item, error) {
	if q == nil {
		q = &intake.QueryIntent{}
	}
	predicate, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	find := &store.FindItem{UserID: &userID, ExcludeArchived: !q.IncludeArchived}
	if terms := queryTerms(q.SearchText); len(terms) > 0 {
		find.Keywords = terms
	}
	candidates, err := s.store.ListItems(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	result := make([]*store.Item, 0, len(candidates))
	for _, item := range candidates {
		ok, err := predicate.match(item)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate query on item %d: %w", item.ID, err)
		}
		if ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func searchTerms(text string) []string {
	return lowerAll(strings.Fields(text))
}

// queryTerms drops "#tag" words, which the intent already carries as tags.
func queryTerms(text string) []string {
	terms := searchTerms(text)
	kept := terms[:0]
	for _, t := range terms {
		if !strings.HasPrefix(t, "#") {
			kept = append(kept, t)
		}
	}
	return kept
}

func lowerAll(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			result = append(result, v)
		}
	}
	return result
}
