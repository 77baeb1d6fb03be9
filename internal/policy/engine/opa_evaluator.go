// Package engine evaluates console page-access policy with OPA Rego.
package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	userdomain "maintenance-manager/console/internal/user/domain"
)

const policyPackage = "console.page_access"

// Default policy: the route's allow-list, where an empty list admits every signed-in role.
// Extra modules in the same package may add allow or deny rules.
const defaultRegoPolicy = `package console.page_access

default allow := false

default deny := false

default permit := false

allow if count(input.route.allowed_roles) == 0

allow if input.user.role in input.route.allowed_roles

permit if {
	allow
	not deny
}
`

// OPAEvaluator decides page access with a compiled Rego policy.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the default page-access policy together with extra Rego modules.
func NewOPAEvaluator(ctx context.Context, extra ...string) (*OPAEvaluator, error) {
	modules := map[string]string{"page_access.rego": defaultRegoPolicy}
	for i, p := range extra {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(
		rego.Query("data."+policyPackage+".permit"),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// AllowPage reports whether role may open route, whose static allow-list is allowed.
func (e *OPAEvaluator) AllowPage(ctx context.Context, role userdomain.Role, route string, allowed []userdomain.Role) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(role, route, allowed)))
	if err != nil {
		return false, fmt.Errorf("eval page policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	permit, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy result is %T, want bool", rs[0].Expressions[0].Value)
	}
	return permit, nil
}

// HealthCheck evaluates the policy once for an unrestricted route. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.AllowPage(ctx, userdomain.RoleAdmin, "/dashboard", nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy denies the dashboard to admins")
	}
	return nil
}

func buildInput(role userdomain.Role, route string, allowed []userdomain.Role) map[string]interface{} {
	// Never nil: a null list would leave count() undefined.
	roles := make([]interface{}, 0, len(allowed))
	for _, r := range allowed {
		roles = append(roles, string(r))
	}
	return map[string]interface{}{
		"user": map[string]interface{}{
			"role": string(role),
		},
		"route": map[string]interface{}{
			"path":          route,
			"allowed_roles": roles,
		},
	}
}
