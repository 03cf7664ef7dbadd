package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// traversalKey renders a traversal the way it is written, e.g. plugin.name.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// checkReferences reports every variable and function in body that evalCtx
// does not provide, so a typo in a library path fails with one clear
// message per reference instead of a decode error per attribute.
func checkReferences(body hcl.Body, evalCtx *hcl.EvalContext) hcl.Diagnostics {
	syntaxBody, ok := body.(*hclsyntax.Body)
	if !ok {
		return nil
	}

	var diags hcl.Diagnostics
	hclsyntax.VisitAll(syntaxBody, func(node hclsyntax.Node) hcl.Diagnostics {
		switch n := node.(type) {
		case *hclsyntax.ScopeTraversalExpr:
			if _, ok := evalCtx.Variables[n.Traversal.RootName()]; !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown variable",
					Detail:   fmt.Sprintf("'%s' is not available; expressions may use %s.", traversalKey(n.Traversal), available(evalCtx.Variables)),
					Subject:  n.SrcRange.Ptr(),
				})
			}
		case *hclsyntax.FunctionCallExpr:
			if _, ok := evalCtx.Functions[n.Name]; !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown function",
					Detail:   fmt.Sprintf("'%s' is not available; expressions may call %s.", n.Name, available(evalCtx.Functions)),
					Subject:  n.NameRange.Ptr(),
				})
			}
		}
		return nil
	})
	return diags
}

func available[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
