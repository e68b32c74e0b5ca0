package indexer

import "cgraph/internal/ast"

// CyclomaticComplexity computes McCabe complexity for a function body:
// 1 plus one for every decision point (if, loops, case/default arms,
// ternaries) plus one for every short-circuit operator. The walk uses an
// explicit stack so deeply nested bodies cannot exhaust the goroutine
// stack.
func CyclomaticComplexity(fn *ast.Node) int {
	complexity := 1
	stack := []*ast.Node{fn}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kind := node.Kind()
		if kind.IsDecisionPoint() {
			complexity++
		}
		if kind == ast.KindBinaryOperator {
			for _, tok := range node.OperatorTokens() {
				if tok == "&&" || tok == "||" {
					complexity++
				}
			}
		}
		stack = append(stack, node.Children()...)
	}
	return complexity
}
