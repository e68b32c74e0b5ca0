package ast

import sitter "github.com/smacker/go-tree-sitter"

// NodeKind is the normalized syntactic kind the indexer consumes. The raw
// tree-sitter node types of the C and C++ grammars are collapsed into this
// set; anything the indexer has no use for maps to KindOther.
type NodeKind int

const (
	KindOther NodeKind = iota

	// Declarations
	KindFunctionDecl
	KindVarDecl
	KindStructDecl
	KindTypedefDecl
	KindFieldDecl
	KindEnumDecl
	KindUnionDecl
	KindMacroDefinition
	KindParamDecl

	// Expressions
	KindCallExpr
	KindDeclRef
	KindMemberRef
	KindBinaryOperator
	KindAssignmentOperator

	// Statements contributing to cyclomatic complexity
	KindIfStmt
	KindWhileStmt
	KindForStmt
	KindDoStmt
	KindCaseStmt
	KindConditionalOperator
)

// String returns a readable kind name, mostly for logs and tests
func (k NodeKind) String() string {
	switch k {
	case KindFunctionDecl:
		return "FunctionDecl"
	case KindVarDecl:
		return "VarDecl"
	case KindStructDecl:
		return "StructDecl"
	case KindTypedefDecl:
		return "TypedefDecl"
	case KindFieldDecl:
		return "FieldDecl"
	case KindEnumDecl:
		return "EnumDecl"
	case KindUnionDecl:
		return "UnionDecl"
	case KindMacroDefinition:
		return "MacroDefinition"
	case KindParamDecl:
		return "ParamDecl"
	case KindCallExpr:
		return "CallExpr"
	case KindDeclRef:
		return "DeclRef"
	case KindMemberRef:
		return "MemberRef"
	case KindBinaryOperator:
		return "BinaryOperator"
	case KindAssignmentOperator:
		return "AssignmentOperator"
	case KindIfStmt:
		return "IfStmt"
	case KindWhileStmt:
		return "WhileStmt"
	case KindForStmt:
		return "ForStmt"
	case KindDoStmt:
		return "DoStmt"
	case KindCaseStmt:
		return "CaseStmt"
	case KindConditionalOperator:
		return "ConditionalOperator"
	default:
		return "Other"
	}
}

// IsDecisionPoint reports whether the kind counts toward cyclomatic
// complexity (if/while/for/do/case/ternary; && and || are counted
// separately from binary-operator tokens).
func (k NodeKind) IsDecisionPoint() bool {
	switch k {
	case KindIfStmt, KindWhileStmt, KindForStmt, KindDoStmt, KindCaseStmt, KindConditionalOperator:
		return true
	default:
		return false
	}
}

// classify maps a raw tree-sitter node to the normalized kind. The mapping
// is shared between the C and C++ grammars, which use the same type names
// for everything the indexer cares about (the C++ class_specifier is folded
// into struct).
func classify(n *sitter.Node) NodeKind {
	switch n.Type() {
	case "function_definition":
		return KindFunctionDecl
	case "declaration":
		// A declaration either introduces a function prototype or one or
		// more variables; which one depends on the declarator shape.
		if hasDescendantDeclarator(n, "function_declarator") {
			return KindFunctionDecl
		}
		return KindVarDecl
	case "struct_specifier", "class_specifier":
		// Only a specifier with a body declares the type; a bare
		// `struct Point p;` is a type use, not a declaration.
		if n.ChildByFieldName("body") != nil {
			return KindStructDecl
		}
		return KindOther
	case "union_specifier":
		if n.ChildByFieldName("body") != nil {
			return KindUnionDecl
		}
		return KindOther
	case "enum_specifier":
		if n.ChildByFieldName("body") != nil {
			return KindEnumDecl
		}
		return KindOther
	case "type_definition":
		return KindTypedefDecl
	case "field_declaration":
		return KindFieldDecl
	case "preproc_def", "preproc_function_def":
		return KindMacroDefinition
	case "parameter_declaration":
		return KindParamDecl
	case "call_expression":
		return KindCallExpr
	case "identifier":
		return KindDeclRef
	case "field_expression":
		return KindMemberRef
	case "binary_expression":
		return KindBinaryOperator
	case "assignment_expression":
		return KindAssignmentOperator
	case "if_statement":
		return KindIfStmt
	case "while_statement":
		return KindWhileStmt
	case "for_statement":
		return KindForStmt
	case "do_statement":
		return KindDoStmt
	case "case_statement":
		// Covers both `case x:` and `default:` labels
		return KindCaseStmt
	case "conditional_expression":
		return KindConditionalOperator
	default:
		return KindOther
	}
}

// hasDescendantDeclarator walks declarator chains (pointer/array wrappers)
// looking for the given declarator type. Bounded to the declarator spine so
// an initializer containing a lambda or compound literal cannot confuse it.
func hasDescendantDeclarator(n *sitter.Node, declType string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case declType:
			return true
		case "pointer_declarator", "array_declarator", "parenthesized_declarator", "init_declarator":
			if hasDescendantDeclarator(child, declType) {
				return true
			}
		}
	}
	return false
}
