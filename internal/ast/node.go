package ast

import sitter "github.com/smacker/go-tree-sitter"

// Node is one syntax node of a translation unit.
type Node struct {
	tu *TranslationUnit
	n  *sitter.Node
}

// Kind returns the normalized syntactic kind.
func (nd *Node) Kind() NodeKind {
	return classify(nd.n)
}

// RawType exposes the underlying grammar node type, for diagnostics only.
func (nd *Node) RawType() string {
	return nd.n.Type()
}

// File returns the absolute path of the file the node was parsed from.
// Tree-sitter does not preprocess, so every node of a translation unit
// originates in the parsed file itself.
func (nd *Node) File() string {
	return nd.tu.path
}

// Line returns the 1-based start line.
func (nd *Node) Line() int {
	return int(nd.n.StartPoint().Row) + 1
}

// Column returns the 1-based start column.
func (nd *Node) Column() int {
	return int(nd.n.StartPoint().Column) + 1
}

// EndLine returns the 1-based end line of the node's extent.
func (nd *Node) EndLine() int {
	return int(nd.n.EndPoint().Row) + 1
}

// StartByte returns the byte offset of the node's start, used for scope
// containment checks during name resolution.
func (nd *Node) StartByte() uint32 {
	return nd.n.StartByte()
}

// ExtentText returns the verbatim source text spanned by the node.
func (nd *Node) ExtentText() string {
	return nd.n.Content(nd.tu.source)
}

// Children returns the named child nodes in source order.
func (nd *Node) Children() []*Node {
	count := int(nd.n.NamedChildCount())
	children := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		child := nd.n.NamedChild(i)
		if child == nil {
			continue
		}
		children = append(children, &Node{tu: nd.tu, n: child})
	}
	return children
}

// OperatorTokens returns the spellings of the node's own operator and
// punctuation tokens (unnamed children). Tokens belonging to child
// expressions are not included, so scanning these for an assignment
// operator cannot be fooled by a nested assignment.
func (nd *Node) OperatorTokens() []string {
	count := int(nd.n.ChildCount())
	var tokens []string
	for i := 0; i < count; i++ {
		child := nd.n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		tokens = append(tokens, child.Content(nd.tu.source))
	}
	return tokens
}

// Spelling returns the declared or referenced name for the node: the
// declarator name for declarations, the identifier text for references,
// the callee name for calls, the field name for member accesses. Nodes
// without a meaningful name yield "".
func (nd *Node) Spelling() string {
	switch nd.Kind() {
	case KindFunctionDecl, KindVarDecl, KindParamDecl, KindFieldDecl:
		return declaratorName(nd.n, nd.tu.source)
	case KindStructDecl, KindUnionDecl, KindEnumDecl:
		if name := nd.n.ChildByFieldName("name"); name != nil {
			return name.Content(nd.tu.source)
		}
		return ""
	case KindTypedefDecl:
		if decl := nd.n.ChildByFieldName("declarator"); decl != nil {
			return decl.Content(nd.tu.source)
		}
		return ""
	case KindMacroDefinition:
		if name := nd.n.ChildByFieldName("name"); name != nil {
			return name.Content(nd.tu.source)
		}
		return ""
	case KindDeclRef:
		return nd.n.Content(nd.tu.source)
	case KindMemberRef:
		if field := nd.n.ChildByFieldName("field"); field != nil {
			return field.Content(nd.tu.source)
		}
		return ""
	case KindCallExpr:
		if fn := nd.n.ChildByFieldName("function"); fn != nil {
			if fn.Type() == "field_expression" {
				if field := fn.ChildByFieldName("field"); field != nil {
					return field.Content(nd.tu.source)
				}
			}
			return fn.Content(nd.tu.source)
		}
		return ""
	default:
		return ""
	}
}

// DisplayName is the fallback used when no signature text is available.
func (nd *Node) DisplayName() string {
	if s := nd.Spelling(); s != "" {
		return s
	}
	return nd.n.Type()
}

// IsDeclarationName reports whether this identifier spells the name being
// declared rather than a use of an existing entity. The check climbs the
// declarator chain: an identifier that is the declarator (possibly through
// pointer/array/function declarator wrappers) of a declaration is its name.
func (nd *Node) IsDeclarationName() bool {
	n := nd.n
	for {
		p := n.Parent()
		if p == nil {
			return false
		}
		d := p.ChildByFieldName("declarator")
		if d == nil || d.StartByte() != n.StartByte() || d.EndByte() != n.EndByte() {
			return false
		}
		switch p.Type() {
		case "declaration", "function_definition", "parameter_declaration",
			"field_declaration", "type_definition":
			return true
		}
		n = p
	}
}

// IsStatic reports whether the declaration carries the static storage class.
func (nd *Node) IsStatic() bool {
	return nd.hasStorageClass("static")
}

// IsExtern reports whether the declaration carries the extern storage class.
func (nd *Node) IsExtern() bool {
	return nd.hasStorageClass("extern")
}

func (nd *Node) hasStorageClass(want string) bool {
	count := int(nd.n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := nd.n.NamedChild(i)
		if child != nil && child.Type() == "storage_class_specifier" &&
			child.Content(nd.tu.source) == want {
			return true
		}
	}
	return false
}

// IsDefinition reports whether the node defines the entity rather than just
// declaring it: a function with a body, a variable that is not a bare
// extern declaration, a type with a body.
func (nd *Node) IsDefinition() bool {
	switch nd.Kind() {
	case KindFunctionDecl:
		return nd.n.Type() == "function_definition"
	case KindVarDecl:
		return !nd.IsExtern()
	case KindStructDecl, KindUnionDecl, KindEnumDecl,
		KindTypedefDecl, KindMacroDefinition, KindFieldDecl, KindParamDecl:
		return true
	default:
		return false
	}
}

// declaratorName digs through declarator wrappers (pointers, arrays, init
// declarators, function declarators) to the underlying identifier.
func declaratorName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "identifier", "field_identifier", "type_identifier":
		return n.Content(source)
	}

	if decl := n.ChildByFieldName("declarator"); decl != nil {
		return declaratorName(decl, source)
	}

	// parenthesized_declarator and friends have no declarator field
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return child.Content(source)
		case "pointer_declarator", "array_declarator", "function_declarator",
			"parenthesized_declarator", "init_declarator":
			if name := declaratorName(child, source); name != "" {
				return name
			}
		}
	}
	return ""
}
