package ast

import sitter "github.com/smacker/go-tree-sitter"

// Decl is one declared entity known to a translation unit, either found in
// the parsed source or synthesized for an external callee.
type Decl struct {
	Name         string
	Kind         NodeKind
	USR          string
	File         string
	Line         int
	Column       int
	EndLine      int
	IsStatic     bool
	IsExtern     bool
	IsDefinition bool

	// Node is the declaring node; nil for synthesized external decls.
	Node *Node

	// scope is the byte range the declaration is visible in: the enclosing
	// function body for locals and parameters, the whole file otherwise.
	scopeStart uint32
	scopeEnd   uint32
}

// fileScope marks a declaration visible everywhere in the translation unit.
const fileScopeEnd = ^uint32(0)

func (d *Decl) isFileScope() bool {
	return d.scopeStart == 0 && d.scopeEnd == fileScopeEnd
}

func (d *Decl) contains(offset uint32) bool {
	return offset >= d.scopeStart && offset < d.scopeEnd
}

// buildDeclIndex walks the tree once and records every declaration with its
// visibility range, so references can later be resolved by name + position.
func (tu *TranslationUnit) buildDeclIndex() {
	tu.declByExtent = make(map[uint64]*Decl)
	tu.walkDecls(tu.root, 0, fileScopeEnd, "")
}

func (tu *TranslationUnit) walkDecls(n *sitter.Node, scopeStart, scopeEnd uint32, structName string) {
	node := &Node{tu: tu, n: n}
	kind := node.Kind()

	childScopeStart, childScopeEnd := scopeStart, scopeEnd
	childStruct := structName

	switch kind {
	case KindFunctionDecl, KindVarDecl, KindStructDecl, KindUnionDecl,
		KindEnumDecl, KindTypedefDecl, KindMacroDefinition, KindParamDecl, KindFieldDecl:
		decl := tu.recordDecl(node, kind, scopeStart, scopeEnd, structName)

		if kind == KindFunctionDecl && n.Type() == "function_definition" {
			// Parameters and locals are visible inside the body only
			childScopeStart, childScopeEnd = n.StartByte(), n.EndByte()
		}
		if decl != nil && (kind == KindStructDecl || kind == KindUnionDecl) {
			childStruct = decl.Name
		}
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		tu.walkDecls(child, childScopeStart, childScopeEnd, childStruct)
	}
}

func (tu *TranslationUnit) recordDecl(node *Node, kind NodeKind, scopeStart, scopeEnd uint32, structName string) *Decl {
	name := node.Spelling()
	line := node.Line()

	blockScoped := scopeEnd != fileScopeEnd &&
		(kind == KindVarDecl || kind == KindParamDecl)

	var usr string
	if blockScoped {
		usr = usrForLocal(name, tu.path, line)
	} else {
		usr = usrForDecl(kind, name, tu.path, line, node.IsStatic(), structName)
	}

	decl := &Decl{
		Name:         name,
		Kind:         kind,
		USR:          usr,
		File:         tu.path,
		Line:         line,
		Column:       node.Column(),
		EndLine:      node.EndLine(),
		IsStatic:     node.IsStatic(),
		IsExtern:     node.IsExtern(),
		IsDefinition: node.IsDefinition(),
		Node:         node,
		scopeStart:   scopeStart,
		scopeEnd:     scopeEnd,
	}
	if !blockScoped {
		decl.scopeStart, decl.scopeEnd = 0, fileScopeEnd
	}

	if name != "" {
		if kind == KindFieldDecl {
			tu.fieldDecls[name] = append(tu.fieldDecls[name], decl)
		} else {
			tu.decls[name] = append(tu.decls[name], decl)
		}
	}
	tu.declByExtent[extentKey(node.n)] = decl
	return decl
}

func extentKey(n *sitter.Node) uint64 {
	return uint64(n.StartByte())<<32 | uint64(n.EndByte())
}

// DeclFor returns the recorded declaration for a declaring node, or nil when
// the node declares nothing. This is how the indexer obtains a node's USR.
func (tu *TranslationUnit) DeclFor(node *Node) *Decl {
	return tu.declByExtent[extentKey(node.n)]
}

// Resolve finds the declaration a name or member reference points at.
// Block-scoped candidates whose range contains the reference win over
// file-scoped ones; an unknown name yields nil (the reference is simply
// not recorded, never an error).
func (tu *TranslationUnit) Resolve(ref *Node) *Decl {
	name := ref.Spelling()
	if name == "" {
		return nil
	}

	if ref.Kind() == KindMemberRef {
		if fields := tu.fieldDecls[name]; len(fields) > 0 {
			return fields[0]
		}
		return nil
	}

	offset := ref.StartByte()
	var fileScoped *Decl
	var best *Decl
	for _, d := range tu.decls[name] {
		if d.isFileScope() {
			if fileScoped == nil {
				fileScoped = d
			}
			continue
		}
		if !d.contains(offset) {
			continue
		}
		if best == nil || (d.scopeEnd-d.scopeStart) < (best.scopeEnd-best.scopeStart) {
			best = d
		}
	}
	if best != nil {
		return best
	}
	return fileScoped
}

// ResolveCall resolves a call expression to its callee. A callee not
// declared anywhere in the translation unit is synthesized as an external
// function declaration, so library calls still produce a stable target
// (this mirrors creating the symbol from the header declaration the
// preprocessor would have pulled in).
func (tu *TranslationUnit) ResolveCall(call *Node) *Decl {
	name := call.Spelling()
	if name == "" {
		return nil
	}

	for _, d := range tu.decls[name] {
		if d.Kind == KindFunctionDecl {
			return d
		}
	}
	// A function-like macro invocation parses as a call too
	for _, d := range tu.decls[name] {
		if d.Kind == KindMacroDefinition {
			return d
		}
	}

	if syn, ok := tu.synthesized[name]; ok {
		return syn
	}
	syn := &Decl{
		Name:         name,
		Kind:         KindFunctionDecl,
		USR:          "c:@F@" + name,
		File:         tu.path,
		Line:         call.Line(),
		Column:       call.Column(),
		EndLine:      call.Line(),
		IsExtern:     true,
		IsDefinition: false,
		scopeStart:   0,
		scopeEnd:     fileScopeEnd,
	}
	tu.synthesized[name] = syn
	return syn
}
