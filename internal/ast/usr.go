package ast

import (
	"fmt"
	"path/filepath"
)

// USR construction. Tree-sitter provides no cross-translation-unit symbol
// ids, so cgraph synthesizes them in the shape clang uses: entities with
// external linkage get a file-independent id, statics and locals get a
// file- (and line-) qualified one. What matters for the identity invariant
// is that the same declared entity yields the same string no matter which
// translation unit observes it.

func usrForDecl(kind NodeKind, name, filePath string, line int, isStatic bool, structName string) string {
	base := filepath.Base(filePath)

	if name == "" {
		// Anonymous aggregates get a location-qualified id so two anonymous
		// structs in different places never collide.
		return fmt.Sprintf("c:%s@%d@anon", base, line)
	}

	switch kind {
	case KindFunctionDecl:
		if isStatic {
			return "c:" + base + "@F@" + name
		}
		return "c:@F@" + name
	case KindStructDecl:
		return "c:@S@" + name
	case KindUnionDecl:
		return "c:@U@" + name
	case KindEnumDecl:
		return "c:@E@" + name
	case KindTypedefDecl:
		return "c:@T@" + name
	case KindMacroDefinition:
		return "c:@macro@" + name
	case KindFieldDecl:
		if structName != "" {
			return "c:@S@" + structName + "@FI@" + name
		}
		return fmt.Sprintf("c:%s@%d@FI@%s", base, line, name)
	case KindParamDecl:
		return fmt.Sprintf("c:%s@%d@%s", base, line, name)
	case KindVarDecl:
		if isStatic {
			return "c:" + base + "@" + name
		}
		return "c:@" + name
	default:
		return fmt.Sprintf("c:%s@%d@%s", base, line, name)
	}
}

// usrForLocal qualifies block-scope variables by file and line: locals have
// no linkage, so their identity never leaves the translation unit.
func usrForLocal(name, filePath string, line int) string {
	return fmt.Sprintf("c:%s@%d@%s", filepath.Base(filePath), line, name)
}
