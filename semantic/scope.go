package semantic

import "github.com/informatter/zinclang/types"

// Binding is one name bound in a Scope: a let/const/static binding, a
// function parameter, or a loop iterator.
type Binding struct {
	Name      string
	Type      types.Handle
	Mutable   bool
	Const     bool
	ConstInt  int64 // not set or read by the checker; loop-bound folding (foldConstantInt) works on literals only
	HasConstInt bool
}

// Scope is one node of the lexical scope tree: a block, function body, or
// impl body. Each Scope owns its own binding map and points to the
// enclosing Scope, so a lookup walks outward until it reaches the root
// (unlike the teacher's single flat, parent-less Environment).
type Scope struct {
	parent   *Scope
	bindings map[string]Binding
}

// NewRootScope returns the outermost Scope of a compilation unit.
func NewRootScope() *Scope {
	return &Scope{bindings: make(map[string]Binding)}
}

// Child opens a nested Scope whose lookups fall back to s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, bindings: make(map[string]Binding)}
}

// Declare adds a new Binding to this scope. Returns false if name is
// already bound in this exact scope (shadowing an outer scope's binding
// is allowed; redeclaring within the same scope is not).
func (s *Scope) Declare(b Binding) bool {
	if _, exists := s.bindings[b.Name]; exists {
		return false
	}
	s.bindings[b.Name] = b
	return true
}

// Lookup searches this scope and its ancestors for name.
func (s *Scope) Lookup(name string) (Binding, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if b, ok := scope.bindings[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}
