// Package flow implements flow-sensitive rebinding: a name reassigned with a
// value of a different concrete type along one control-flow path is split
// into a new version, so every version has exactly one static type.
package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// Split is one live version created by reassignment.
type Split struct {
	Name     string
	Base     symbols.BindingID
	Binding  symbols.BindingID
	Version  int
	Location ast.Location
}

// Join is one live version created where control-flow paths merge.
type Join struct {
	Name     string
	Base     symbols.BindingID
	Binding  symbols.BindingID
	Version  int
	Sources  []symbols.BindingID
	Location ast.Location
}

// Report describes the versions live after a run.
type Report struct {
	Splits []Split
	Joins  []Join
	// Changed is set when any resolution, version or join differs from
	// the environment's state before the run.
	Changed bool
}

// Rebinder rewrites identifier resolutions in the environment.
type Rebinder struct {
	env *symbols.Environment
}

func New(env *symbols.Environment) *Rebinder {
	return &Rebinder{env: env}
}

// Run walks every unit in program order, module level first. typeMap and
// sol come from the pass just solved. Version numbers follow textual
// order, so running twice on the same input yields the same numbering.
func (r *Rebinder) Run(decls *analyzer.Declarations, typeMap map[ast.Node]typesystem.Type, sol *analyzer.TypeSolution) *Report {
	before := r.snapshot()
	w := &walker{
		env:     r.env,
		types:   typeMap,
		sol:     sol,
		claimed: make(map[symbols.BindingID]typesystem.Type),
		finals:  make(map[symbols.BindingID]*version),
		live:    make(map[symbols.BindingID]bool),
		order:   make(map[symbols.BindingID][]symbols.BindingID),
	}
	for _, u := range decls.Units {
		w.unit = u.Name
		st := state{}
		if u.Signature != nil {
			w.seedParams(u.Signature, st)
		}
		w.statements(u.Body, st)
		for base, v := range st {
			w.finals[base] = v
		}
	}

	r.env.RetireVersions(w.live)
	bases := make([]symbols.BindingID, 0, len(w.order))
	for base := range w.order {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	rep := &Report{}
	for _, base := range bases {
		ids := w.order[base]
		r.env.NumberVersions(base, ids)
		for _, id := range ids {
			b := r.env.Binding(id)
			if srcs, ok := r.env.JoinSources(id); ok {
				rep.Joins = append(rep.Joins, Join{
					Name: b.Name, Base: base, Binding: id, Version: b.Version,
					Sources: srcs, Location: b.Location,
				})
				continue
			}
			rep.Splits = append(rep.Splits, Split{
				Name: b.Name, Base: base, Binding: id, Version: b.Version, Location: b.Location,
			})
		}
	}
	rep.Changed = w.changed || !equalSnapshots(before, r.snapshot())
	return rep
}

// snapshot captures every version's liveness, number and join sources.
func (r *Rebinder) snapshot() map[symbols.BindingID]string {
	out := make(map[symbols.BindingID]string)
	for _, b := range r.env.Bindings() {
		if b.Base == b.ID {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%t/%d", b.Retired, b.Version)
		if srcs, ok := r.env.JoinSources(b.ID); ok {
			for _, s := range srcs {
				fmt.Fprintf(&sb, ",%d", s)
			}
		}
		out[b.ID] = sb.String()
	}
	return out
}

func equalSnapshots(a, b map[symbols.BindingID]string) bool {
	if len(a) != len(b) {
		return false
	}
	for id, s := range a {
		if b[id] != s {
			return false
		}
	}
	return true
}

// version is the binding a name refers to on the current path. A pending
// join is only allocated in the environment once something reads it.
type version struct {
	id     symbols.BindingID
	typ    typesystem.Type // nil when not concrete
	merged bool
	join   *pendingJoin
}

type pendingJoin struct {
	base    symbols.BindingID
	node    ast.Node
	sources []*version
}

type state map[symbols.BindingID]*version

func (s state) clone() state {
	out := make(state, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type walker struct {
	env   *symbols.Environment
	types map[ast.Node]typesystem.Type
	sol   *analyzer.TypeSolution
	unit  string

	claimed map[symbols.BindingID]typesystem.Type
	finals  map[symbols.BindingID]*version
	live    map[symbols.BindingID]bool
	order   map[symbols.BindingID][]symbols.BindingID
	changed bool
}

func (w *walker) seedParams(sig *symbols.Signature, st state) {
	for _, id := range sig.Params {
		b := w.env.Binding(id)
		if !w.eligible(b) {
			continue
		}
		t := w.concrete(w.sol.Resolve(b.Var()))
		st[id] = &version{id: id, typ: t}
		w.claimed[id] = t
	}
}

func (w *walker) statements(stmts []ast.Statement, st state) {
	for _, stmt := range stmts {
		w.statement(stmt, st)
	}
}

func (w *walker) statement(stmt ast.Statement, st state) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		// walked as its own unit
	case *ast.ClassDef:
		w.statements(s.Body, st)
	case *ast.AssignStatement:
		if s.Value == nil {
			return
		}
		w.reads(s.Value, st)
		switch target := s.Target.(type) {
		case *ast.Identifier:
			w.assign(target, s, w.typeOf(s.Value), st)
		case *ast.AttributeExpression:
			w.reads(target.Object, st)
		case *ast.IndexExpression:
			w.reads(target.Left, st)
			w.reads(target.Index, st)
		}
	case *ast.ReturnStatement:
		w.reads(s.Value, st)
	case *ast.ExpressionStatement:
		w.reads(s.Expression, st)
	case *ast.IfStatement:
		w.reads(s.Condition, st)
		then, els := st.clone(), st.clone()
		w.statements(s.Then, then)
		w.statements(s.Else, els)
		w.merge(st, s, then, els)
	case *ast.WhileStatement:
		w.reads(s.Condition, st)
		body := st.clone()
		w.statements(s.Body, body)
		w.merge(st, s, st.clone(), body)
	case *ast.ForStatement:
		w.reads(s.Iterable, st)
		body := st.clone()
		if s.Target != nil {
			w.assign(s.Target, s.Target, w.typeOf(s), body)
		}
		w.statements(s.Body, body)
		w.merge(st, s, st.clone(), body)
	case *ast.BlockStatement:
		w.statements(s.Body, st)
	}
}

// merge replaces dst with the join of the incoming path states. Names with
// more than one incoming version get a pending join at node.
func (w *walker) merge(dst state, node ast.Node, paths ...state) {
	var bases []symbols.BindingID
	seenBase := make(map[symbols.BindingID]bool)
	for _, p := range paths {
		for base := range p {
			if !seenBase[base] {
				seenBase[base] = true
				bases = append(bases, base)
			}
		}
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	for _, base := range bases {
		var srcs []*version
		seen := make(map[any]bool)
		for _, p := range paths {
			v, ok := p[base]
			if !ok {
				continue
			}
			var key any = v.id
			if v.join != nil {
				key = v
			}
			if !seen[key] {
				seen[key] = true
				srcs = append(srcs, v)
			}
		}
		if len(srcs) == 1 {
			dst[base] = srcs[0]
			continue
		}
		dst[base] = &version{
			typ:    commonType(srcs),
			merged: true,
			join:   &pendingJoin{base: base, node: node, sources: srcs},
		}
	}
}

func commonType(vs []*version) typesystem.Type {
	t := vs[0].typ
	for _, v := range vs[1:] {
		if t == nil || v.typ == nil || !typesystem.Equal(t, v.typ) {
			return nil
		}
	}
	return t
}

// materialize allocates the join binding behind v, and those of its
// sources, on first read.
func (w *walker) materialize(v *version) symbols.BindingID {
	if v.join == nil {
		return v.id
	}
	j := v.join
	v.join = nil
	var ids []symbols.BindingID
	seen := make(map[symbols.BindingID]bool)
	for _, src := range j.sources {
		id := w.materialize(src)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 1 {
		v.id = ids[0]
		return v.id
	}
	b := w.env.JoinVersion(j.base, j.node, ids)
	v.id = b.ID
	w.use(j.base, b.ID)
	return v.id
}

func (w *walker) reads(e ast.Expression, st state) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok {
			w.read(id, st)
		}
		return true
	})
}

func (w *walker) read(ident *ast.Identifier, st state) {
	root, ok := w.root(ident)
	if !ok {
		return
	}
	id := root.ID
	if v, ok := st[root.ID]; ok {
		id = w.materialize(v)
	} else if root.Unit() != w.unit {
		if v, ok := w.finals[root.ID]; ok {
			id = w.materialize(v)
		}
	}
	w.use(root.ID, id)
	w.resolve(ident, id)
}

// assign binds target on this path. A new version is created when the
// current one has a different concrete type, follows a merge, or is a
// parameter's entry version.
func (w *walker) assign(target *ast.Identifier, key ast.Node, rhs typesystem.Type, st state) {
	root, ok := w.root(target)
	if !ok {
		return
	}
	base := root.ID
	var v *version
	cur, defined := st[base]
	switch {
	case !defined:
		first, claimed := w.claimed[base]
		switch {
		case !claimed:
			v = &version{id: base, typ: rhs}
		case differs(first, rhs):
			v = w.split(base, key, rhs)
		default:
			v = &version{id: base, typ: orElse(first, rhs)}
		}
	case cur.merged:
		v = w.split(base, key, rhs)
	case cur.id == base && root.Kind == symbols.ParameterBinding:
		// the entry version of a parameter is typed by its callers only
		v = w.split(base, key, rhs)
	case differs(cur.typ, rhs):
		v = w.split(base, key, rhs)
	default:
		v = &version{id: cur.id, typ: orElse(cur.typ, rhs)}
	}
	if v.id == base && w.claimed[base] == nil {
		w.claimed[base] = v.typ
	}
	st[base] = v
	w.use(base, v.id)
	w.resolve(target, v.id)
}

func (w *walker) split(base symbols.BindingID, key ast.Node, t typesystem.Type) *version {
	b := w.env.NewVersion(base, key)
	return &version{id: b.ID, typ: t}
}

// root returns the base binding an identifier was declared against, if it
// is a name that may be versioned.
func (w *walker) root(ident *ast.Identifier) (*symbols.Binding, bool) {
	b, ok := w.env.Resolution(ident)
	if !ok {
		return nil, false
	}
	root := w.env.Binding(b.Base)
	return root, w.eligible(root)
}

// eligible reports whether b may be split. Declared bindings keep their
// single annotated type; functions, classes and fields are never split.
func (w *walker) eligible(b *symbols.Binding) bool {
	if b == nil || b.IsDeclared() {
		return false
	}
	return b.Kind == symbols.VariableBinding || b.Kind == symbols.ParameterBinding
}

func (w *walker) use(base, id symbols.BindingID) {
	if id == base || w.live[id] {
		return
	}
	w.live[id] = true
	w.order[base] = append(w.order[base], id)
}

func (w *walker) resolve(ident *ast.Identifier, id symbols.BindingID) {
	if cur, ok := w.env.Resolution(ident); !ok || cur.ID != id {
		w.changed = true
	}
	w.env.SetResolution(ident, id)
}

func (w *walker) typeOf(n ast.Node) typesystem.Type {
	t, ok := w.types[n]
	if !ok {
		return nil
	}
	return w.concrete(w.sol.Resolve(t))
}

func (w *walker) concrete(t typesystem.Type) typesystem.Type {
	if typesystem.IsConcrete(t) {
		return t
	}
	return nil
}

func differs(a, b typesystem.Type) bool {
	return a != nil && b != nil && !typesystem.Equal(a, b)
}

func orElse(a, b typesystem.Type) typesystem.Type {
	if a != nil {
		return a
	}
	return b
}
