package codegen

import "github.com/xuri/formula/expr"

// freeVars returns the let and fold names referenced by n that are bound
// neither inside n nor by params, in order of first reference.
func freeVars(n *expr.Node, params ...string) []string {
	s := &freeScan{bound: map[string]int{}, seen: map[string]bool{}}
	for _, p := range params {
		s.bind(p)
	}
	s.node(n)
	return s.out
}

type freeScan struct {
	bound map[string]int
	seen  map[string]bool
	out   []string
}

func (s *freeScan) bind(names ...string) {
	for _, name := range names {
		if name != "" {
			s.bound[name]++
		}
	}
}

func (s *freeScan) unbind(names ...string) {
	for _, name := range names {
		if name != "" {
			s.bound[name]--
		}
	}
}

func (s *freeScan) node(n *expr.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case expr.KindLetVar:
		if s.bound[n.Name] == 0 && !s.seen[n.Name] {
			s.seen[n.Name] = true
			s.out = append(s.out, n.Name)
		}
	case expr.KindLet:
		s.node(n.Args[0])
		s.bind(n.Name)
		s.node(n.Args[1])
		s.unbind(n.Name)
	case expr.KindFold:
		f := n.Fold
		for _, a := range n.Args {
			s.node(a)
		}
		s.node(f.Init)
		s.node(f.WhenEmpty)
		s.bind(f.Acc, f.Elt, f.Idx)
		s.node(f.Step)
		s.unbind(f.Acc, f.Elt, f.Idx)
		s.bind(f.Acc, f.Count)
		s.node(f.Into)
		s.unbind(f.Acc, f.Count)
	default:
		for _, a := range n.Args {
			s.node(a)
		}
	}
}
