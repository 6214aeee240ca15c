package model

import (
	"fmt"
	"strings"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
)

// formulaNode represents a formula cell in the dependency graph
type formulaNode struct {
	cell         *CellModel
	dependencies []*CellModel // formula cells this formula references
	level        int          // 0 = no formula dependencies, -1 = unassigned
}

// dependencyGraph is the graph of references between formula cells
type dependencyGraph struct {
	order  []*formulaNode
	nodes  map[*CellModel]*formulaNode
	levels [][]*CellModel
}

// buildDependencyGraph collects the formula cells among cells and the
// formula cells each references. Inputs and constants are leaves and not
// part of the graph.
func buildDependencyGraph(cells []*CellModel) *dependencyGraph {
	g := &dependencyGraph{nodes: make(map[*CellModel]*formulaNode)}
	for _, c := range cells {
		if c.IsInput() || c.Formula == "" {
			continue
		}
		node := &formulaNode{cell: c, level: -1}
		g.order = append(g.order, node)
		g.nodes[c] = node
	}
	for _, node := range g.order {
		node.dependencies = references(node.cell.Expr)
	}
	for _, node := range g.order {
		deps := node.dependencies[:0]
		for _, dep := range node.dependencies {
			if _, ok := g.nodes[dep]; ok {
				deps = append(deps, dep)
			}
		}
		node.dependencies = deps
	}
	return g
}

// references returns the distinct cells referenced by n in first-use order.
func references(n *expr.Node) []*CellModel {
	var out []*CellModel
	seen := map[*CellModel]bool{}
	expr.Walk(n, func(c *expr.Node) bool {
		if c.Kind != expr.KindCell && c.Kind != expr.KindSubSection {
			return true
		}
		if cm, ok := c.Target.(*CellModel); ok && !seen[cm] {
			seen[cm] = true
			out = append(out, cm)
		}
		return true
	})
	return out
}

// assignLevels places every formula one level above its highest dependency.
// Formulas left unassigned are part of a cycle and reported as a binding
// error wrapping errs.ErrCircularReference.
func (g *dependencyGraph) assignLevels() error {
	for iteration := 0; iteration <= len(g.order); iteration++ {
		anyAssigned := false
		for _, node := range g.order {
			if node.level != -1 {
				continue
			}
			maxDepLevel := -1
			allDepsAssigned := true
			for _, dep := range node.dependencies {
				level := g.nodes[dep].level
				if level < 0 {
					allDepsAssigned = false
					break
				}
				maxDepLevel = max(maxDepLevel, level)
			}
			if !allDepsAssigned {
				continue
			}
			node.level = maxDepLevel + 1
			for len(g.levels) <= node.level {
				g.levels = append(g.levels, nil)
			}
			g.levels[node.level] = append(g.levels[node.level], node.cell)
			anyAssigned = true
		}
		if !anyAssigned {
			break
		}
	}

	var circularCells []string
	for _, node := range g.order {
		if node.level == -1 {
			circularCells = append(circularCells, node.cell.Address())
		}
	}
	if len(circularCells) > 0 {
		return &errs.BindingError{
			Message: fmt.Sprintf("Circular reference between cells %s.", strings.Join(circularCells, ", ")),
			Err:     errs.ErrCircularReference,
		}
	}
	return nil
}
