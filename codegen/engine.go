// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package codegen lowers bound models to trees of Go closures. An Engine
// holds the compiled cells of every section; each Instance evaluates them
// over one set of inputs and memoizes cells that are read more than once.
package codegen

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

// Options configures Compile.
type Options struct {
	// Resettable enables Instance.Reset.
	Resettable bool
	Logger     *slog.Logger
}

// Engine is a compiled model. It is immutable and safe for concurrent use;
// the instances it creates are not.
type Engine struct {
	// ID identifies the compilation.
	ID uuid.UUID

	ctx        *numeric.Context
	lib        *numeric.Library
	root       *sectionCode
	resettable bool
	logger     *slog.Logger
}

// sectionCode is the compiled form of a section.
type sectionCode struct {
	section *model.Section
	parent  *sectionCode
	depth   int
	// index is the position among the parent's sub-sections.
	index int
	// slots is the number of memo slots of an instance.
	slots   int
	outputs map[string]*outputCode
	names   []string
	subs    map[string]*sectionCode
	order   []*sectionCode
}

func (s *sectionCode) alloc() int {
	s.slots++
	return s.slots - 1
}

type outputCode struct {
	name string
	kind model.ValueKind
	cell *cellCode
}

// cellCode is a compiled cell. Cells without memo slot have slot -1 and
// are evaluated at every reference.
type cellCode struct {
	cell *model.CellModel
	slot int
	unit *unit
}

// Compile lowers m. Expressions must be bound; errors report trees that
// violate the node arity contract.
func Compile(m *model.Model, ctx *numeric.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	for _, c := range m.Cells {
		if err := c.Expr.Validate(); err != nil {
			return nil, err
		}
	}
	c := &compiler{
		lib:      numeric.NewLibrary(ctx),
		cells:    make(map[*model.CellModel]*cellCode, len(m.Cells)),
		sections: map[*model.Section]*sectionCode{},
		refs:     references(m.Cells),
	}
	root := c.section(m.Root, nil, 0)
	for _, cell := range m.Cells {
		c.cell(c.cells[cell])
	}
	e := &Engine{
		ID:         uuid.New(),
		ctx:        ctx,
		lib:        c.lib,
		root:       root,
		resettable: opts.Resettable,
		logger:     opts.Logger,
	}
	model.Walk(m.Root, func(s *model.Section) {
		sc := c.sections[s]
		opts.Logger.Debug("compiled section", "engine", e.ID, "section", s.Path(),
			"cells", len(s.Cells), "slots", sc.slots, "outputs", len(sc.names))
	})
	return e, nil
}

// references counts the cell and sub-section references to every cell.
func references(cells []*model.CellModel) map[*model.CellModel]int {
	refs := map[*model.CellModel]int{}
	for _, c := range cells {
		expr.Walk(c.Expr, func(n *expr.Node) bool {
			if n.Kind == expr.KindCell || n.Kind == expr.KindSubSection {
				refs[n.Target.(*model.CellModel)]++
			}
			return true
		})
	}
	return refs
}

func (c *compiler) section(s *model.Section, parent *sectionCode, index int) *sectionCode {
	sc := &sectionCode{
		section: s, parent: parent, depth: s.Depth(), index: index,
		outputs: map[string]*outputCode{}, subs: map[string]*sectionCode{},
	}
	c.sections[s] = sc
	for _, cell := range s.Cells {
		cc := &cellCode{cell: cell, slot: -1}
		if cell.IsInput() || c.refs[cell] > 1 {
			cc.slot = sc.alloc()
		}
		c.cells[cell] = cc
	}
	for _, o := range s.Outputs {
		cc := c.cells[o.Cell]
		if cc.slot < 0 {
			cc.slot = sc.alloc()
		}
		sc.outputs[o.Name] = &outputCode{name: o.Name, kind: o.Kind, cell: cc}
		sc.names = append(sc.names, o.Name)
	}
	for i, sub := range s.Sections {
		code := c.section(sub, sc, i)
		sc.subs[sub.Name] = code
		sc.order = append(sc.order, code)
	}
	return sc
}

// NewInstance returns an instance evaluating the engine over inputs. A nil
// inputs reads every input as blank.
func (e *Engine) NewInstance(inputs Inputs) *Instance {
	return newInstance(e, e.root, nil, inputs)
}

// Outputs returns the names of the outputs of the workbook section in
// binding order.
func (e *Engine) Outputs() []string { return append([]string(nil), e.root.names...) }

// Type returns the numeric representation of the engine.
func (e *Engine) Type() numeric.Type { return e.ctx.Type() }
