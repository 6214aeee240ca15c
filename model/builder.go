package model

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/tiendc/go-deepcopy"
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/numeric"
	"github.com/xuri/formula/parser"
)

const defaultParseCacheSize = 256

// Options configures a Builder.
type Options struct {
	// ParseCacheSize bounds the number of distinct formula texts whose
	// parse is kept. Zero selects the default, a negative size disables
	// the cache.
	ParseCacheSize int
	Logger         *slog.Logger
}

// Builder binds a spreadsheet to a Binding. A builder is used for one
// compilation at a time.
type Builder struct {
	sheet  Spreadsheet
	ctx    *numeric.Context
	lib    *numeric.Library
	logger *slog.Logger
	cache  *parseCache
	refs   parser.A1

	defaultSheet string
	model        *Model
	cells        map[cellAddr]*CellModel
	building     map[*CellModel]bool
}

type cellAddr struct {
	sheet    string
	col, row int
}

// NewBuilder returns a builder for sheet producing constants in the
// representation of ctx.
func NewBuilder(sheet Spreadsheet, ctx *numeric.Context, opts Options) *Builder {
	size := opts.ParseCacheSize
	if size == 0 {
		size = defaultParseCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		sheet:  sheet,
		ctx:    ctx,
		lib:    numeric.NewLibrary(ctx),
		logger: logger,
		cache:  newParseCache(size),
		refs: parser.A1{IsRange: func(name string) bool {
			a, ok := sheet.DefinedName(name)
			return ok && !a.IsCell()
		}},
	}
}

// Build binds sheet to binding with a new builder.
func Build(sheet Spreadsheet, binding *Binding, ctx *numeric.Context, opts Options) (*Model, error) {
	return NewBuilder(sheet, ctx, opts).Build(binding)
}

// Build returns the model of the cells reachable from the declared outputs.
// No model is returned if any error occurs.
func (b *Builder) Build(binding *Binding) (*Model, error) {
	if binding == nil {
		return nil, errs.NewBindingError("No binding given.")
	}
	var snapshot Binding
	if err := deepcopy.Copy(&snapshot, *binding); err != nil {
		return nil, fmt.Errorf("copy binding: %w", err)
	}
	sheets := b.sheet.Sheets()
	if len(sheets) == 0 {
		return nil, errs.NewBindingError("Workbook has no sheets.")
	}
	b.defaultSheet = sheets[0]
	b.model = &Model{Type: b.ctx.Type(), Root: &Section{}}
	b.cells = map[cellAddr]*CellModel{}
	b.building = map[*CellModel]bool{}

	if err := checkFactory(&snapshot); err != nil {
		return nil, err
	}
	root := b.model.Root
	if err := b.sections(root, snapshot.Sections); err != nil {
		return nil, err
	}
	if err := b.bindInputs(root, snapshot.Inputs, snapshot.Sections); err != nil {
		return nil, err
	}
	if err := b.bindOutputs(root, snapshot.Outputs, snapshot.Sections); err != nil {
		return nil, err
	}
	g := buildDependencyGraph(b.model.Cells)
	if err := g.assignLevels(); err != nil {
		return nil, err
	}
	b.model.Levels = g.levels
	for i, level := range g.levels {
		b.logger.Debug("dependency level", "level", i, "cells", len(level))
	}
	b.logger.Debug("model bound", "cells", len(b.model.Cells), "levels", len(g.levels), "parseCacheHits", b.cache.Hits())
	return b.model, nil
}

func checkFactory(binding *Binding) error {
	f := binding.Factory
	if f == nil {
		return nil
	}
	if len(f.Inputs) != len(binding.Inputs) {
		return errs.NewBindingError("Factory takes %d inputs but %d are bound.", len(f.Inputs), len(binding.Inputs))
	}
	for i, in := range binding.Inputs {
		if f.Inputs[i] != in.Kind {
			return errs.NewBindingError("Factory input %d is %s but input %s is bound as %s.", i+1, f.Inputs[i], in.Name, in.Kind)
		}
	}
	if len(f.Outputs) != len(binding.Outputs) {
		return errs.NewBindingError("Factory returns %d outputs but %d are bound.", len(f.Outputs), len(binding.Outputs))
	}
	for i, out := range binding.Outputs {
		if f.Outputs[i] != out.Kind {
			return errs.NewBindingError("Factory output %d is %s but output %s is bound as %s.", i+1, f.Outputs[i], out.Name, out.Kind)
		}
	}
	return nil
}

// locate parses a binding locator and checks that it lies in the workbook.
func (b *Builder) locate(what, name, locator string) (Area, error) {
	a, err := ParseArea(locator, b.defaultSheet)
	if err != nil {
		return Area{}, &errs.BindingError{Message: fmt.Sprintf("%s %s: invalid locator %q: %v.", what, name, locator, err), Err: err}
	}
	if !slices.Contains(b.sheet.Sheets(), a.Sheet) {
		return Area{}, errs.NewBindingError("%s %s: sheet %s does not exist.", what, name, a.Sheet)
	}
	return a, nil
}

// sections creates the section tree declared by bindings below parent.
func (b *Builder) sections(parent *Section, bindings []SectionBinding) error {
	for _, sb := range bindings {
		if parent.Section(sb.Name) != nil {
			return errs.NewBindingError("Section %s is declared twice.", sb.Name)
		}
		area, err := b.locate("Section", sb.Name, sb.Range)
		if err != nil {
			return err
		}
		height := sb.Height
		if height == 0 {
			height = 1
		}
		if height < 0 || height > area.Rows() {
			return errs.NewBindingError("Section %s: record height %d does not fit range %s.", sb.Name, height, area)
		}
		template := area
		template.ToRow = area.Row + height - 1
		if !parent.IsRoot() && !parent.Template.Covers(area) {
			return errs.NewBindingError("Section %s: range %s must lie in the first record %s of section %s.",
				sb.Name, area, parent.Template, parent.Name)
		}
		for _, sibling := range parent.Sections {
			if sibling.Area.Overlaps(area) {
				return errs.NewBindingError("Sections %s and %s overlap.", sibling.Name, sb.Name)
			}
		}
		s := &Section{Name: sb.Name, Parent: parent, Area: area, Template: template}
		parent.Sections = append(parent.Sections, s)
		if err = b.sections(s, sb.Sections); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) bindInputs(s *Section, inputs []InputBinding, sections []SectionBinding) error {
	seen := map[string]bool{}
	for _, in := range inputs {
		if seen[in.Name] {
			return errs.NewBindingError("Input %s is declared twice.", in.Name)
		}
		seen[in.Name] = true
		a, err := b.locate("Input", in.Name, in.Cell)
		if err != nil {
			return err
		}
		owner, err := b.owner(s, a.Sheet, a.Col, a.Row)
		if err != nil {
			return err
		}
		if owner != s {
			return errs.NewBindingError("Input %s: cell %s lies outside section %s.", in.Name, a, s.Name)
		}
		c := b.cellModel(s, a.Sheet, a.Col, a.Row)
		if c.IsInput() {
			return errs.NewBindingError("Cell %s is bound to inputs %s and %s.", c.Address(), c.Input, in.Name)
		}
		c.Input, c.InputKind = in.Name, in.Kind
		s.Inputs = append(s.Inputs, c)
	}
	for i, child := range s.Sections {
		if err := b.bindInputs(child, sections[i].Inputs, sections[i].Sections); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) bindOutputs(s *Section, outputs []OutputBinding, sections []SectionBinding) error {
	for _, out := range outputs {
		if s.Output(out.Name) != nil {
			return errs.NewBindingError("Output %s is declared twice.", out.Name)
		}
		a, err := b.locate("Output", out.Name, out.Cell)
		if err != nil {
			return err
		}
		if _, ok := b.sheet.Cell(a.Sheet, a.Col, a.Row); !ok {
			if c, bound := b.cells[cellAddr{a.Sheet, a.Col, a.Row}]; !bound || !c.IsInput() {
				return errs.NewBindingError("Output %s: cell %s has no formula or value.", out.Name, a)
			}
		}
		c, err := b.cell(s, a.Sheet, a.Col, a.Row)
		if err != nil {
			return err
		}
		if c.Section != s {
			return errs.NewBindingError("Output %s: cell %s lies outside section %s.", out.Name, a, s.Name)
		}
		if c.Type() == expr.String && out.Kind != KindString {
			return errs.WithCell(&errs.TypeError{
				Message: fmt.Sprintf("Output %s is declared %s but the cell computes text.", out.Name, out.Kind),
			}, c.Address())
		}
		s.Outputs = append(s.Outputs, &Output{Name: out.Name, Cell: c, Kind: out.Kind})
	}
	for i, child := range s.Sections {
		if err := b.bindOutputs(child, sections[i].Outputs, sections[i].Sections); err != nil {
			return err
		}
	}
	return nil
}

// owner returns the section a cell referenced from section from belongs
// to: from itself or, for parent access, the nearest ancestor whose first
// record holds the cell.
func (b *Builder) owner(from *Section, sheet string, col, row int) (*Section, error) {
	for s := from; s != nil; s = s.Parent {
		if !s.IsRoot() && !s.Template.Contains(sheet, col, row) {
			if s.Area.Contains(sheet, col, row) {
				return nil, b.cellError("Cell %s lies in section %s outside its first record.", sheet, col, row, s.Name)
			}
			continue
		}
		for _, c := range s.Sections {
			if c.Area.Contains(sheet, col, row) {
				return nil, b.cellError("Cell %s lies in repeating section %s and can only be referenced by an aggregating range.", sheet, col, row, c.Name)
			}
		}
		return s, nil
	}
	errs.Internalf("section tree has no root")
	return nil, nil
}

func (b *Builder) cellError(format, sheet string, col, row int, section string) error {
	return errs.NewBindingError(format, (&expr.Ref{Sheet: sheet, Col: col, Row: row}).String(), section)
}

func (b *Builder) cellModel(s *Section, sheet string, col, row int) *CellModel {
	k := cellAddr{sheet, col, row}
	if c, ok := b.cells[k]; ok {
		return c
	}
	c := &CellModel{Section: s, Sheet: sheet, Col: col, Row: row}
	b.cells[k] = c
	s.Cells = append(s.Cells, c)
	b.model.Cells = append(b.model.Cells, c)
	return c
}

// cell returns the model of the cell referenced from section from, building
// its expression on first use. Cells on a reference cycle are returned
// unfinished; the cycle is reported by the dependency levels.
func (b *Builder) cell(from *Section, sheet string, col, row int) (*CellModel, error) {
	owner, err := b.owner(from, sheet, col, row)
	if err != nil {
		return nil, err
	}
	c := b.cellModel(owner, sheet, col, row)
	if c.IsInput() || c.Expr != nil || b.building[c] {
		return c, nil
	}
	b.building[c] = true
	defer delete(b.building, c)
	content, _ := b.sheet.Cell(sheet, col, row)
	n, err := b.expression(c, content)
	if err != nil {
		return nil, errs.WithCell(err, c.Address())
	}
	c.Expr = n
	return c, nil
}

func (b *Builder) expression(c *CellModel, content Cell) (*expr.Node, error) {
	if content.Formula == "" {
		v, err := b.ctx.FromHost(content.Value)
		if err != nil {
			return nil, &errs.BindingError{Message: err.Error(), Err: err}
		}
		return expr.Constant(v), nil
	}
	c.Formula = content.Formula
	f, err := b.parse(c.Sheet, content.Formula)
	if err != nil {
		return nil, err
	}
	if len(f.Unsupported) > 0 {
		u := *f.Unsupported[0]
		return nil, &u
	}
	r := &resolver{b: b, cell: c, text: f.Text}
	n, err := r.node(f.Root)
	if err != nil {
		return nil, err
	}
	if n.Kind == expr.KindSubstitution {
		return nil, errs.NewBindingError("Range union %s cannot be the value of a cell.", f.Text)
	}
	return n, nil
}

func (b *Builder) parse(sheet, text string) (*parser.Formula, error) {
	if f, ok := b.cache.Load(sheet, text); ok {
		b.logger.Debug("parse cache hit", "sheet", sheet, "formula", text)
		return f, nil
	}
	f, err := parser.Parse(text, b.ctx.Type(), b.refs)
	if err != nil {
		return nil, err
	}
	b.cache.Store(sheet, text, f)
	return f, nil
}
