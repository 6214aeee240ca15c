// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package formula compiles spreadsheet formulas ahead of time. Compile binds
// the cells of a spreadsheet to named inputs and outputs, folds the
// constant parts of the formula graph and lowers the rest to an engine that
// recomputes the outputs for any input values with spreadsheet compatible
// numeric and date semantics.
//
// For example, compile the total of an order with a flat tax rate:
//
//	wb := model.NewWorkbook()
//	_ = wb.SetFormula("Sheet1", "B3", "=B1*B2*(1+B4)")
//	_ = wb.SetValue("Sheet1", "B4", 0.2)
//	engine, err := formula.Compile(wb, &model.Binding{
//	    Inputs: []model.InputBinding{
//	        {Name: "price", Cell: "B1", Kind: model.KindNumber},
//	        {Name: "qty", Cell: "B2", Kind: model.KindNumber},
//	    },
//	    Outputs: []model.OutputBinding{{Name: "total", Cell: "B3", Kind: model.KindNumber}},
//	})
//	if err != nil {
//	    fmt.Println(err)
//	    return
//	}
//	total, err := engine.NewInstance(codegen.MapInputs{
//	    Values: map[string]interface{}{"price": 2.5, "qty": 4},
//	}).Float("total")
package formula

import (
	"log/slog"
	"time"

	"github.com/xuri/formula/codegen"
	"github.com/xuri/formula/consteval"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
	"golang.org/x/text/language"
)

// Options define the options for compiling a spreadsheet.
//
// NumericType selects the number representation of the engine. The default
// is numeric.Double64; numeric.NewDecimal and numeric.NewScaled give exact
// decimal arithmetic.
//
// Locale is used for case mapping and number separators. The default is
// English.
//
// TimeZone is the zone in which host times convert to date serial numbers.
// The default is UTC.
//
// Clock is the source of NOW and TODAY. The default is time.Now.
//
// Resettable enables Instance.Reset on the compiled engine.
//
// ParseCacheSize is the number of distinct formula texts whose parse trees
// are kept during binding. Zero selects the default; a negative value
// disables the cache.
//
// Logger receives debug records of the compilation stages. Nothing is
// logged by default.
//
// OnConstantCell is called for every formula cell computing a constant.
//
// DisableConstantFolding compiles the bound model without folding it.
type Options struct {
	NumericType            numeric.Type
	Locale                 language.Tag
	TimeZone               *time.Location
	Clock                  func() time.Time
	Resettable             bool
	ParseCacheSize         int
	Logger                 *slog.Logger
	OnConstantCell         func(cell *model.CellModel, value numeric.Value)
	DisableConstantFolding bool
}

// getOptions provides a function to parse the optional settings for
// compiling a spreadsheet.
func getOptions(opts ...Options) Options {
	options := Options{}
	for _, opt := range opts {
		options = opt
	}
	if options.NumericType == nil {
		options.NumericType = numeric.Double64
	}
	if options.Locale == language.Und {
		options.Locale = language.English
	}
	if options.TimeZone == nil {
		options.TimeZone = time.UTC
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return options
}

// Compile binds sheet to binding and compiles the resulting model. The
// binding is copied; later changes to it do not affect the engine. Any
// error aborts the compilation and no engine is returned.
func Compile(sheet model.Spreadsheet, binding *model.Binding, opts ...Options) (*codegen.Engine, error) {
	options := getOptions(opts...)
	ctx := numeric.NewContext(options.NumericType,
		numeric.WithLocale(options.Locale),
		numeric.WithLocation(options.TimeZone),
		numeric.WithClock(options.Clock),
	)
	logger := options.Logger

	m, err := model.Build(sheet, binding, ctx, model.Options{
		ParseCacheSize: options.ParseCacheSize,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	if !options.DisableConstantFolding {
		m = consteval.Fold(m, ctx, consteval.Options{
			OnConstantCell: options.OnConstantCell,
			Logger:         logger,
		})
	}
	engine, err := codegen.Compile(m, ctx, codegen.Options{
		Resettable: options.Resettable,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("compiled", "engine", engine.ID, "type", options.NumericType.String(),
		"cells", len(m.Cells), "levels", len(m.Levels))
	return engine, nil
}
