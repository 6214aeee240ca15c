// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package duckdb provides a DuckDB backed input source for compiled
// engines. Tables are loaded into an in-memory database, each repeating
// section is bound to a SQL query whose result columns are named after the
// section's inputs, and Materialize runs the queries once so that no I/O
// happens while an instance evaluates.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"github.com/xuri/formula/codegen"
)

// Source collects the inputs of an engine from DuckDB queries.
type Source struct {
	db       *sql.DB
	mu       sync.RWMutex
	tables   map[string]*TableInfo // table name -> table info
	values   map[string]interface{}
	sections []sectionQuery
}

// TableInfo stores metadata about a loaded table.
type TableInfo struct {
	TableName  string
	RowCount   int
	ColumnInfo []ColumnInfo
}

// ColumnInfo stores metadata about a column in the table.
type ColumnInfo struct {
	Name     string // SQL column name
	DataType string // DuckDB data type
	ColIndex int    // 0-based column index
}

type sectionQuery struct {
	name  string
	query string
	args  []interface{}
}

// Config holds configuration options for the DuckDB source.
type Config struct {
	// MemoryLimit sets the maximum memory DuckDB can use (e.g., "4GB")
	MemoryLimit string
	// Threads sets the number of threads DuckDB should use (0 = auto)
	Threads int
}

// DefaultConfig returns the default configuration for the DuckDB source.
func DefaultConfig() *Config {
	return &Config{
		MemoryLimit: "1GB",
		Threads:     0, // auto-detect
	}
}

// NewSource opens an in-memory database configured by cfg. A nil cfg keeps
// the DuckDB defaults.
func NewSource(cfg *Config) (*Source, error) {
	// Open in-memory DuckDB database
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	s := &Source{
		db:     db,
		tables: make(map[string]*TableInfo),
		values: make(map[string]interface{}),
	}

	if err := s.applyConfig(cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply config: %w", err)
	}
	return s, nil
}

// applyConfig applies configuration settings to the DuckDB database.
func (s *Source) applyConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	// Set memory limit
	if cfg.MemoryLimit != "" {
		if _, err := s.db.Exec(fmt.Sprintf("SET memory_limit = '%s'", cfg.MemoryLimit)); err != nil {
			return fmt.Errorf("failed to set memory_limit: %w", err)
		}
	}

	// Set thread count
	if cfg.Threads > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("SET threads = %d", cfg.Threads)); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}

	return nil
}

// LoadRows creates or replaces the table with the given column headers and
// fills it with rows. Column types are taken from the first non-nil value
// of each column; columns without values are VARCHAR.
func (s *Source) LoadRows(table string, headers []string, rows [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tableName := sanitizeName(table, "t_")
	if tableName == "" {
		return fmt.Errorf("invalid table name %q", table)
	}

	// Create table with columns
	columns := make([]string, len(headers))
	for i, h := range headers {
		colName := sanitizeName(h, "c_")
		if colName == "" {
			colName = fmt.Sprintf("col%d", i+1)
		}
		columns[i] = fmt.Sprintf("%s %s", colName, columnType(rows, i))
	}

	createQuery := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", tableName, strings.Join(columns, ", "))
	if _, err := s.db.Exec(createQuery); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if len(rows) > 0 {
		placeholders := make([]string, len(headers))
		for i := range headers {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}

		insertQuery := fmt.Sprintf(
			"INSERT INTO %s VALUES (%s)",
			tableName, strings.Join(placeholders, ", "),
		)

		stmt, err := s.db.Prepare(insertQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			args := make([]interface{}, len(headers))
			for i := range headers {
				if i < len(row) {
					args[i] = row[i]
				}
			}
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("failed to insert row: %w", err)
			}
		}
	}

	info, err := s.tableInfo(tableName)
	if err != nil {
		return fmt.Errorf("failed to get table info: %w", err)
	}
	s.tables[tableName] = info
	return nil
}

// columnType returns the DuckDB type of column i.
func columnType(rows [][]interface{}, i int) string {
	for _, row := range rows {
		if i >= len(row) || row[i] == nil {
			continue
		}
		switch row[i].(type) {
		case float32, float64:
			return "DOUBLE"
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			return "BIGINT"
		case bool:
			return "BOOLEAN"
		case time.Time:
			return "TIMESTAMP"
		}
		return "VARCHAR"
	}
	return "VARCHAR"
}

// tableInfo retrieves metadata about a DuckDB table.
func (s *Source) tableInfo(tableName string) (*TableInfo, error) {
	info := &TableInfo{TableName: tableName}

	var count int
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)).Scan(&count); err != nil {
		return nil, err
	}
	info.RowCount = count

	rows, err := s.db.Query(fmt.Sprintf("DESCRIBE %s", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for colIndex := 0; rows.Next(); colIndex++ {
		var colName, colType string
		var null, key, defaultVal, extra sql.NullString
		if err := rows.Scan(&colName, &colType, &null, &key, &defaultVal, &extra); err != nil {
			return nil, err
		}
		info.ColumnInfo = append(info.ColumnInfo, ColumnInfo{
			Name:     colName,
			DataType: colType,
			ColIndex: colIndex,
		})
	}
	return info, rows.Err()
}

// Table returns the metadata of a loaded table.
func (s *Source) Table(table string) (*TableInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.tables[sanitizeName(table, "t_")]
	return info, ok
}

// BindSection binds the records of the named section to the rows of query.
// Every result column whose name is an input of the section supplies that
// input; other columns are ignored. Binding a section again replaces its
// query.
func (s *Source) BindSection(section, query string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sections {
		if s.sections[i].name == section {
			s.sections[i] = sectionQuery{name: section, query: query, args: args}
			return
		}
	}
	s.sections = append(s.sections, sectionQuery{name: section, query: query, args: args})
}

// SetValue sets the value of a workbook input.
func (s *Source) SetValue(name string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
}

// Materialize runs the section queries and returns the inputs of one
// instance.
func (s *Source) Materialize(ctx context.Context) (codegen.MapInputs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := codegen.MapInputs{
		Values:   make(map[string]interface{}, len(s.values)),
		Sections: make(map[string][]codegen.MapInputs, len(s.sections)),
	}
	for name, v := range s.values {
		in.Values[name] = v
	}
	for _, q := range s.sections {
		records, err := s.records(ctx, q)
		if err != nil {
			return codegen.MapInputs{}, fmt.Errorf("failed to query section %s: %w", q.name, err)
		}
		in.Sections[q.name] = records
	}
	return in, nil
}

func (s *Source) records(ctx context.Context, q sectionQuery) ([]codegen.MapInputs, error) {
	rows, err := s.db.QueryContext(ctx, q.query, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []codegen.MapInputs
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := codegen.MapInputs{Values: make(map[string]interface{}, len(columns))}
		for i, col := range columns {
			record.Values[col] = hostValue(values[i])
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// hostValue converts a scanned DuckDB value to a value engines accept.
func hostValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	}
	return v
}

// Close closes the DuckDB database connection and releases resources.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var nameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeName converts a table or column name to a valid SQL identifier,
// prefixing names that start with a digit.
func sanitizeName(name, prefix string) string {
	sanitized := nameRegexp.ReplaceAllString(name, "_")

	// Ensure it starts with a letter
	if len(sanitized) > 0 && (sanitized[0] >= '0' && sanitized[0] <= '9') {
		sanitized = prefix + sanitized
	}

	return strings.ToLower(sanitized)
}
