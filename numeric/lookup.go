package numeric

func registerLogic() {
	register("IF", func(l *Library, args []Value) Value {
		if l.Bool(arg(args, 0)) {
			return orFalse(l, args, 1)
		}
		return orFalse(l, args, 2)
	})
	register("AND", func(l *Library, args []Value) Value {
		for _, a := range flatten(args) {
			if !a.IsEmpty() && !l.Bool(a) {
				return l.boolean(false)
			}
		}
		return l.boolean(true)
	})
	register("OR", func(l *Library, args []Value) Value {
		for _, a := range flatten(args) {
			if !a.IsEmpty() && l.Bool(a) {
				return l.boolean(true)
			}
		}
		return l.boolean(false)
	})
	register("NOT", func(l *Library, args []Value) Value { return l.boolean(!l.Bool(arg(args, 0))) })
	register("TRUE", func(l *Library, _ []Value) Value { return l.boolean(true) })
	register("FALSE", func(l *Library, _ []Value) Value { return l.boolean(false) })
	register("ISNUMBER", func(l *Library, args []Value) Value { return l.boolean(arg(args, 0).Type == TypeNumber) })
	register("ISTEXT", func(l *Library, args []Value) Value { return l.boolean(arg(args, 0).Type == TypeString) })
	register("ISBLANK", func(l *Library, args []Value) Value { return l.boolean(arg(args, 0).IsEmpty()) })
	register("N", func(l *Library, args []Value) Value {
		if a := arg(args, 0); a.Type == TypeNumber {
			return a
		}
		return Num(l.t.Zero())
	})
}

// orFalse returns args[i], or FALSE when the branch is missing.
func orFalse(l *Library, args []Value, i int) Value {
	if i >= len(args) {
		return l.boolean(false)
	}
	if args[i].IsEmpty() {
		return Num(l.t.Zero())
	}
	return args[i]
}

func registerLookup() {
	register("INDEX", func(l *Library, args []Value) Value {
		a := arg(args, 0)
		row := l.numArg(args, 1, 0)
		col := l.numArg(args, 2, 0)
		return l.Index(a, int(row), int(col))
	})
	register("CHOOSE", func(l *Library, args []Value) Value {
		i := l.Int(arg(args, 0))
		if i < 1 || i >= len(args) {
			return l.err()
		}
		return args[i]
	})
	register("MATCH", func(l *Library, args []Value) Value {
		mode := 1
		if a := arg(args, 2); !a.IsEmpty() {
			mode = l.Int(a)
		}
		return l.match(arg(args, 0), arg(args, 1).Flatten(nil), mode)
	})
}

// Index selects the element at the 1-based row and column of an array. A
// one-dimensional array is indexed by whichever of row and col is given.
// Out-of-range positions yield the error sentinel.
func (l *Library) Index(a Value, row, col int) Value {
	if a.Type != TypeArray {
		if row <= 1 && col <= 1 {
			return a
		}
		return l.err()
	}
	rows, cols := a.Rows, a.Cols
	if rows*cols != len(a.Array) {
		rows, cols = 1, len(a.Array)
	}
	i, ok := IndexPosition(rows, cols, row, col)
	if !ok {
		return l.err()
	}
	return a.Array[i]
}

// IndexPosition returns the row-major offset INDEX selects in a rows × cols
// array, and false if the position is out of range.
func IndexPosition(rows, cols, row, col int) (int, bool) {
	switch {
	case rows == 1 && col == 0:
		row, col = 1, row
	case cols == 1 && col == 0:
		col = 1
	case row == 0 && rows == 1:
		row = 1
	}
	if row < 1 || row > rows || col < 1 || col > cols {
		return 0, false
	}
	return (row-1)*cols + col - 1, true
}

func (l *Library) match(what Value, in []Value, mode int) Value {
	found := -1
scan:
	for i, v := range in {
		c := l.Compare(v, what)
		switch {
		case mode == 0:
			if c == 0 {
				found = i
				break scan
			}
		case mode > 0:
			if c > 0 {
				break scan
			}
			found = i
		default:
			if c < 0 {
				break scan
			}
			found = i
		}
	}
	if found < 0 {
		return l.err()
	}
	return Num(l.t.FromInt(int64(found + 1)))
}
