package expr

import (
	"errors"
	"fmt"
)

// ErrMultiSheetSubArray is returned when extracting a sub-array from a
// descriptor spanning several sheets.
var ErrMultiSheetSubArray = errors.New("cannot extract a sub-array of a multi-sheet array")

// ArrayDescriptor is the shape of an array: sheets × rows × columns.
type ArrayDescriptor struct {
	Sheets, Rows, Cols int
}

// NewArrayDescriptor returns the descriptor of a single-sheet array.
func NewArrayDescriptor(rows, cols int) *ArrayDescriptor {
	return &ArrayDescriptor{Sheets: 1, Rows: rows, Cols: cols}
}

// Count returns the number of elements.
func (d *ArrayDescriptor) Count() int { return d.Sheets * d.Rows * d.Cols }

func (d *ArrayDescriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.Sheets == 1 {
		return fmt.Sprintf("#(%d,%d)", d.Rows, d.Cols)
	}
	return fmt.Sprintf("#(%d,%d,%d)", d.Sheets, d.Rows, d.Cols)
}

// SubArray extracts the block of nRows × nCols elements starting at the
// 0-based firstRow and firstCol. The returned elements keep their original
// order.
func (d *ArrayDescriptor) SubArray(elements []*Node, firstRow, nRows, firstCol, nCols int) (*ArrayDescriptor, []*Node, error) {
	if d.Sheets != 1 {
		return nil, nil, ErrMultiSheetSubArray
	}
	if len(elements) != d.Count() {
		return nil, nil, fmt.Errorf("array %v has %d elements", d, len(elements))
	}
	if firstRow < 0 || firstCol < 0 || nRows < 0 || nCols < 0 ||
		firstRow+nRows > d.Rows || firstCol+nCols > d.Cols {
		return nil, nil, fmt.Errorf("sub-array (%d,%d,%d,%d) outside of array %v", firstRow, nRows, firstCol, nCols, d)
	}
	sub := make([]*Node, 0, nRows*nCols)
	for r := firstRow; r < firstRow+nRows; r++ {
		sub = append(sub, elements[r*d.Cols+firstCol:r*d.Cols+firstCol+nCols]...)
	}
	return NewArrayDescriptor(nRows, nCols), sub, nil
}
