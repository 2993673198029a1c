// Package linalg holds the small amount of dense float32 arithmetic the
// workers and the reference network need: row-major matrices, a
// matrix-vector product and row partitioning.
package linalg

import (
	"fmt"
	"math"
)

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// New wraps data as a rows×cols matrix. len(data) must equal rows*cols.
func New(rows, cols int, data []float32) (Matrix, error) {
	if rows < 0 || cols < 0 {
		return Matrix{}, fmt.Errorf("linalg: negative shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return Matrix{}, fmt.Errorf("linalg: shape %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	return Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// Zeros allocates a rows×cols matrix of zeros.
func Zeros(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Row returns row i without copying.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// SliceRows returns rows [begin, end) without copying.
func (m Matrix) SliceRows(begin, end int) Matrix {
	return Matrix{Rows: end - begin, Cols: m.Cols, Data: m.Data[begin*m.Cols : end*m.Cols]}
}

// MulVec computes m·x. len(x) must equal m.Cols.
func (m Matrix) MulVec(x []float32) ([]float32, error) {
	if len(x) != m.Cols {
		return nil, fmt.Errorf("linalg: vector of %d values against %dx%d matrix", len(x), m.Rows, m.Cols)
	}
	out := make([]float32, m.Rows)
	for r := 0; r < m.Rows; r++ {
		row := m.Data[r*m.Cols : (r+1)*m.Cols]
		var acc float32
		for c, v := range row {
			acc += v * x[c]
		}
		out[r] = acc
	}
	return out, nil
}

// ChunkBounds returns the half-open row range assigned to part i when n rows
// are split across parts. Every part gets n/parts rows and the last part
// also takes the remainder.
func ChunkBounds(n, parts, i int) (begin, end int) {
	size := n / parts
	begin = i * size
	end = (i + 1) * size
	if i == parts-1 {
		end = n
	}
	return begin, end
}

// Concat joins vectors end to end.
func Concat(parts [][]float32) []float32 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float32, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Add returns a+b element-wise.
func Add(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Tanh applies tanh element-wise in place and returns xs.
func Tanh(xs []float32) []float32 {
	for i, v := range xs {
		xs[i] = float32(math.Tanh(float64(v)))
	}
	return xs
}

// Softmax returns the softmax of xs. Entries equal to -Inf get probability 0.
func Softmax(xs []float32) []float32 {
	maxV := float32(math.Inf(-1))
	for _, v := range xs {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float32, len(xs))
	var sum float64
	for i, v := range xs {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
