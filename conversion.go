package anyrnnt

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// vectorData extracts a vector's contents as []float64.
//
// Only []float32 and []float64 numeric list types are
// supported.
func vectorData(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case []float32:
		res := make([]float64, len(d))
		for i, x := range d {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

// matrixRows views a packed row-major matrix as rows.
func matrixRows(data []float64, rows, cols int) [][]float64 {
	res := make([][]float64, rows)
	for i := range res {
		res[i] = data[i*cols : (i+1)*cols]
	}
	return res
}
