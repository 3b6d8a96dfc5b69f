package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// The kernels below are the small set of float32 CPU operations the leaf layers
// consume. Each returns a fresh tensor and reports bad inputs as errors.

func requireFloat32(op string, ts ...*RawTensor) error {
	for _, t := range ts {
		if t == nil {
			return fmt.Errorf("%s: nil tensor", op)
		}
		if t.DType() != Float32 {
			return fmt.Errorf("%s: expected float32, got %s", op, t.DType())
		}
	}
	return nil
}

// MatMul multiplies x [..., K] by w [K, N], producing [..., N].
// Leading dimensions of x are treated as a flattened batch.
func MatMul(x, w *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("matmul", x, w); err != nil {
		return nil, err
	}
	if len(w.Shape()) != 2 {
		return nil, fmt.Errorf("matmul: weight must be 2-D, got %v", w.Shape())
	}
	if len(x.Shape()) == 0 {
		return nil, fmt.Errorf("matmul: input must have at least one dimension")
	}
	k, n := w.Shape()[0], w.Shape()[1]
	if x.Shape().Last() != k {
		return nil, fmt.Errorf("matmul: inner dimensions differ: %v x %v", x.Shape(), w.Shape())
	}
	m := x.NumElements() / k

	outShape := append(x.Shape()[:len(x.Shape())-1].Clone(), n)
	out, err := NewRaw(outShape, Float32, x.Device())
	if err != nil {
		return nil, err
	}

	a := blas32.General{Rows: m, Cols: k, Stride: k, Data: x.AsFloat32()}
	b := blas32.General{Rows: k, Cols: n, Stride: n, Data: w.AsFloat32()}
	c := blas32.General{Rows: m, Cols: n, Stride: n, Data: out.AsFloat32()}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)

	return out, nil
}

// AddRow adds a [N] vector to every row of x [..., N].
func AddRow(x, row *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("add_row", x, row); err != nil {
		return nil, err
	}
	n := row.NumElements()
	if len(row.Shape()) != 1 || x.Shape().Last() != n {
		return nil, fmt.Errorf("add_row: cannot broadcast %v over %v", row.Shape(), x.Shape())
	}

	out := x.Clone()
	dst, src := out.AsFloat32(), row.AsFloat32()
	for i := range dst {
		dst[i] += src[i%n]
	}
	return out, nil
}

// Mul multiplies two tensors of identical shape elementwise.
func Mul(a, b *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("mul", a, b); err != nil {
		return nil, err
	}
	if !a.Shape().Equal(b.Shape()) {
		return nil, fmt.Errorf("mul: shape mismatch %v vs %v", a.Shape(), b.Shape())
	}

	out := a.Clone()
	dst, src := out.AsFloat32(), b.AsFloat32()
	for i := range dst {
		dst[i] *= src[i]
	}
	return out, nil
}

// SiLU applies x * sigmoid(x) elementwise.
func SiLU(x *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("silu", x); err != nil {
		return nil, err
	}

	out := x.Clone()
	data := out.AsFloat32()
	for i, v := range data {
		data[i] = v / (1 + float32(math.Exp(float64(-v))))
	}
	return out, nil
}

// ReLU applies max(x, 0) elementwise.
func ReLU(x *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("relu", x); err != nil {
		return nil, err
	}

	out := x.Clone()
	data := out.AsFloat32()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return out, nil
}

// RMSNorm normalizes x [..., D] by the root mean square of its last dimension and
// scales by weight [D].
func RMSNorm(x, weight *RawTensor, eps float32) (*RawTensor, error) {
	if err := requireFloat32("rms_norm", x, weight); err != nil {
		return nil, err
	}
	d := weight.NumElements()
	if len(weight.Shape()) != 1 || x.Shape().Last() != d {
		return nil, fmt.Errorf("rms_norm: weight %v does not match input %v", weight.Shape(), x.Shape())
	}

	out := x.Clone()
	data, gamma := out.AsFloat32(), weight.AsFloat32()
	for start := 0; start < len(data); start += d {
		row := data[start : start+d]
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		scale := float32(1 / math.Sqrt(sum/float64(d)+float64(eps)))
		for i := range row {
			row[i] = row[i] * scale * gamma[i]
		}
	}
	return out, nil
}

// Rows gathers rows of table [V, D] by integer ids of any shape, producing [..., D].
func Rows(table, ids *RawTensor) (*RawTensor, error) {
	if err := requireFloat32("rows", table); err != nil {
		return nil, err
	}
	if len(table.Shape()) != 2 {
		return nil, fmt.Errorf("rows: table must be 2-D, got %v", table.Shape())
	}
	if ids == nil {
		return nil, fmt.Errorf("rows: nil ids")
	}

	var index []int64
	switch ids.DType() {
	case Int32:
		for _, id := range ids.AsInt32() {
			index = append(index, int64(id))
		}
	case Int64:
		index = ids.AsInt64()
	default:
		return nil, fmt.Errorf("rows: ids must be int32 or int64, got %s", ids.DType())
	}

	vocab, d := table.Shape()[0], table.Shape()[1]
	out, err := NewRaw(append(ids.Shape().Clone(), d), Float32, table.Device())
	if err != nil {
		return nil, err
	}

	src, dst := table.AsFloat32(), out.AsFloat32()
	for i, id := range index {
		if id < 0 || id >= int64(vocab) {
			return nil, fmt.Errorf("rows: id %d out of range [0, %d)", id, vocab)
		}
		copy(dst[i*d:(i+1)*d], src[int(id)*d:(int(id)+1)*d])
	}
	return out, nil
}

// SplitLast splits x [..., N] into n tensors of shape [..., N/n].
func SplitLast(x *RawTensor, n int) ([]*RawTensor, error) {
	if err := requireFloat32("split", x); err != nil {
		return nil, err
	}
	if len(x.Shape()) == 0 {
		return nil, fmt.Errorf("split: cannot split a scalar")
	}
	last := x.Shape().Last()
	if n <= 0 || last%n != 0 {
		return nil, fmt.Errorf("split: cannot split last dimension %d into %d parts", last, n)
	}

	part := last / n
	partShape := x.Shape().Clone()
	partShape[len(partShape)-1] = part

	src := x.AsFloat32()
	rows := x.NumElements() / last
	parts := make([]*RawTensor, n)
	for p := range parts {
		out, err := NewRaw(partShape, Float32, x.Device())
		if err != nil {
			return nil, err
		}
		dst := out.AsFloat32()
		for r := 0; r < rows; r++ {
			copy(dst[r*part:(r+1)*part], src[r*last+p*part:r*last+(p+1)*part])
		}
		parts[p] = out
	}
	return parts, nil
}
