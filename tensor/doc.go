// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor type stored in paramtree module trees.
//
// # Overview
//
// A RawTensor is a shape, an element type, a device tag and a row-major byte
// buffer. The package covers:
//   - Creation: Zeros, Ones, Full, FromFloat32, FromInt32, FromBytes
//   - Devices: CPU, CUDA, Metal and ParseDevice
//   - Half precision decoding: DecodeFloat16, DecodeBFloat16
//
// # Basic Usage
//
//	import "github.com/born-ml/paramtree/tensor"
//
//	func main() {
//	    w, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(w.Shape(), w.DType(), w.Device()) // [2, 3] float32 CPU
//	}
//
// Identity is by pointer: two RawTensors never share a buffer unless one was
// obtained from the other through View.
package tensor
