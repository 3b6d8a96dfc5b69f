package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/paramtree/internal/parallel"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Block quantization: each block of 32 values shares one F16 scale d.
//   Q8_0 block: d (2 bytes) + 32 int8 quants           -> x = d * q
//   Q4_0 block: d (2 bytes) + 16 bytes of nibble pairs -> x = d * (nibble - 8)
// In Q4_0 the low nibble of byte j holds element j, the high nibble element j+16.
const (
	qBlockSize     = 32
	q8_0BlockBytes = 2 + qBlockSize
	q4_0BlockBytes = 2 + qBlockSize/2
)

// blockConfig splits dequantization by block; 256 blocks is 8192 values.
var blockConfig = parallel.Config{Workers: parallel.DefaultConfig().Workers, MinChunk: 256}

func dequantizeQ8_0(data []byte, shape tensor.Shape, device tensor.Device) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, tensor.Float32, device)
	if err != nil {
		return nil, err
	}
	out := raw.AsFloat32()
	if len(out)%qBlockSize != 0 || len(data) != len(out)/qBlockSize*q8_0BlockBytes {
		return nil, fmt.Errorf("Q8_0 data size %d bytes does not match shape %v", len(data), shape)
	}

	parallel.For(len(out)/qBlockSize, blockConfig, func(b int) {
		block := data[b*q8_0BlockBytes : (b+1)*q8_0BlockBytes]
		d := tensor.Float16ToFloat32(binary.LittleEndian.Uint16(block))
		dst := out[b*qBlockSize : (b+1)*qBlockSize]
		for j := range dst {
			dst[j] = d * float32(int8(block[2+j]))
		}
	})
	return raw, nil
}

func dequantizeQ4_0(data []byte, shape tensor.Shape, device tensor.Device) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, tensor.Float32, device)
	if err != nil {
		return nil, err
	}
	out := raw.AsFloat32()
	if len(out)%qBlockSize != 0 || len(data) != len(out)/qBlockSize*q4_0BlockBytes {
		return nil, fmt.Errorf("Q4_0 data size %d bytes does not match shape %v", len(data), shape)
	}

	const half = qBlockSize / 2
	parallel.For(len(out)/qBlockSize, blockConfig, func(b int) {
		block := data[b*q4_0BlockBytes : (b+1)*q4_0BlockBytes]
		d := tensor.Float16ToFloat32(binary.LittleEndian.Uint16(block))
		dst := out[b*qBlockSize : (b+1)*qBlockSize]
		for j := 0; j < half; j++ {
			q := block[2+j]
			dst[j] = d * float32(int(q&0x0F)-8)
			dst[j+half] = d * float32(int(q>>4)-8)
		}
	})
	return raw, nil
}
