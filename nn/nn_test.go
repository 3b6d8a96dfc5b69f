// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/loader/loadertest"
	"github.com/born-ml/paramtree/nn"
	"github.com/born-ml/paramtree/tensor"
)

// TestLayerInterface verifies that concrete types implement Layer.
func TestLayerInterface(t *testing.T) {
	seq, err := nn.NewSequential(nn.NewLinear(4, 4, true, tensor.CPU), nn.NewReLU())
	require.NoError(t, err)

	tests := []struct {
		name  string
		layer nn.Layer
	}{
		{name: "Linear", layer: nn.NewLinear(4, 4, true, tensor.CPU)},
		{name: "RMSNorm", layer: nn.NewRMSNorm(4, 1e-5, tensor.CPU)},
		{name: "SiLU", layer: nn.NewSiLU()},
		{name: "MLP", layer: nn.NewMLP(4, 6, tensor.CPU)},
		{name: "Sequential", layer: seq},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, err := tt.layer.Forward(tensor.Ones(tensor.Shape{2, 4}, tensor.CPU))
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{2, 4}, y.Shape())
		})
	}
}

func TestSaveAndLoadThroughPublicAPI(t *testing.T) {
	build := func() *nn.Module {
		m := nn.NewModule()
		require.NoError(t, m.RegisterModule("fc1", nn.NewLinear(3, 2, true, tensor.CPU)))
		require.NoError(t, nn.RegisterList(m, "blocks", []*nn.RMSNorm{
			nn.NewRMSNorm(2, 1e-5, tensor.CPU),
			nn.NewRMSNorm(2, 1e-5, tensor.CPU),
		}))
		return m
	}

	src := build()
	state, err := src.StateDict()
	require.NoError(t, err)
	path := loadertest.SafeTensorsFile(t, "model.safetensors", state)

	dst := build()
	cfg := nn.DefaultConfig()
	cfg.Metrics = false
	report, err := nn.LoadWeights(dst, path, cfg)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.ElementsMatch(t, []string{"fc1.weight", "fc1.bias", "blocks.0.weight", "blocks.1.weight"}, report.Updated)

	srcView, err := nn.Flatten(src)
	require.NoError(t, err)
	dstView, err := nn.Flatten(dst)
	require.NoError(t, err)
	assert.Equal(t, srcView.Tensor("fc1.weight").AsFloat32(), dstView.Tensor("fc1.weight").AsFloat32())
}

func TestDuplicateNameThroughPublicAPI(t *testing.T) {
	m := nn.NewModule()
	_, err := m.RegisterParameter("w", tensor.Zeros(tensor.Shape{1}, tensor.CPU))
	require.NoError(t, err)

	_, err = m.RegisterParameter("w", tensor.Zeros(tensor.Shape{1}, tensor.CPU))
	assert.True(t, errors.Is(err, nn.ErrDuplicateName))

	var dup *nn.DuplicateNameError
	assert.ErrorAs(t, err, &dup)
}
