// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/pkg/errors"

	_ "github.com/YoshimuraKazumasa/chainer/backend/managed"
	_ "github.com/YoshimuraKazumasa/chainer/backend/native"
	"github.com/YoshimuraKazumasa/chainer/tensor"
)

// TestRawTensorAPI verifies RawTensor type alias exposes expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, nil)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if shape := raw.Shape(); !shape.Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", shape)
	}
	if dtype := raw.DType(); dtype != tensor.Float32 {
		t.Errorf("DType() = %v, want float32", dtype)
	}
	if id := raw.Device().ID(); id.String() != "native:0" {
		t.Errorf("Device() = %s, want native:0", id)
	}
	if n := raw.NumElements(); n != 6 {
		t.Errorf("NumElements() = %d, want 6", n)
	}
	if byteSize := raw.ByteSize(); byteSize != 6*4 {
		t.Errorf("ByteSize() = %d, want %d", byteSize, 6*4)
	}

	raw.Fill(2)
	clone := raw.Clone()
	clone.SetAt(0, 5)
	if got := raw.At(0); got != 5 {
		t.Errorf("Clone() does not share storage: At(0) = %g, want 5", got)
	}
	deep := raw.Copy()
	deep.SetAt(1, 7)
	if got := raw.At(1); got != 2 {
		t.Errorf("Copy() shares storage: At(1) = %g, want 2", got)
	}
}

func TestFromFloat64(t *testing.T) {
	for _, dtype := range []tensor.DataType{tensor.Float16, tensor.Bfloat16, tensor.Float32, tensor.Float64, tensor.Int32} {
		t.Run(dtype.String(), func(t *testing.T) {
			raw, err := tensor.FromFloat64([]float64{1, -2, 3, 0.5}, tensor.Shape{2, 2}, dtype, nil)
			if err != nil {
				t.Fatalf("FromFloat64 failed: %v", err)
			}
			want := []float64{1, -2, 3, 0.5}
			if dtype == tensor.Int32 {
				want[3] = 0
			}
			for i, v := range raw.ToFloat64() {
				if v != want[i] {
					t.Errorf("element %d = %g, want %g", i, v, want[i])
				}
			}
		})
	}

	if _, err := tensor.FromFloat64([]float64{1, 2}, tensor.Shape{3}, tensor.Float32, nil); !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Errorf("FromFloat64 with 2 values for shape (3) = %v, want ErrShapeMismatch", err)
	}
}

func TestDevices(t *testing.T) {
	names := tensor.BackendNames()
	if len(names) < 2 {
		t.Fatalf("BackendNames() = %v, want native and managed", names)
	}

	id, err := tensor.ParseDeviceID("managed:0")
	if err != nil {
		t.Fatalf("ParseDeviceID failed: %v", err)
	}
	dev, err := tensor.GetDevice(id)
	if err != nil {
		t.Fatalf("GetDevice(%s) failed: %v", id, err)
	}

	restore := tensor.UseDevice(dev)
	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, nil)
	restore()
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if raw.Device() != dev {
		t.Errorf("NewRaw inside UseDevice allocated on %s, want %s", raw.Device().ID(), id)
	}
	if attrs := raw.Buffer().Attributes(); attrs.Kind != tensor.ManagedMemory {
		t.Errorf("buffer kind = %s, want managed", attrs.Kind)
	}
	if tensor.DefaultDevice() == dev {
		t.Error("UseDevice restore did not reset the default device")
	}

	host, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, nil)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if err := tensor.CheckDevicesCompatible(raw, host); !errors.Is(err, tensor.ErrDeviceMismatch) {
		t.Errorf("CheckDevicesCompatible = %v, want ErrDeviceMismatch", err)
	}
}
