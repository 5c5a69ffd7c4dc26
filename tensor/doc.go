// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense arrays that gradients are checked on.
//
// # Overview
//
// A RawTensor is a strided view into a reference-counted Buffer owned by a
// Device. This package provides:
//   - Element types, including float16 and bfloat16
//   - Shapes with NumPy-style broadcasting
//   - Element access by logical row-major index, whatever the strides
//   - The Device and Backend interfaces and the backend registry
//   - A device session selecting the default device
//
// # Basic Usage
//
//	import (
//	    _ "github.com/YoshimuraKazumasa/chainer/backend/native"
//	    "github.com/YoshimuraKazumasa/chainer/tensor"
//	)
//
//	func main() {
//	    x, _ := tensor.FromFloat64([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Float32, nil)
//	    y := x.Device().Mul(x, x)
//	    fmt.Println(y) // array(float32, (2, 2), device=native:0, [1, 4, 9, 16])
//	}
//
// # Devices
//
// Backends register themselves on import:
//   - native: host memory, one device "native:0"
//   - managed: unified memory shared by host and device, "managed:0".."managed:N-1"
//
// The default device is "native:0" unless XCHAINER_DEFAULT_DEVICE says
// otherwise. UseDevice overrides it for a scope:
//
//	dev, _ := tensor.GetDevice(tensor.DeviceID{Backend: "managed", Index: 1})
//	defer tensor.UseDevice(dev)()
//
// # Memory Management
//
// Views created with Clone share the buffer and hold a reference on it.
// Release drops the reference; the owning device is notified when the last
// one is gone.
package tensor
