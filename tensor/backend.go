// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/YoshimuraKazumasa/chainer/internal/tensor"

// Kernels are the numerical primitives a device executes.
type Kernels = tensor.Kernels

// Device allocates memory and executes kernels.
//
// Implementations:
//   - backend/native: host memory, pure Go kernels
//   - backend/managed: unified memory addressable by host and device
type Device = tensor.Device

// Backend groups the devices of one kind.
type Backend = tensor.Backend

// DeviceID names a device as "backend:index".
type DeviceID = tensor.DeviceID

// ParseDeviceID parses "native", "native:0" or "managed:1".
func ParseDeviceID(s string) (DeviceID, error) {
	return tensor.ParseDeviceID(s)
}

// RegisterBackend makes a backend available by name.
func RegisterBackend(name string, factory func() (Backend, error)) {
	tensor.RegisterBackend(name, factory)
}

// BackendNames lists the registered backends, sorted.
func BackendNames() []string {
	return tensor.BackendNames()
}

// GetBackend returns the backend registered under name.
func GetBackend(name string) (Backend, error) {
	return tensor.GetBackend(name)
}

// GetDevice resolves a device id.
func GetDevice(id DeviceID) (Device, error) {
	return tensor.GetDevice(id)
}

// UseDevice makes d the default device until the returned function is called.
//
// Example:
//
//	defer tensor.UseDevice(dev)()
func UseDevice(d Device) func() {
	return tensor.UseDevice(d)
}

// DefaultDevice returns the current default device.
func DefaultDevice() Device {
	return tensor.DefaultDevice()
}

// CheckDevicesCompatible fails with ErrDeviceMismatch unless every tensor
// lives on the same device.
func CheckDevicesCompatible(tensors ...*RawTensor) error {
	return tensor.CheckDevicesCompatible(tensors...)
}
