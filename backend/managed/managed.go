// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package managed provides an accelerator-style backend with unified memory.
//
// Importing the package registers the backend as "managed". The number of
// devices comes from XCHAINER_MANAGED_DEVICES (default 1):
//
//	import _ "github.com/YoshimuraKazumasa/chainer/backend/managed"
//
//	id, _ := tensor.ParseDeviceID("managed:0")
//	dev, _ := tensor.GetDevice(id)
//	defer tensor.UseDevice(dev)()
package managed

import (
	"github.com/YoshimuraKazumasa/chainer/internal/backend/managed"
)

// Name is the registry name of the backend.
const Name = managed.Name

// Backend owns a fixed set of managed devices.
type Backend = managed.Backend

// Device is one managed device.
type Device = managed.Device

// MemoryStats summarizes the live allocations of a device.
type MemoryStats = managed.MemoryStats

// New creates a backend with count devices outside the registry.
func New(count int) (*Backend, error) {
	return managed.New(count)
}
