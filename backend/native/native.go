// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package native provides the host backend.
//
// Importing the package registers the backend as "native" with a single
// device, "native:0", which is the default device:
//
//	import _ "github.com/YoshimuraKazumasa/chainer/backend/native"
package native

import (
	"github.com/YoshimuraKazumasa/chainer/internal/backend/native"
)

// Name is the registry name of the backend.
const Name = native.Name

// Backend is the host backend.
type Backend = native.Backend

// Device is the single host device.
type Device = native.Device

// New creates a host backend outside the registry.
func New() *Backend {
	return native.New()
}
