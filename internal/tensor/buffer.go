package tensor

import (
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// MemoryKind describes where the bytes of a Buffer live.
type MemoryKind int

const (
	// HostMemory is ordinary process memory not owned by any device.
	HostMemory MemoryKind = iota
	// ManagedMemory is accessible from the host and from its owning device.
	ManagedMemory
	// DeviceMemory is only accessible from its owning device.
	DeviceMemory
)

func (k MemoryKind) String() string {
	switch k {
	case HostMemory:
		return "host"
	case ManagedMemory:
		return "managed"
	case DeviceMemory:
		return "device"
	default:
		return "unknown"
	}
}

// BufferAttributes is what a device can learn about a pointer it did not allocate.
type BufferAttributes struct {
	Device DeviceID
	Kind   MemoryKind
}

// Buffer is reference-counted backing storage shared by tensor views.
// The last Release invokes the owner's free callback.
type Buffer struct {
	data     []byte
	attrs    BufferAttributes
	refCount atomic.Int32
	onFree   func(*Buffer)
	freeOnce sync.Once
}

// NewBuffer wraps data with a reference count of one. onFree may be nil.
func NewBuffer(data []byte, attrs BufferAttributes, onFree func(*Buffer)) *Buffer {
	b := &Buffer{data: data, attrs: attrs, onFree: onFree}
	b.refCount.Store(1)
	return b
}

// HostBuffer wraps memory that belongs to no device.
func HostBuffer(data []byte) *Buffer {
	return NewBuffer(data, BufferAttributes{Kind: HostMemory}, nil)
}

// Bytes returns the raw storage.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the storage size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Attributes returns the owner and memory kind of the storage.
func (b *Buffer) Attributes() BufferAttributes {
	return b.attrs
}

// Retain adds a reference.
func (b *Buffer) Retain() *Buffer {
	b.refCount.Add(1)
	return b
}

// RefCount returns the current number of references.
func (b *Buffer) RefCount() int {
	return int(b.refCount.Load())
}

// Release drops a reference. Releasing an already freed buffer is a no-op.
func (b *Buffer) Release() {
	n := b.refCount.Add(-1)
	switch {
	case n == 0:
		b.freeOnce.Do(func() {
			if b.onFree != nil {
				b.onFree(b)
			}
		})
	case n < 0:
		klog.Warningf("release of freed %s buffer on %s", b.attrs.Kind, b.attrs.Device)
	}
}
