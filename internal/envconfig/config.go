// Package envconfig reads process-wide settings from XCHAINER_* environment variables.
package envconfig

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

var (
	// Set via XCHAINER_DEBUG in the environment
	Debug bool
	// Set via XCHAINER_DEFAULT_DEVICE in the environment
	DefaultDevice string
	// Set via XCHAINER_MANAGED_DEVICES in the environment
	ManagedDevices int
	// Set via XCHAINER_NUM_THREADS in the environment
	NumThreads int
	// Set via XCHAINER_PARALLEL_THRESHOLD in the environment
	ParallelThreshold int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"XCHAINER_DEBUG":              {"XCHAINER_DEBUG", Debug, "Show additional debug information (e.g. XCHAINER_DEBUG=1)"},
		"XCHAINER_DEFAULT_DEVICE":     {"XCHAINER_DEFAULT_DEVICE", DefaultDevice, "Device used outside of a device session (default \"native:0\")"},
		"XCHAINER_MANAGED_DEVICES":    {"XCHAINER_MANAGED_DEVICES", ManagedDevices, "Number of managed-memory devices (default 1)"},
		"XCHAINER_NUM_THREADS":        {"XCHAINER_NUM_THREADS", NumThreads, "Worker limit for native kernels (default number of CPUs)"},
		"XCHAINER_PARALLEL_THRESHOLD": {"XCHAINER_PARALLEL_THRESHOLD", ParallelThreshold, "Element count at which native kernels run in parallel (default 4096)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	// default values
	DefaultDevice = "native:0"
	ManagedDevices = 1
	NumThreads = runtime.NumCPU()
	ParallelThreshold = 4096

	LoadConfig()
}

func LoadConfig() {
	if debug := clean("XCHAINER_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if dev := clean("XCHAINER_DEFAULT_DEVICE"); dev != "" {
		DefaultDevice = dev
	}

	if n := clean("XCHAINER_MANAGED_DEVICES"); n != "" {
		val, err := strconv.Atoi(n)
		if err != nil || val < 0 {
			klog.Errorf("invalid setting XCHAINER_MANAGED_DEVICES=%q, ignoring: %v", n, err)
		} else {
			ManagedDevices = val
		}
	}

	if n := clean("XCHAINER_NUM_THREADS"); n != "" {
		val, err := strconv.Atoi(n)
		if err != nil || val <= 0 {
			klog.Errorf("invalid setting XCHAINER_NUM_THREADS=%q, must be greater than zero", n)
		} else {
			NumThreads = val
		}
	}

	if n := clean("XCHAINER_PARALLEL_THRESHOLD"); n != "" {
		val, err := strconv.Atoi(n)
		if err != nil || val <= 0 {
			klog.Errorf("invalid setting XCHAINER_PARALLEL_THRESHOLD=%q, must be greater than zero", n)
		} else {
			ParallelThreshold = val
		}
	}
}
