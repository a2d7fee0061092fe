// Package cpuspec reports the host CPU so audio underruns can be matched
// against the hardware in logs.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/osci-render/osci-go/internal/logger"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
	Hybrid        bool // performance and efficiency cores
	Usable        int  // CPUs the Go scheduler may use
}

// GetCPUSpec describes the CPU the process runs on
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		Hybrid:        cpuid.CPU.Supports(cpuid.HYBRID_CPU),
		Usable:        runtime.GOMAXPROCS(0),
	}
}

// Fields returns the spec as structured log fields
func (c CPUSpec) Fields() []logger.Field {
	brand := c.BrandName
	if brand == "" {
		brand = "unknown"
	}
	return []logger.Field{
		logger.String("cpu", brand),
		logger.Int("physical_cores", c.PhysicalCores),
		logger.Int("logical_cores", c.LogicalCores),
		logger.Bool("hybrid", c.Hybrid),
		logger.Int("gomaxprocs", c.Usable),
	}
}
