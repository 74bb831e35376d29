// Copyright 2024 The Mali GPU Governor Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gpufs

// Kernel pseudo-files exposing GPU utilization, one set per reporting
// mechanism found across MTK/Mali driver generations.
const (
	// ModuleLoadPath is the GED module parameter reporting load directly.
	ModuleLoadPath = "/sys/module/ged/parameters/gpu_loading"
	// ModuleIdlePath is the GED module parameter reporting idle time.
	ModuleIdlePath = "/sys/module/ged/parameters/gpu_idle"
	// KernelLoadPath reports "<x> <y> <load>" via the GED HAL.
	KernelLoadPath = "/sys/kernel/ged/hal/gpu_utilization"
	// KernelDebugLoadPath is the debugfs variant, 3rd token is idle.
	KernelDebugLoadPath = "/sys/kernel/debug/ged/hal/gpu_utilization"
	// KernelDLoadPath is the same file on kernels mounting debugfs at /sys/kernel/d.
	KernelDLoadPath = "/sys/kernel/d/ged/hal/gpu_utilization"
	// ProcMaliLoadPath holds "key=value" utilization from the Mali driver.
	ProcMaliLoadPath = "/proc/mali/utilization"
	// ProcMtkLoadPath holds "ACTIVE=value" utilization from the MTK driver.
	ProcMtkLoadPath = "/proc/mtk_mali/utilization"
	// PreciseLoadPath holds busy/idle/protm cycle counters on line 2.
	PreciseLoadPath = "/sys/kernel/debug/mali0/dvfs_utilization"
	// PreciseLoadPathOld is the counter file location on older drivers.
	PreciseLoadPathOld = "/proc/mali/dvfs_utilization"
)

// v1 driver (gpufreq) files.
const (
	// VarDumpPath is the v1 state dump: current frequency, voltage and a
	// "gpu_loading = N" line.
	VarDumpPath = "/proc/gpufreq/gpufreq_var_dump"
	// OppDumpPath lists the v1 OPP table.
	OppDumpPath = "/proc/gpufreq/gpufreq_opp_dump"
	// V1VoltPath pins a frequency/voltage pair ("<freq> <volt>", "0 0" resets).
	V1VoltPath = "/proc/gpufreq/gpufreq_fixed_freq_volt"
	// V1OppPath pins an OPP frequency ("<freq>", "0" releases).
	V1OppPath = "/proc/gpufreq/gpufreq_opp_freq"
)

// v2 driver (gpufreqv2) files.
const (
	// V2Root existing is how a v2 driver generation is detected.
	V2Root = "/proc/gpufreqv2"
	// CurrentFreqPath reports the current frequency as the 2nd token of line 1.
	CurrentFreqPath = "/sys/kernel/ged/hal/current_freqency"
	// DebugCurrentFreqPath is the debugfs variant of CurrentFreqPath.
	DebugCurrentFreqPath = "/sys/kernel/debug/ged/hal/current_freqency"
	// WorkingOppPath lists the v2 OPP table with per-point voltages.
	WorkingOppPath = "/proc/gpufreqv2/gpu_working_opp"
	// V2VoltPath pins a frequency/voltage pair on v2 drivers.
	V2VoltPath = "/proc/gpufreqv2/fix_custom_freq_volt"
	// V2OppPath pins an OPP index ("-1" and "0" release in different ways).
	V2OppPath = "/proc/gpufreqv2/fix_target_opp_index"
)

// Governor-owned files under the persistent data directory.
const (
	// DataDir is the root of the governor's own configuration tree.
	DataDir = "/data/adb/gpu_governor"
	// FreqTablePath is the mandatory frequency/voltage/DRAM table.
	FreqTablePath = DataDir + "/config/gpu_freq_table.conf"
	// StrategyConfigPath is the optional strategy configuration.
	StrategyConfigPath = DataDir + "/config/config.yaml"
	// GameModePath toggles aggressive downscaling ("1"/"0").
	GameModePath = DataDir + "/game_mode"
	// LogLevelPath selects the logging verbosity (debug|info|warn|error).
	LogLevelPath = DataDir + "/log/log_level"
	// PidfilePath is the default location of the daemon PID file.
	PidfilePath = DataDir + "/gpu_governor.pid"
)
