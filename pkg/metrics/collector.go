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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/governor"
)

// Prometheus metric descriptor indices and descriptor table
const (
	gpuFrequencyDesc = iota
	gpuVoltageDesc
	gpuIndexDesc
	gpuLoadDesc
	gpuIntervalDesc
	numDescriptors // descriptors total
)

var descriptors = [numDescriptors]*prometheus.Desc{
	gpuFrequencyDesc: prometheus.NewDesc(
		"gpu_frequency_khz",
		"Current GPU frequency in kHz",
		nil, nil,
	),
	gpuVoltageDesc: prometheus.NewDesc(
		"gpu_voltage_uv",
		"Current GPU voltage in microvolts",
		nil, nil,
	),
	gpuIndexDesc: prometheus.NewDesc(
		"gpu_frequency_index",
		"Current index into the frequency table",
		nil, nil,
	),
	gpuLoadDesc: prometheus.NewDesc(
		"gpu_load_percent",
		"Last sampled GPU load percentage",
		nil, nil,
	),
	gpuIntervalDesc: prometheus.NewDesc(
		"gpu_poll_interval_ms",
		"Active governor poll interval in milliseconds",
		nil, nil,
	),
}

type collector struct {
	state *governor.State
}

// NewCollector creates a Prometheus collector over the shared GPU state.
func NewCollector(state *governor.State) (prometheus.Collector, error) {
	return &collector{state: state}, nil
}

// Describe implements prometheus.Collector interface
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	freq, index, volt := c.state.Current()
	load, interval := c.state.Telemetry()

	ch <- prometheus.MustNewConstMetric(
		descriptors[gpuFrequencyDesc], prometheus.GaugeValue, float64(freq))
	ch <- prometheus.MustNewConstMetric(
		descriptors[gpuVoltageDesc], prometheus.GaugeValue, float64(volt))
	ch <- prometheus.MustNewConstMetric(
		descriptors[gpuIndexDesc], prometheus.GaugeValue, float64(index))
	ch <- prometheus.MustNewConstMetric(
		descriptors[gpuLoadDesc], prometheus.GaugeValue, float64(load))
	ch <- prometheus.MustNewConstMetric(
		descriptors[gpuIntervalDesc], prometheus.GaugeValue,
		float64(interval.Milliseconds()))
}
