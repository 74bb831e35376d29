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

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/testutils"
)

func useFakeFS(t *testing.T, files map[string]string) *testutils.FakeFS {
	t.Helper()
	fs := testutils.NewFakeFS()
	for path, content := range files {
		fs.Files[path] = content
	}
	restore := gpufs.SetPlatform(fs)
	t.Cleanup(func() { gpufs.SetPlatform(restore) })
	return fs
}

func TestReadStrategyMissingFile(t *testing.T) {
	useFakeFS(t, nil)

	s, err := ReadStrategy(gpufs.StrategyConfigPath)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultStrategy(), s); diff != "" {
		t.Errorf("expected defaults (-want +got): %s", diff)
	}
}

func TestReadStrategy(t *testing.T) {
	useFakeFS(t, map[string]string{
		gpufs.StrategyConfigPath: `
margin: 20
downThreshold: 5
samplingIntervalMs: 16
aggressiveDown: true
loadStabilityThreshold: 2
adaptiveSampling:
  enabled: true
  minMs: 8
  maxMs: 160
dcsEnable: true
`,
	})

	s, err := ReadStrategy(gpufs.StrategyConfigPath)
	require.NoError(t, err)

	expected := &Strategy{
		Margin:                 20,
		DownThreshold:          5,
		SamplingIntervalMs:     16,
		AggressiveDown:         true,
		LoadStabilityThreshold: 2,
		AdaptiveSampling:       AdaptiveSampling{Enabled: true, MinMs: 8, MaxMs: 160},
		DcsEnable:              true,
	}
	if diff := cmp.Diff(expected, s); diff != "" {
		t.Errorf("unexpected strategy (-want +got): %s", diff)
	}
}

func TestReadStrategySanitize(t *testing.T) {
	useFakeFS(t, map[string]string{
		gpufs.StrategyConfigPath: `
margin: 150
downThreshold: 0
samplingIntervalMs: -1
adaptiveSampling:
  enabled: true
  minMs: 20
  maxMs: 10
`,
	})

	s, err := ReadStrategy(gpufs.StrategyConfigPath)
	require.NoError(t, err)

	def := DefaultStrategy()
	require.Equal(t, def.Margin, s.Margin)
	require.Equal(t, 1, s.DownThreshold)
	require.Equal(t, def.SamplingIntervalMs, s.SamplingIntervalMs)
	require.Equal(t, 20, s.AdaptiveSampling.MinMs)
	require.Equal(t, 20, s.AdaptiveSampling.MaxMs)
}

func TestReadStrategyMalformed(t *testing.T) {
	useFakeFS(t, map[string]string{
		gpufs.StrategyConfigPath: "margin: [not an int",
	})

	s, err := ReadStrategy(gpufs.StrategyConfigPath)
	require.Error(t, err)
	if diff := cmp.Diff(DefaultStrategy(), s); diff != "" {
		t.Errorf("expected defaults on parse failure (-want +got): %s", diff)
	}
}

func TestReadFreqTable(t *testing.T) {
	tcases := []struct {
		name          string
		content       string
		expectedFreqs []int64
		expectedError bool
	}{
		{
			name: "full columns with comments",
			content: "# freq volt ddr\n" +
				"218000 60000 999\n" +
				"450000 65000 999\n" +
				"700000 72500 0\n",
			expectedFreqs: []int64{218000, 450000, 700000},
		},
		{
			name:          "frequency-only lines",
			content:       "218000\n700000\n",
			expectedFreqs: []int64{218000, 700000},
		},
		{
			name:          "blank lines skipped",
			content:       "\n218000 60000\n\n",
			expectedFreqs: []int64{218000},
		},
		{
			name:          "empty table",
			content:       "# nothing here\n",
			expectedError: true,
		},
		{
			name:          "malformed frequency",
			content:       "218000\nbogus 60000\n",
			expectedError: true,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			useFakeFS(t, map[string]string{gpufs.FreqTablePath: tc.content})

			table, err := ReadFreqTable(gpufs.FreqTablePath)
			if tc.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expectedFreqs, table.Freqs()); diff != "" {
				t.Errorf("unexpected frequencies (-want +got): %s", diff)
			}
		})
	}
}

func TestReadFreqTableMissing(t *testing.T) {
	useFakeFS(t, nil)

	_, err := ReadFreqTable(gpufs.FreqTablePath)
	require.Error(t, err)
}
