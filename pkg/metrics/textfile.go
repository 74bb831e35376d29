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
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteTextfile gathers all metric families and writes them to path in the
// text exposition format, the way node-exporter textfile collectors expect.
// The file is replaced atomically so a concurrent scrape never sees a
// partial write.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "failed to encode metric family %s", mf.GetName())
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create metrics file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write metrics file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write metrics file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to replace metrics file")
}
