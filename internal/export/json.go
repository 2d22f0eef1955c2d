// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import "encoding/json"

// JSONExporter writes the whole transcript as indented JSON.
type JSONExporter struct{}

func (JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, ErrEmpty
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (JSONExporter) FileExtension() string { return ".json" }
