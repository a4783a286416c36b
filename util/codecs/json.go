// Copyright (C) 2021-2024 The go-vrrb Authors
// This file is part of go-vrrb
//
// go-vrrb is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-vrrb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-vrrb.  If not, see <https://www.gnu.org/licenses/>.

package codecs

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/vrrb-io/go-vrrb/util"
)

// NewFormattedJSONEncoder returns a json encoder configured for
// pretty-printed output (human-readable)
func NewFormattedJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	return enc
}

// LoadObjectFromFile implements the common pattern for loading an instance
// of an object from a json file. Fields missing from the file keep the values
// already present in object.
func LoadObjectFromFile(filename string, object interface{}) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	err = dec.Decode(object)
	return
}

// SaveObjectToFile implements the common pattern for saving an object to a file as json.
// The file is replaced atomically.
func SaveObjectToFile(filename string, object interface{}, prettyFormat bool) error {
	var buf bytes.Buffer
	var enc *json.Encoder
	if prettyFormat {
		enc = NewFormattedJSONEncoder(&buf)
	} else {
		enc = json.NewEncoder(&buf)
	}
	if err := enc.Encode(object); err != nil {
		return err
	}
	return util.WriteFileAtomic(filename, buf.Bytes(), 0644)
}
