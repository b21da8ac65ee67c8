// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for working with stanza attributes.
package attr // import "mellium.im/muc/internal/attr"

import (
	"encoding/xml"

	"github.com/google/uuid"
)

// Get returns the value of the first attribute with the provided local name
// from a list of attributes or an empty string if no such attribute exists.
func Get(attr []xml.Attr, local string) string {
	for _, a := range attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// RandomID generates a new stanza identifier.
// Identifiers are random (version 4) UUIDs so that they never collide while a
// request is outstanding.
// If the OS's entropy pool is unavailable RandomID panics.
func RandomID() string {
	return uuid.NewString()
}
