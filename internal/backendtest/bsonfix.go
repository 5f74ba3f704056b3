// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// D re-exports bson.D so fixture call sites stay short.
type D = bson.D

// E re-exports bson.E.
type E = bson.E

// A re-exports bson.A.
type A = bson.A

// MarshalDoc encodes an ordered document, panicking on failure: fixture
// construction errors are programming mistakes in the test itself.
func MarshalDoc(doc D) []byte {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("backendtest: marshaling fixture: %v", err))
	}
	return raw
}

// DeviceDoc builds one device entry for a device-info document with the
// mandatory identity fields plus any extra fields appended verbatim.
func DeviceDoc(logicalID int32, uid, role string, connected bool, extra ...E) D {
	doc := D{
		{Key: "logical_id", Value: logicalID},
		{Key: "device_uid", Value: uid},
		{Key: "role", Value: role},
		{Key: "is_connected", Value: connected},
	}
	return append(doc, extra...)
}

// DeviceInfoDoc builds a device-info blob document from device entries
// keyed by position ("dev0", "dev1", ...).
func DeviceInfoDoc(devices ...D) []byte {
	var root D
	for i, device := range devices {
		root = append(root, E{Key: fmt.Sprintf("dev%d", i), Value: device})
	}
	return MarshalDoc(root)
}
