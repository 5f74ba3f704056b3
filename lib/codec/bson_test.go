// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"strings"
	"testing"
)

// buildFlat builds {key: "value"} through the builder wrappers.
func buildFlat(t *testing.T, key, value string) []byte {
	t.Helper()
	index, doc := AppendDocumentStart(nil)
	doc = AppendStringElement(doc, key, value)
	doc, err := AppendDocumentEnd(doc, index)
	if err != nil {
		t.Fatalf("AppendDocumentEnd: %v", err)
	}
	return doc
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	doc := buildFlat(t, "name", "wheelbase")
	if err := Validate(doc); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsSizeMismatch(t *testing.T) {
	doc := buildFlat(t, "name", "wheelbase")
	if err := Validate(doc[:len(doc)-1]); err == nil {
		t.Error("Validate accepted a truncated document")
	}
	doc[0] = byte(len(doc) + 4)
	if err := Validate(doc); err == nil {
		t.Error("Validate accepted a document with an oversized length prefix")
	}
}

func TestValidateRejectsMissingTerminator(t *testing.T) {
	doc := buildFlat(t, "k", "v")
	doc[len(doc)-1] = 0xff
	if err := Validate(doc); err == nil {
		t.Error("Validate accepted a document without NUL terminator")
	}
}

func TestValidateRejectsTooShort(t *testing.T) {
	if err := Validate([]byte{4, 0, 0, 0}); err == nil {
		t.Error("Validate accepted a 4-byte buffer")
	}
}

func TestValidateDepthBound(t *testing.T) {
	// Nest exactly MaxDepth documents: valid.
	build := func(depth int) []byte {
		indexes := make([]int32, 0, depth)
		var doc []byte
		var index int32
		index, doc = AppendDocumentStart(nil)
		indexes = append(indexes, index)
		for i := 1; i < depth; i++ {
			index, doc = AppendDocumentElementStart(doc, "sub")
			indexes = append(indexes, index)
		}
		doc = AppendInt32Element(doc, "leaf", 1)
		for i := len(indexes) - 1; i >= 0; i-- {
			var err error
			doc, err = AppendDocumentEnd(doc, indexes[i])
			if err != nil {
				t.Fatalf("AppendDocumentEnd: %v", err)
			}
		}
		return doc
	}

	if err := Validate(build(MaxDepth)); err != nil {
		t.Errorf("Validate rejected depth %d: %v", MaxDepth, err)
	}
	err := Validate(build(MaxDepth + 1))
	if err == nil {
		t.Fatalf("Validate accepted depth %d", MaxDepth+1)
	}
	if !strings.Contains(err.Error(), "depth") {
		t.Errorf("error does not mention depth: %v", err)
	}
}

func TestDocumentSize(t *testing.T) {
	doc := buildFlat(t, "k", "v")
	size, ok := DocumentSize(doc)
	if !ok || int(size) != len(doc) {
		t.Errorf("DocumentSize = %d, %v; want %d, true", size, ok, len(doc))
	}

	if _, ok := DocumentSize([]byte{1, 2}); ok {
		t.Error("DocumentSize accepted a 2-byte buffer")
	}
	if _, ok := DocumentSize([]byte{3, 0, 0, 0}); ok {
		t.Error("DocumentSize accepted an impossible document size")
	}
}

func TestDiagnose(t *testing.T) {
	doc := buildFlat(t, "role", "brake_pedal")
	out, err := Diagnose(doc)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(out, "brake_pedal") {
		t.Errorf("Diagnose output %q missing value", out)
	}
}
