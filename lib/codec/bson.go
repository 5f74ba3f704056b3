// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// MaxDepth is the deepest nesting of documents and arrays the validator
// accepts. The backend never produces deeper structures; anything deeper
// in shared memory or on the stream is treated as corrupt.
const MaxDepth = 16

// MinDocumentSize is the smallest possible BSON document: a length
// prefix and the terminating NUL.
const MinDocumentSize = 5

// Document is a raw BSON document. Type alias so consumers import only
// lib/codec, not the mongo-driver packages directly.
type Document = bsoncore.Document

// Value is a raw BSON value.
type Value = bsoncore.Value

// Element is a raw BSON document element (key plus value).
type Element = bsoncore.Element

// Array is a raw BSON array.
type Array = bsoncore.Array

// DocumentSize reads the total size of the document beginning at buf.
// Every BSON document starts with its full size as a signed 32-bit
// little-endian integer, which is what makes the command stream
// self-framing. Returns false when buf holds fewer than 4 bytes or the
// announced size is impossibly small.
func DocumentSize(buf []byte) (int32, bool) {
	if len(buf) < 4 {
		return 0, false
	}
	size := int32(binary.LittleEndian.Uint32(buf))
	if size < MinDocumentSize {
		return 0, false
	}
	return size, true
}

// Validate structurally checks a BSON document: the length prefix must
// match the buffer, every nested length must be internally consistent,
// every document must end with a NUL byte, and nesting must not exceed
// MaxDepth.
func Validate(data []byte) error {
	size, ok := DocumentSize(data)
	if !ok || int(size) != len(data) {
		return fmt.Errorf("codec: document size prefix %d does not match buffer length %d", size, len(data))
	}
	doc := bsoncore.Document(data)
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("codec: invalid document: %w", err)
	}
	if data[len(data)-1] != 0 {
		return fmt.Errorf("codec: document missing NUL terminator")
	}
	return validateDepth(doc, 1)
}

func validateDepth(doc bsoncore.Document, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("codec: document nesting exceeds depth %d", MaxDepth)
	}
	elements, err := doc.Elements()
	if err != nil {
		return fmt.Errorf("codec: invalid document at depth %d: %w", depth, err)
	}
	for _, element := range elements {
		value := element.Value()
		switch value.Type {
		case bsontype.EmbeddedDocument:
			sub, ok := value.DocumentOK()
			if !ok {
				return fmt.Errorf("codec: malformed subdocument %q", element.Key())
			}
			if err := validateDepth(sub, depth+1); err != nil {
				return err
			}
		case bsontype.Array:
			sub, ok := value.ArrayOK()
			if !ok {
				return fmt.Errorf("codec: malformed array %q", element.Key())
			}
			if err := validateDepth(bsoncore.Document(sub), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Diagnose renders a document as canonical extended JSON for logs and
// debugging output.
func Diagnose(data []byte) (string, error) {
	out, err := bson.MarshalExtJSON(bson.Raw(data), true, false)
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	return string(out), nil
}

// Builder wrappers used by the command channel. These keep element order
// exactly as appended, which the wire format requires (the type tag
// element must come first in every request).

// AppendDocumentStart begins a document and returns the index used to
// patch its length in AppendDocumentEnd.
func AppendDocumentStart(dst []byte) (int32, []byte) {
	return bsoncore.AppendDocumentStart(dst)
}

// AppendDocumentEnd terminates a document begun at index and back-fills
// its length prefix.
func AppendDocumentEnd(dst []byte, index int32) ([]byte, error) {
	return bsoncore.AppendDocumentEnd(dst, index)
}

// AppendDocumentElementStart begins a subdocument element under key.
func AppendDocumentElementStart(dst []byte, key string) (int32, []byte) {
	return bsoncore.AppendDocumentElementStart(dst, key)
}

// AppendArrayElementStart begins an array element under key.
func AppendArrayElementStart(dst []byte, key string) (int32, []byte) {
	return bsoncore.AppendArrayElementStart(dst, key)
}

// AppendArrayEnd terminates an array begun at index.
func AppendArrayEnd(dst []byte, index int32) ([]byte, error) {
	return bsoncore.AppendArrayEnd(dst, index)
}

// AppendInt32Element appends key: int32.
func AppendInt32Element(dst []byte, key string, value int32) []byte {
	return bsoncore.AppendInt32Element(dst, key, value)
}

// AppendInt64Element appends key: int64.
func AppendInt64Element(dst []byte, key string, value int64) []byte {
	return bsoncore.AppendInt64Element(dst, key, value)
}

// AppendDoubleElement appends key: float64.
func AppendDoubleElement(dst []byte, key string, value float64) []byte {
	return bsoncore.AppendDoubleElement(dst, key, value)
}

// AppendStringElement appends key: string.
func AppendStringElement(dst []byte, key string, value string) []byte {
	return bsoncore.AppendStringElement(dst, key, value)
}

// AppendBooleanElement appends key: bool.
func AppendBooleanElement(dst []byte, key string, value bool) []byte {
	return bsoncore.AppendBooleanElement(dst, key, value)
}

// AppendBinaryElement appends key: binary (subtype 0).
func AppendBinaryElement(dst []byte, key string, value []byte) []byte {
	return bsoncore.AppendBinaryElement(dst, key, 0x00, value)
}

// AppendDocumentElement appends key: an already-encoded document.
func AppendDocumentElement(dst []byte, key string, doc Document) []byte {
	return bsoncore.AppendDocumentElement(dst, key, doc)
}
