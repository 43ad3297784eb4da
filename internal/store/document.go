package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a plain field/value map. On read it carries its identity under "id".
type Document map[string]any

// ID returns the identity reattached on read
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a shallow copy
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// WithID returns a copy carrying id
func (d Document) WithID(id string) Document {
	out := d.Clone()
	out["id"] = id
	return out
}

// Encode is the single serialization point for writes. It drops the identity
// field and every absent (null) top-level field, which the cloud store rejects.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return doc.Payload(), nil
}

// Payload returns the fields that are written to a store: no identity and
// no null values
func (d Document) Payload() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k == "id" || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Decode converts a document into a typed entity
func Decode[T any](doc Document) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode document %s: %w", doc.ID(), err)
	}
	return out, nil
}

// ParseDocument reads one JSON object keeping numbers exact
func ParseDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse document: not an object")
	}
	return doc, nil
}

// ParseDocuments reads a JSON array of objects keeping numbers exact
func ParseDocuments(raw []byte) ([]Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("parse documents: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}
