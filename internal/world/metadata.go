// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/oops"
)

// Metadata field names as stored in the meta hash.
const (
	FieldName         = "name"
	FieldCreator      = "creator"
	FieldParent       = "parent"
	FieldLocation     = "location"
	FieldPasswordHash = "password_hash"
	FieldTarget       = "target"
)

// MetaRecord is an immutable metadata snapshot for some object kind.
// Mutations produce a new record; callers never edit one in place.
type MetaRecord interface {
	// Base returns the attributes shared by every kind.
	Base() Metadata
	// WithBase returns a copy with the shared attributes replaced.
	WithBase(Metadata) MetaRecord
	// Fields flattens the record into its stored hash form.
	// Unassigned IDs and empty strings are omitted.
	Fields() map[string]string
}

// Metadata holds the attributes shared by all object kinds.
type Metadata struct {
	Name     string   `mapstructure:"name"`
	Creator  ObjectID `mapstructure:"creator"`
	Parent   ObjectID `mapstructure:"parent"`
	Location ObjectID `mapstructure:"location"`
}

// Base implements MetaRecord.
func (m Metadata) Base() Metadata { return m }

// WithBase implements MetaRecord.
func (m Metadata) WithBase(b Metadata) MetaRecord { return b }

// Fields implements MetaRecord.
func (m Metadata) Fields() map[string]string {
	out := make(map[string]string, 4)
	putString(out, FieldName, m.Name)
	putID(out, FieldCreator, m.Creator)
	putID(out, FieldParent, m.Parent)
	putID(out, FieldLocation, m.Location)
	return out
}

// PlayerMetadata adds the password hash to the shared attributes.
type PlayerMetadata struct {
	Metadata     `mapstructure:",squash"`
	PasswordHash string `mapstructure:"password_hash"`
}

// WithBase implements MetaRecord.
func (m PlayerMetadata) WithBase(b Metadata) MetaRecord {
	m.Metadata = b
	return m
}

// Fields implements MetaRecord.
func (m PlayerMetadata) Fields() map[string]string {
	out := m.Metadata.Fields()
	putString(out, FieldPasswordHash, m.PasswordHash)
	return out
}

// ActionMetadata adds an optional target to the shared attributes.
type ActionMetadata struct {
	Metadata `mapstructure:",squash"`
	Target   ObjectID `mapstructure:"target"`
}

// WithBase implements MetaRecord.
func (m ActionMetadata) WithBase(b Metadata) MetaRecord {
	m.Metadata = b
	return m
}

// Fields implements MetaRecord.
func (m ActionMetadata) Fields() map[string]string {
	out := m.Metadata.Fields()
	putID(out, FieldTarget, m.Target)
	return out
}

// metaSchemas maps each kind to the decoder for its metadata shape.
var metaSchemas = map[Kind]func(map[string]string) (MetaRecord, error){
	KindRoom:   decodeMeta[Metadata],
	KindPlayer: decodeMeta[PlayerMetadata],
	KindItem:   decodeMeta[Metadata],
	KindScript: decodeMeta[Metadata],
	KindAction: decodeMeta[ActionMetadata],
}

// DecodeMetadata rebuilds the metadata record for kind from its stored hash.
func DecodeMetadata(kind Kind, fields map[string]string) (MetaRecord, error) {
	decode, ok := metaSchemas[kind]
	if !ok {
		return nil, oops.Code(CodeMetaDecode).With("kind", kind.String()).Errorf("no metadata schema for kind")
	}
	return decode(fields)
}

func decodeMeta[T MetaRecord](fields map[string]string) (MetaRecord, error) {
	var md T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &md,
	})
	if err != nil {
		return nil, oops.Code(CodeMetaDecode).Wrap(err)
	}
	if err := dec.Decode(fields); err != nil {
		return nil, oops.Code(CodeMetaDecode).With("fields", fields).Wrap(err)
	}
	return md, nil
}

func putString(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putID(m map[string]string, key string, id ObjectID) {
	if id.IsAssigned() {
		m[key] = id.ID()
	}
}
