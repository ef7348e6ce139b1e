// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the inter-server message schema.
const SchemaID = "https://mue.dev/schemas/isc-message.schema.json"

var (
	compiledOnce   sync.Once
	compiledSchema *jschema.Schema
	compileErr     error
)

// GenerateSchema returns the JSON Schema of InterServerMessage.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&InterServerMessage{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Mue inter-server message"
	schema.Description = "Message exchanged between instances on the " + ControlChannel + " channel"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeBadMessage).Wrapf(err, "marshal schema")
	}
	return data, nil
}

func compiled() (*jschema.Schema, error) {
	compiledOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = oops.Code(CodeBadMessage).Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = oops.Code(CodeBadMessage).Wrapf(err, "add schema resource")
			return
		}
		compiledSchema, compileErr = c.Compile(SchemaID)
	})
	return compiledSchema, compileErr
}

func validateISC(data []byte) error {
	sch, err := compiled()
	if err != nil {
		return err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return oops.Code(CodeBadMessage).Wrapf(err, "invalid JSON")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code(CodeBadMessage).Wrapf(err, "schema validation failed")
	}
	return nil
}
