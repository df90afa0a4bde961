package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxBodySize bounds request bodies. Switch configs run to a few hundred
// kilobytes.
const maxBodySize = 4 << 20

var schemaSources = map[string]string{
	"config.json": `{
		"type": "object",
		"properties": {
			"config":  {"type": "string"},
			"comment": {"type": "string", "maxLength": 512}
		},
		"required": ["config"],
		"additionalProperties": false
	}`,
	"generate.json": `{
		"type": "object",
		"properties": {
			"base":   {"type": "string"},
			"change": {"type": "string"}
		},
		"required": ["change"],
		"additionalProperties": false
	}`,
	"change.json": `{
		"type": "object",
		"properties": {
			"change": {"type": "string"}
		},
		"required": ["change"],
		"additionalProperties": false
	}`,
	"commit.json": `{
		"type": "object",
		"properties": {
			"change":  {"type": "string"},
			"comment": {"type": "string", "maxLength": 512}
		},
		"additionalProperties": false
	}`,
	"rollback.json": `{
		"type": "object",
		"properties": {
			"n":  {"type": "integer", "minimum": 0, "maximum": 1000},
			"id": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
}

var (
	configSchema   = mustCompile("config.json")
	generateSchema = mustCompile("generate.json")
	changeSchema   = mustCompile("change.json")
	commitSchema   = mustCompile("commit.json")
	rollbackSchema = mustCompile("rollback.json")
)

func mustCompile(name string) *jsonschema.Schema {
	url := "mem://xrcfg/" + name
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schemaSources[name])); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// decodeBody reads the request body, validates it against schema and
// decodes it into v. An empty body is treated as {}.
func decodeBody(r *http.Request, schema *jsonschema.Schema, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodySize {
		return fmt.Errorf("request body exceeds %d bytes", maxBodySize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid request: %s", schemaMessage(err))
	}
	return json.Unmarshal(data, v)
}

// schemaMessage flattens a validation error to its innermost causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
