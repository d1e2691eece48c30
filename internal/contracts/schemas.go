package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	SyncRunCompletedEvent = "SyncRunCompletedEvent"
	SyncCommand           = "SyncCommand"
	Version1              = "1.0.0"
)

//go:embed schemas
var schemaFS embed.FS

// ключ - "тип/версия", значение - путь внутри schemaFS
var schemaFiles = map[string]string{
	SyncRunCompletedEvent + "/" + Version1: "schemas/events/sync-run-completed/v1.json",
	SyncCommand + "/" + Version1:           "schemas/commands/sync-command/v1.json",
}

var compiledSchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	compiled := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for key, path := range schemaFiles {
		raw, err := schemaFS.ReadFile(path)
		if err != nil {
			panic(fmt.Sprintf("contracts: schema %s is not embedded: %v", path, err))
		}
		url := "mem://" + path
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			panic(fmt.Sprintf("contracts: failed to add schema %s: %v", path, err))
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("contracts: failed to compile schema %s: %v", path, err))
		}
		compiled[key] = schema
	}
	return compiled
}

// ValidateEvent проверяет тело сообщения по схеме его типа и версии
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	schema, ok := compiledSchemas[eventType+"/"+eventVersion]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, eventVersion)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
