package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSchemasDescribeMessages(t *testing.T) {
	dir := t.TempDir()
	schemas := buildSchemas()
	if len(schemas) != 2 {
		t.Fatalf("expected client and server schemas, got %d", len(schemas))
	}
	for name, schema := range schemas {
		if err := writeSchema(filepath.Join(dir, "nested", name), schema); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	server, err := os.ReadFile(filepath.Join(dir, "nested", "server_message.schema.json"))
	if err != nil {
		t.Fatalf("failed to read server schema: %v", err)
	}
	for _, want := range []string{"durationMs", "moveTooEarly", "Tilewalk Server Message"} {
		if !strings.Contains(string(server), want) {
			t.Fatalf("expected %q in server schema", want)
		}
	}

	client, err := os.ReadFile(filepath.Join(dir, "nested", "client_message.schema.json"))
	if err != nil {
		t.Fatalf("failed to read client schema: %v", err)
	}
	if !strings.Contains(string(client), "sentAt") {
		t.Fatalf("expected sentAt in client schema")
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "client_message.schema.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away")
	}
}
