// Command schema writes one JSON Schema file per wire message into a
// directory so client authors can validate what they send and receive.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

type document struct {
	file        string
	title       string
	description string
	value       any
}

var documents = []document{
	{
		file:        "action.schema.json",
		title:       "Client action",
		description: "One text frame sent by a player. Exactly one of MoveShip or AddBullet is present",
		value:       proto.ActionMessage{},
	},
	{
		file:        "ship.schema.json",
		title:       "Ship",
		description: "A ship as carried in the ships map of every snapshot",
		value:       sim.Ship{},
	},
	{
		file:        "bullet.schema.json",
		title:       "Bullet",
		description: "A bullet as carried in the bullets map of every snapshot",
		value:       sim.Bullet{},
	},
	{
		file:        "wire.schema.json",
		title:       "Arena wire protocol",
		description: "Client action frames and the per-tick snapshot tuple sent to every connection",
		value:       proto.WireTypes{},
	},
}

func main() {
	var outDir, only string
	flag.StringVar(&outDir, "out", "", "directory to write the schemas into")
	flag.StringVar(&only, "only", "", "write just the named schema file")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(2)
	}

	written, err := generate(outDir, only)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

func generate(outDir, only string) ([]string, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	var written []string
	for _, doc := range documents {
		if only != "" && doc.file != only {
			continue
		}
		schema := reflector.ReflectFromType(reflect.TypeOf(doc.value))
		schema.Title = doc.title
		schema.Description = doc.description

		path := filepath.Join(outDir, doc.file)
		if err := writeSchema(path, schema); err != nil {
			return written, fmt.Errorf("%s: %w", doc.file, err)
		}
		written = append(written, path)
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("unknown schema %q", only)
	}
	return written, nil
}

// writeSchema replaces path atomically so a reader never sees half a file.
func writeSchema(path string, schema *jsonschema.Schema) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
