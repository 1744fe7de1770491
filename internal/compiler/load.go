package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/tabula/internal/ir"
)

const schemaFile = "schema.cue"

//go:embed schema.cue
var schemaSource string

// Format is the encoding of a game definition document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported game definition extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// LoadGameDef reads, validates and decodes a game definition file.
func LoadGameDef(path string) (*ir.GameDef, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game definition: %w", err)
	}
	return ParseGameDef(path, data, format)
}

// ParseGameDef validates and decodes a game definition document. Source
// names the document in diagnostics.
func ParseGameDef(source string, data []byte, format Format) (*ir.GameDef, error) {
	ctx := cuecontext.New()
	var v cue.Value
	switch format {
	case FormatJSON:
		expr, err := cuejson.Extract(source, data)
		if err != nil {
			return nil, &InputError{Source: source, ReceivedType: "string", Cause: err}
		}
		v = ctx.BuildExpr(expr)
	case FormatYAML:
		f, err := cueyaml.Extract(source, data)
		if err != nil {
			return nil, &InputError{Source: source, ReceivedType: "string", Cause: err}
		}
		v = ctx.BuildFile(f)
	case FormatCUE:
		v = ctx.CompileBytes(data, cue.Filename(source))
	default:
		return nil, fmt.Errorf("unsupported game definition format %q", format)
	}
	return check(ctx, source, v)
}

// ValidateGameDefInput validates an already-decoded document, such as the
// result of json.Unmarshal into any. Anything but an object is rejected
// with its received type.
func ValidateGameDefInput(source string, input any) (*ir.GameDef, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, &InputError{Source: source, ReceivedType: fmt.Sprintf("%T", input), Cause: err}
	}
	ctx := cuecontext.New()
	expr, err := cuejson.Extract(source, data)
	if err != nil {
		return nil, &InputError{Source: source, ReceivedType: fmt.Sprintf("%T", input), Cause: err}
	}
	return check(ctx, source, ctx.BuildExpr(expr))
}

// check runs the schema, the decoder and the cross-reference checks in
// that order; each stage only runs when the previous one passed.
func check(ctx *cue.Context, source string, v cue.Value) (*ir.GameDef, error) {
	if err := v.Err(); err != nil {
		return nil, &InputError{Source: source, ReceivedType: "string", Cause: err}
	}
	received := receivedType(v)
	if received != "object" {
		return nil, &InputError{
			Source:       source,
			ReceivedType: received,
			Diagnostics: []Diagnostic{{
				Code:    ErrSchema,
				Message: fmt.Sprintf("game definition must be an object, got %s", received),
			}},
		}
	}

	schema := ctx.CompileString(schemaSource, cue.Filename(schemaFile))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile game definition schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#GameDef")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &InputError{Source: source, ReceivedType: received, Diagnostics: cueDiagnostics(err)}
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, &InputError{Source: source, ReceivedType: received, Cause: err}
	}
	var def ir.GameDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, &InputError{Source: source, ReceivedType: received, Cause: fmt.Errorf("decode game definition: %w", err)}
	}
	if diags := Validate(&def); len(diags) > 0 {
		return nil, &InputError{Source: source, ReceivedType: received, Diagnostics: diags}
	}

	if warnings := AnalyzeTriggerCycles(&def); len(warnings) > 0 {
		for _, w := range warnings {
			slog.Warn("trigger cycle", "game", def.ID, "path", strings.Join(w.Path, " -> "))
		}
	}
	slog.Debug("game definition loaded", "source", source, "game", def.ID, "actions", len(def.Actions))
	return &def, nil
}

// receivedType names the kind of a document the way JSON does.
func receivedType(v cue.Value) string {
	switch v.IncompleteKind() {
	case cue.StructKind:
		return "object"
	case cue.ListKind:
		return "array"
	case cue.StringKind, cue.BytesKind:
		return "string"
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return "number"
	case cue.BoolKind:
		return "boolean"
	case cue.NullKind:
		return "null"
	default:
		return v.IncompleteKind().String()
	}
}
