package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Output string // output file path
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the YAML source format",
		Long: `Print a JSON Schema (draft 2020-12) describing YAML graph sources:
top-level graph, template and contract mappings keyed by name.

Editors that understand JSON Schema can use it to complete and check
source files. The schema covers structure only; run validate for the
checks that need registries.

Examples:
  graphcfg schema
  graphcfg schema -o graphcfg.schema.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := json.MarshalIndent(SourceSchema(), "", "  ")
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output == "" {
		fmt.Fprintln(formatter.Writer, string(data))
		return nil
	}
	if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
		return commandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"output": opts.Output})
	}
	formatter.Pass("Wrote schema to %s", opts.Output)
	return nil
}

// edgePattern matches "name", "TAG:name" and "TAG:index:name".
const edgePattern = `^([A-Z_][A-Z0-9_]*:([0-9]+:)?)?[A-Za-z_][A-Za-z0-9_]*$`

// SourceSchema returns the JSON Schema of a YAML source document.
// Every call builds a fresh tree.
func SourceSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		Title:       "graphcfg source",
		Description: "Graph, template and contract declarations keyed by name.",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"graph": {
				Type:                 "object",
				Description:          "Top-level graphs.",
				AdditionalProperties: graphSchema(),
			},
			"template": {
				Type:                 "object",
				Description:          "Subgraph templates, keyed by the type nodes use to instantiate them.",
				AdditionalProperties: graphSchema(),
			},
			"contract": {
				Type:                 "object",
				Description:          "Calculator port declarations.",
				AdditionalProperties: contractSchema(),
			},
		},
		AdditionalProperties: closed(),
	}
}

func graphSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"package":            {Type: "string"},
			"type":               {Type: "string"},
			"node":               {Type: "array", Items: nodeSchema()},
			"input_stream":       edgeList(),
			"output_stream":      edgeList(),
			"input_side_packet":  edgeList(),
			"output_side_packet": edgeList(),
			"executor":           {Type: "array", Items: executorSchema()},
			"num_threads":        {Type: "integer"},
			"max_queue_size":     {Type: "integer"},
		},
		AdditionalProperties: closed(),
	}
}

func nodeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":               {Type: "string"},
			"calculator":         {Type: "string", MinLength: ptr(1)},
			"input_stream":       edgeList(),
			"output_stream":      edgeList(),
			"input_side_packet":  edgeList(),
			"output_side_packet": edgeList(),
			"input_stream_info": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"tag_index": {Type: "string"},
						"back_edge": {Type: "boolean"},
					},
					Required:             []string{"tag_index"},
					AdditionalProperties: closed(),
				},
			},
			"executor": {Type: "string"},
			"options":  optionsSchema(),
		},
		Required:             []string{"calculator"},
		AdditionalProperties: closed(),
	}
}

func executorSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":    {Type: "string"},
			"type":    {Type: "string"},
			"options": optionsSchema(),
		},
		AdditionalProperties: closed(),
	}
}

func contractSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":               {Type: "string"},
			"input_stream":       portList(),
			"output_stream":      portList(),
			"input_side_packet":  portList(),
			"output_side_packet": portList(),
		},
		AdditionalProperties: closed(),
	}
}

func portList() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tag":       {Type: "string"},
				"type":      {Type: "string"},
				"optional":  {Type: "boolean"},
				"variadic":  {Type: "boolean"},
				"back_edge": {Type: "boolean"},
			},
			AdditionalProperties: closed(),
		},
	}
}

func edgeList() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "string", Pattern: edgePattern},
	}
}

func optionsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Types: []string{"string", "number", "boolean"}},
	}
}

// closed is the schema no value satisfies.
func closed() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func ptr[T any](v T) *T { return &v }
