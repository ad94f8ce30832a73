package graphio

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
)

// decodeFile parses and decodes a single HCL graph file.
func decodeFile(ctx context.Context, parser *hclparse.Parser, filePath string) (*fileSpec, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding graph file.", "path", filePath)
	file, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filePath, diags.Error())
	}
	return decodeBody(ctx, file, filePath)
}

// decodeSource is decodeFile for in-memory content.
func decodeSource(ctx context.Context, parser *hclparse.Parser, src []byte, filename string) (*fileSpec, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}
	return decodeBody(ctx, file, filename)
}

func decodeBody(ctx context.Context, file *hcl.File, filename string) (*fileSpec, error) {
	var spec fileSpec
	if diags := gohcl.DecodeBody(file.Body, nil, &spec); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	ctxlog.FromContext(ctx).Debug("Successfully decoded graph file.", "path", filename,
		"inputs_found", len(spec.Inputs), "operators_found", len(spec.Operators), "outputs_found", len(spec.Outputs))
	return &spec, nil
}
