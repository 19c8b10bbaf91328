package gojson

import (
	"io"

	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/jhump/protoc-gen-gojson/plugins"
)

// Builder builds JSON bindings from file descriptors. The plugin configures a
// Builder with Parameters.Configure, registers every file of the request with
// it, and then asks it to generate each module request.
type Builder interface {
	Configurer
	// Validate reports a configuration error, such as a malformed extern
	// path, even when there is nothing to generate.
	Validate() error
	// RegisterFile makes the given file available for resolving types.
	RegisterFile(fd *descriptorpb.FileDescriptorProto)
	// Generate returns the files generated for req.
	Generate(req *plugins.ModuleRequest) ([]*pluginpb.CodeGeneratorResponse_File, error)
}

// Generator adapts a Builder to the plugins.Generator interface.
type Generator struct {
	builder Builder
}

// NewGenerator returns a generator that uses b for every module request.
func NewGenerator(b Builder) *Generator {
	return &Generator{builder: b}
}

// Name implements plugins.Generator.
func (g *Generator) Name() string {
	return "gojson"
}

// Generate implements plugins.Generator. The builder's configuration is
// validated first, then module requests are generated in order and the first
// failure stops generation.
func (g *Generator) Generate(set *plugins.ModuleRequestSet, resp *plugins.CodeGenResponse) error {
	if err := g.builder.Validate(); err != nil {
		return err
	}
	for _, req := range set.Requests() {
		files, err := g.builder.Generate(req)
		if err != nil {
			return err
		}
		for _, f := range files {
			w := resp.OutputSnippet(f.GetName(), f.GetInsertionPoint())
			if _, err := io.WriteString(w, f.GetContent()); err != nil {
				return err
			}
		}
	}
	return nil
}
