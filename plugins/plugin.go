package plugins

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"
)

// SupportedFeatures is advertised to protoc in every response produced by a
// Pipeline.
const SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)

// Generator is a code generator that contributes files during a protoc
// invocation. Multiple generators can run during the same invocation; see
// Pipeline.
type Generator interface {
	// Name identifies the generator in error messages.
	Name() string
	// Generate produces code for the given requests, writing it to resp.
	Generate(set *ModuleRequestSet, resp *CodeGenResponse) error
}

// CodeGenResponse is how a generator transmits generated code to protoc.
type CodeGenResponse struct {
	generator string
	output    *outputList
}

// NewCodeGenResponse creates a new response for the named generator. If other
// is non-nil, files added to the returned response will be contributed to
// other.
func NewCodeGenResponse(generator string, other *CodeGenResponse) *CodeGenResponse {
	var output *outputList
	if other != nil {
		output = other.output
	} else {
		output = &outputList{}
	}
	return &CodeGenResponse{
		generator: generator,
		output:    output,
	}
}

// OutputSnippet returns a writer for creating the snippet to be stored in the
// given file name at the given insertion point. Snippets for the same file and
// insertion point are concatenated in the order they were created.
//
// A file (with no insertion point) can only be created once. A second attempt
// is recorded and fails the whole response; the returned writer then discards
// what is written to it.
func (resp *CodeGenResponse) OutputSnippet(name, insertionPoint string) io.Writer {
	var buf bytes.Buffer
	resp.output.addSnippet(resp.generator, name, insertionPoint, &buf)
	return &buf
}

// OutputFile returns a writer for creating the file with the given name.
func (resp *CodeGenResponse) OutputFile(name string) io.Writer {
	return resp.OutputSnippet(name, "")
}

// Files returns the generated files in the order they were first created.
func (resp *CodeGenResponse) Files() ([]*pluginpb.CodeGeneratorResponse_File, error) {
	return resp.output.collect()
}

type outputList struct {
	mu      sync.Mutex
	results []*output
	byKey   map[result]*output
	err     error
}

type result struct {
	name, insertionPoint string
}

type output struct {
	result
	snippets []data
}

type data struct {
	generator string
	contents  *bytes.Buffer
}

func (l *outputList) addSnippet(generator, name, insertionPoint string, contents *bytes.Buffer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := result{name: name, insertionPoint: insertionPoint}
	if l.byKey == nil {
		l.byKey = map[result]*output{}
	}
	out := l.byKey[key]
	if out == nil {
		out = &output{result: key}
		l.byKey[key] = out
		l.results = append(l.results, out)
	} else if insertionPoint == "" {
		// can only create one file per name, but can create multiple snippets
		// that will be concatenated together
		if l.err == nil {
			l.err = fmt.Errorf("file %s already opened for writing by generator %s", name, out.snippets[0].generator)
		}
		return
	}
	out.snippets = append(out.snippets, data{generator: generator, contents: contents})
}

func (l *outputList) collect() ([]*pluginpb.CodeGeneratorResponse_File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	files := make([]*pluginpb.CodeGeneratorResponse_File, 0, len(l.results))
	for _, out := range l.results {
		genFile := pluginpb.CodeGeneratorResponse_File{
			Name: proto.String(out.name),
		}
		if out.insertionPoint != "" {
			genFile.InsertionPoint = proto.String(out.insertionPoint)
		}
		var contents bytes.Buffer
		for _, d := range out.snippets {
			contents.Write(d.contents.Bytes())
		}
		genFile.Content = proto.String(contents.String())
		files = append(files, &genFile)
	}
	return files, nil
}

// Pipeline is an ordered list of generators whose outputs are combined into a
// single response.
type Pipeline []Generator

// Response runs every generator in the pipeline against set and assembles
// their files into one response, in pipeline order. Generators run
// concurrently, so they must treat set as read-only. If any generator fails,
// the response carries only the error of the first failing generator (in
// pipeline order).
func (p Pipeline) Response(set *ModuleRequestSet) *pluginpb.CodeGeneratorResponse {
	resps := make([]*CodeGenResponse, len(p))
	errs := make([]error, len(p))
	var grp errgroup.Group
	for i, gen := range p {
		i, gen := i, gen
		resps[i] = NewCodeGenResponse(gen.Name(), nil)
		grp.Go(func() error {
			errs[i] = gen.Generate(set, resps[i])
			return errs[i]
		})
	}
	_ = grp.Wait()
	for _, err := range errs {
		if err != nil {
			return ErrorResponse(err)
		}
	}

	// merge in pipeline order, so files are reported in a stable order and
	// duplicates across generators are caught
	merged := NewCodeGenResponse("", nil)
	for _, resp := range resps {
		resp.output.mu.Lock()
		for _, out := range resp.output.results {
			for _, d := range out.snippets {
				merged.output.addSnippet(d.generator, out.name, out.insertionPoint, d.contents)
			}
		}
		err := resp.output.err
		resp.output.mu.Unlock()
		if err != nil {
			return ErrorResponse(err)
		}
	}
	files, err := merged.Files()
	if err != nil {
		return ErrorResponse(err)
	}
	return &pluginpb.CodeGeneratorResponse{
		SupportedFeatures: proto.Uint64(SupportedFeatures),
		File:              files,
	}
}

// ErrorResponse returns a response that reports err to protoc. The message is
// the error's text, unchanged.
func ErrorResponse(err error) *pluginpb.CodeGeneratorResponse {
	return &pluginpb.CodeGeneratorResponse{
		SupportedFeatures: proto.Uint64(SupportedFeatures),
		Error:             proto.String(err.Error()),
	}
}
