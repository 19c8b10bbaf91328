// Package protocgengojson implements the protoc-gen-gojson plugin logic.
package protocgengojson

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/jhump/protoc-gen-gojson/gojson"
	"github.com/jhump/protoc-gen-gojson/jsonbuild"
	"github.com/jhump/protoc-gen-gojson/plugins"
)

const pluginName = "protoc-gen-gojson"

var (
	// can be replaced by -X linker flags
	version = "dev build <no version set>"
	commit  = "unknown"
	date    = "unknown"

	usageMsg = `This command is meant to be used as a plug-in to protoc, but supports minimal direct invocation.

Plug-in Usage: protoc --gojson_out=[PARAMETERS:]path/to/output ./example.proto
	- Generates JSON bindings for the Go types generated from ./example.proto.
	  See the package documentation of github.com/jhump/protoc-gen-gojson/gojson
	  for the supported parameters.

Direct Usage: protoc-gen-gojson [version|help]
	- version: writes the version, commit hash and build date to stdout
	- help:    shows this help message
`
)

// newBuilder creates the bindings builder for one invocation.
var newBuilder = func() gojson.Builder {
	return jsonbuild.NewBuilder()
}

// Main is the entrypoint for the program.
func Main() {
	output := os.Stdout

	// We need to be strict about what goes to stdout: only the plugin response.
	// So if any code accidentally tries to print to stdout, let's have it go to
	// stderr instead.
	os.Stdout = os.Stderr

	os.Exit(Run(os.Args, os.Stdin, output, os.Stderr))
}

// Run runs the program and returns the exit code. Without arguments it runs
// as a protoc plugin, reading the request from stdin and writing the response
// to stdout.
func Run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) <= 1 {
		if err := RunPlugin(stdin, stdout); err != nil {
			log.New(stderr, pluginName+": ", 0).Println(err)
			return 1
		}
		return 0
	}

	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "version":
			_, _ = fmt.Fprintf(stdout, "%s version: %s, commit: %s, date: %s\n", pluginName, version, commit, date)
			return 0
		case "help":
			_, _ = fmt.Fprint(stdout, usageMsg)
			return 0
		}
	}
	_, _ = fmt.Fprint(stderr, usageMsg)
	return 2
}

// RunPlugin reads a code gen request from in and writes the response to out.
// Problems with the request, its parameters or code generation are reported
// to protoc inside the response, so the returned error is non-nil only when
// the request cannot be read or the response cannot be written.
func RunPlugin(in io.Reader, out io.Writer) error {
	reqBytes, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "failed to read code gen request")
	}
	b, err := proto.Marshal(Respond(reqBytes))
	if err != nil {
		return errors.Wrap(err, "failed to encode code gen response")
	}
	if _, err := out.Write(b); err != nil {
		return errors.Wrap(err, "failed to write code gen response")
	}
	return nil
}

// Respond computes the response to the encoded code gen request in reqBytes.
func Respond(reqBytes []byte) *pluginpb.CodeGeneratorResponse {
	var req pluginpb.CodeGeneratorRequest
	if err := proto.Unmarshal(reqBytes, &req); err != nil {
		return plugins.ErrorResponse(errors.Wrap(err, "failed to decode code gen request"))
	}

	params, err := gojson.ParseParameters(req.GetParameter())
	if err != nil {
		return plugins.ErrorResponse(err)
	}
	builder := newBuilder()
	params.Configure(builder)
	for _, fd := range req.GetProtoFile() {
		builder.RegisterFile(fd)
	}

	set, err := plugins.NewModuleRequestSet(req.GetFileToGenerate(), req.GetProtoFile(), params.DefaultPackageFilename())
	if err != nil {
		return plugins.ErrorResponse(err)
	}
	return plugins.Pipeline{gojson.NewGenerator(builder)}.Response(set)
}
