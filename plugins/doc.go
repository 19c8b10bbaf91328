// Package plugins contains the pieces that protoc plugins written in Go share,
// independent of what code they generate.
//
// # Generators and Pipelines
//
// A plugin is built from one or more generators. Each generator implements
// the Generator interface and writes its files to a CodeGenResponse:
//
//	func (g *myGenerator) Generate(set *plugins.ModuleRequestSet, resp *plugins.CodeGenResponse) error {
//	    for _, req := range set.Requests() {
//	        w := resp.OutputFile(req.OutputFilename(".pb.my.go"))
//	        // ...
//	        // Write code for req.Files to w
//	        // ...
//	    }
//	    return nil
//	}
//
// A Pipeline runs its generators and combines their files into a single
// protoc response, or into an error response if any of them fails.
//
// # Module Requests
//
// The files that protoc asks a plugin to generate are grouped into module
// requests: files that share a proto package and a Go package. GoNames
// computes the Go packages and type names that protoc-gen-go uses, so that
// generated code can refer to them.
package plugins
