// Command protoc-gen-gojson is a protoc plugin that generates JSON bindings
// (MarshalJSON and UnmarshalJSON methods) for the Go types generated by
// protoc-gen-go.
//
//	protoc --go_out=. --gojson_out=. example.proto
//
// See package github.com/jhump/protoc-gen-gojson/gojson for the parameters
// it accepts.
package main

import (
	"github.com/jhump/protoc-gen-gojson/app/protocgengojson"
)

func main() {
	protocgengojson.Main()
}
