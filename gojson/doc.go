// Package gojson contains the configuration and generator glue for the
// protoc-gen-gojson plugin, which generates JSON bindings for Go protobuf
// types.
//
// # Plugin Parameters
//
// The plugin is configured by the parameter string that protoc passes along
// with a request:
//
//	protoc --gojson_out='retain_enum_prefix,extern_path=.acme.common=example.com/common;commonpb:./gen' foo.proto
//
// The parameter string is a comma-separated list of entries. Each entry has
// the form NAME, NAME=KEY or NAME=KEY=VALUE. The recognized entries are:
//  1. "default_package_filename=<stem>": The file name stem used for files
//     that do not declare a proto package. Defaults to "_".
//  2. "retain_enum_prefix" (or "retain_enum_prefix=true"): Keep the enum
//     name prefix on generated enum JSON-name constants.
//  3. "extern_path=<proto path>=<go package>": Types whose fully-qualified
//     name is, or is nested under, the proto path are provided by the given Go
//     package ("import/path" or "import/path;name") instead of being
//     generated. May be repeated.
//
// Inside VALUE, a comma can be written as "\," and a backslash as "\\".
package gojson
