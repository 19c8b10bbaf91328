package jsonbuild

import (
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/jhump/protoc-gen-gojson/plugins"
)

var testSources = map[string]string{
	"acme/common.proto": `
syntax = "proto3";
package acme.common;
option go_package = "example.com/acme/commonpb";

message Money {
  int64 units = 1;
}

enum Currency {
  CURRENCY_UNSPECIFIED = 0;
  CURRENCY_EUR = 1;
}
`,
	"acme/shop.proto": `
syntax = "proto3";
package acme.shop;
option go_package = "example.com/acme/shoppb";

import "acme/common.proto";

message Order {
  message Item {
    enum Kind {
      KIND_UNSPECIFIED = 0;
      KIND_BOOK = 1;
    }
    string sku = 1;
    Kind kind = 2;
  }
  string id = 1;
  Status status = 2;
  map<string, Item> items = 3;
  acme.common.Money total = 4;
  map<string, acme.common.Currency> currencies = 5;
  repeated acme.common.Money payments = 6;
  Legacy legacy = 7;
}

message Legacy {
  string note = 1;
}

enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_OPEN = 1;
  STATUS_CLOSED = 2;
}

enum DeliveryMode {
  option allow_alias = true;
  DELIVERY_MODE_STANDARD = 0;
  DELIVERY_MODE_EXPRESS = 1;
  DELIVERY_MODE_FAST = 1;
}
`,
	"acme/shade.proto": `
syntax = "proto2";
package acme.shade;
option go_package = "example.com/acme/shadepb";

enum Shade {
  SHADE_DARK = 0;
  DARK = 1;
}
`,
	"acme/empty.proto": `
syntax = "proto3";
package acme.empty;
option go_package = "example.com/acme/emptypb";
`,
	"acme/nested.proto": `
syntax = "proto3";
package acme.nested;
option go_package = "example.com/acme/nestedpb";

message Outer {
  message inner {
    string v = 1;
  }
  enum kind {
    KIND_UNSPECIFIED = 0;
    KIND_ONE = 1;
  }
  message Upper {}
  inner child = 1;
  kind mode = 2;
}
`,
	"legacy/tone.proto": `
syntax = "proto2";
package legacy;
option go_package = "example.com/legacy";

message Old {
  optional Tone tone = 1;
}

enum Tone {
  TONE_LOW = 1;
  TONE_HIGH = 2;
}
`,
}

func parseTestFiles(t *testing.T) []*descriptorpb.FileDescriptorProto {
	names := make([]string, 0, len(testSources))
	for name := range testSources {
		names = append(names, name)
	}
	p := protoparse.Parser{Accessor: protoparse.FileContentsFromMap(testSources)}
	fds, err := p.ParseFiles(names...)
	require.NoError(t, err)
	return desc.ToFileDescriptorSet(fds...).GetFile()
}

// generate registers every test file with b and generates the named file.
func generate(t *testing.T, b *Builder, name string) ([]*pluginpb.CodeGeneratorResponse_File, error) {
	files := parseTestFiles(t)
	for _, fd := range files {
		b.RegisterFile(fd)
	}
	set, err := plugins.NewModuleRequestSet([]string{name}, files, "_")
	require.NoError(t, err)
	require.Len(t, set.Requests(), 1)
	return b.Generate(set.Requests()[0])
}

func mustGenerate(t *testing.T, b *Builder, name string) (string, string) {
	files, err := generate(t, b, name)
	require.NoError(t, err)
	require.Len(t, files, 1)
	content := files[0].GetContent()
	_, err = parser.ParseFile(token.NewFileSet(), files[0].GetName(), content, parser.AllErrors)
	require.NoError(t, err, "generated code:\n%s", content)
	return files[0].GetName(), content
}

func assertMatches(t *testing.T, content string, patterns ...string) {
	t.Helper()
	for _, p := range patterns {
		assert.Regexp(t, regexp.MustCompile(p), content)
	}
}

func TestGenerate_Proto3(t *testing.T) {
	name, content := mustGenerate(t, NewBuilder(), "acme/shop.proto")
	assert.Equal(t, "example.com/acme/shoppb/acme.shop.pb.json.go", name)

	assert.True(t, strings.HasPrefix(content, "// Code generated by protoc-gen-gojson. DO NOT EDIT.\n// source: acme/shop.proto\n\npackage shoppb\n"))
	for _, imp := range []string{`"encoding/json"`, `"fmt"`, `"google.golang.org/protobuf/encoding/protojson"`, `"google.golang.org/protobuf/reflect/protoreflect"`, `"example.com/acme/commonpb"`} {
		assert.Contains(t, content, "\t"+imp+"\n")
	}

	for _, msg := range []string{"Order", "Order_Item", "Legacy"} {
		assert.Contains(t, content, "func (x *"+msg+") MarshalJSON() ([]byte, error) {\n\treturn protojson.Marshal(x)\n}")
		assert.Contains(t, content, "func (x *"+msg+") UnmarshalJSON(b []byte) error {\n\treturn protojson.Unmarshal(b, x)\n}")
	}
	// map entries are not generated types
	assert.NotContains(t, content, "ItemsEntry")
	assert.NotContains(t, content, "CurrenciesEntry")

	assertMatches(t, content,
		`StatusJSON_UNSPECIFIED\s+= "STATUS_UNSPECIFIED"`,
		`StatusJSON_OPEN\s+= "STATUS_OPEN"`,
		`StatusJSON_CLOSED\s+= "STATUS_CLOSED"`,
		`Status\(2\):\s+StatusJSON_CLOSED,`,
		`StatusJSON_CLOSED:\s+Status\(2\),`,
		`Order_Item_KindJSON_BOOK\s+= "KIND_BOOK"`,
		`DeliveryModeJSON_STANDARD\s+= "DELIVERY_MODE_STANDARD"`,
		`DeliveryModeJSON_FAST\s+= "DELIVERY_MODE_FAST"`,
		`DeliveryModeJSON_FAST:\s+DeliveryMode\(1\),`,
	)
	for _, enum := range []string{"Status", "Order_Item_Kind", "DeliveryMode"} {
		assert.Contains(t, content, "func (x "+enum+") MarshalJSON() ([]byte, error) {")
		assert.Contains(t, content, "func (x *"+enum+") UnmarshalJSON(b []byte) error {")
	}
	assert.Contains(t, content, `return fmt.Errorf("unknown value %q for enum acme.shop.Status", name)`)

	// the first alias owns the number
	assert.Equal(t, 1, strings.Count(content, "DeliveryMode(1):"))
	assertMatches(t, content, `DeliveryMode\(1\):\s+DeliveryModeJSON_EXPRESS,`)

	// types from other Go packages are checked once each
	assert.Equal(t, 1, strings.Count(content, "var _ protoreflect.ProtoMessage = (*commonpb.Money)(nil)"))
	assert.Equal(t, 1, strings.Count(content, "var _ protoreflect.Enum = commonpb.Currency(0)"))
	assert.NotContains(t, content, "(*Legacy)(nil)")
	assert.NotContains(t, content, "protoreflect.Enum = Status(0)")
}

func TestGenerate_RetainEnumPrefix(t *testing.T) {
	b := NewBuilder()
	b.RetainEnumPrefix()
	_, content := mustGenerate(t, b, "acme/shop.proto")
	assertMatches(t, content,
		`StatusJSON_STATUS_OPEN\s+= "STATUS_OPEN"`,
		`Order_Item_KindJSON_KIND_BOOK\s+= "KIND_BOOK"`,
		`DeliveryModeJSON_DELIVERY_MODE_EXPRESS\s+= "DELIVERY_MODE_EXPRESS"`,
	)
	assert.NotContains(t, content, "StatusJSON_OPEN ")
}

func TestGenerate_EnumPrefixCollision(t *testing.T) {
	_, content := mustGenerate(t, NewBuilder(), "acme/shade.proto")
	assertMatches(t, content,
		`ShadeJSON_SHADE_DARK\s+= "SHADE_DARK"`,
		`ShadeJSON_DARK\s+= "DARK"`,
	)
	// no messages, so no protojson
	assert.NotContains(t, content, "protojson")
	assert.NotContains(t, content, "protoreflect")
}

func TestGenerate_Proto2(t *testing.T) {
	name, content := mustGenerate(t, NewBuilder(), "legacy/tone.proto")
	assert.Equal(t, "example.com/legacy/legacy.pb.json.go", name)
	assert.Contains(t, content, "func (x *Old) MarshalJSON() ([]byte, error) {")
	assert.Contains(t, content, "func (x Tone) MarshalJSON() ([]byte, error) {")
	// protoc-gen-go already provides this for proto2 enums
	assert.NotContains(t, content, "func (x *Tone) UnmarshalJSON")
	assert.NotContains(t, content, `"fmt"`)
	assertMatches(t, content, `ToneJSON_HIGH\s+= "TONE_HIGH"`, `Tone\(1\):\s+ToneJSON_LOW,`)
}

func TestGenerate_NothingToEmit(t *testing.T) {
	files, err := generate(t, NewBuilder(), "acme/empty.proto")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGenerate_ExternPath(t *testing.T) {
	b := NewBuilder()
	b.ExternPath(".acme.common", "example.com/vendored/money;moneypb")
	b.ExternPath(".acme.shop.Legacy", "example.com/legacy/v1;legacypb")
	// shadowed by the first rule
	b.ExternPath(".acme.common.Money", "example.com/never")
	// only matches whole segments
	b.ExternPath(".acme.sho", "example.com/never")
	_, content := mustGenerate(t, b, "acme/shop.proto")

	assert.Contains(t, content, "\tmoneypb \"example.com/vendored/money\"\n")
	assert.Contains(t, content, "\tlegacypb \"example.com/legacy/v1\"\n")
	assert.NotContains(t, content, "example.com/never")
	assert.NotContains(t, content, "commonpb")

	assert.Contains(t, content, "var _ protoreflect.ProtoMessage = (*moneypb.Money)(nil)")
	assert.Contains(t, content, "var _ protoreflect.Enum = moneypb.Currency(0)")
	assert.Contains(t, content, "var _ protoreflect.ProtoMessage = (*legacypb.Legacy)(nil)")

	// externed types are not generated
	assert.NotContains(t, content, "func (x *Legacy)")
	assert.Contains(t, content, "func (x *Order) MarshalJSON()")
}

func TestGenerate_ExternEverything(t *testing.T) {
	b := NewBuilder()
	b.ExternPath(".", "example.com/elsewhere")
	files, err := generate(t, b, "acme/shop.proto")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGenerate_InvalidExternPath(t *testing.T) {
	b := NewBuilder()
	b.ExternPath("acme.common", "example.com/money")
	_, err := generate(t, b, "acme/shop.proto")
	assert.EqualError(t, err, "extern_path acme.common=example.com/money: proto path must be fully-qualified and start with '.'")

	b = NewBuilder()
	b.ExternPath(".acme.common", ";moneypb")
	_, err = generate(t, b, "acme/shop.proto")
	assert.EqualError(t, err, "extern_path .acme.common=;moneypb: Go import path must not be empty")
}

func TestGenerate_LowerCaseNestedNames(t *testing.T) {
	_, content := mustGenerate(t, NewBuilder(), "acme/nested.proto")
	for _, msg := range []string{"Outer", "OuterInner", "Outer_Upper"} {
		assert.Contains(t, content, "func (x *"+msg+") MarshalJSON() ([]byte, error) {")
	}
	assert.Contains(t, content, "func (x OuterKind) MarshalJSON() ([]byte, error) {")
	assertMatches(t, content, `OuterKindJSON_ONE\s+= "KIND_ONE"`)
	assert.NotContains(t, content, "Outer_Inner")
	assert.NotContains(t, content, "Outer_Kind")
}

func TestGenerate_ZeroValueBuilder(t *testing.T) {
	var b Builder
	require.NoError(t, b.Validate())
	_, content := mustGenerate(t, &b, "acme/shop.proto")
	assert.Contains(t, content, "func (x *Order) MarshalJSON() ([]byte, error) {")
}

func TestValidate(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Validate())
	b.ExternPath(".acme.common", "example.com/money")
	require.NoError(t, b.Validate())

	b.ExternPath("acme.shop", "example.com/shop")
	b.ExternPath(".acme.shade", "")
	// the first bad rule is the one reported
	assert.EqualError(t, b.Validate(), "extern_path acme.shop=example.com/shop: proto path must be fully-qualified and start with '.'")
	_, err := generate(t, b, "acme/shop.proto")
	assert.EqualError(t, err, "extern_path acme.shop=example.com/shop: proto path must be fully-qualified and start with '.'")
}

func TestGenerate_MissingDependency(t *testing.T) {
	files := parseTestFiles(t)
	b := NewBuilder()
	for _, fd := range files {
		if fd.GetName() != "acme/common.proto" {
			b.RegisterFile(fd)
		}
	}
	set, err := plugins.NewModuleRequestSet([]string{"acme/shop.proto"}, files, "_")
	require.NoError(t, err)
	_, err = b.Generate(set.Requests()[0])
	assert.EqualError(t, err, `failed to link registered files: acme/shop.proto: dependency "acme/common.proto" not found`)
}

func TestGenerate_FileNotRegistered(t *testing.T) {
	files := parseTestFiles(t)
	b := NewBuilder()
	for _, fd := range files {
		if fd.GetName() == "acme/common.proto" {
			b.RegisterFile(fd)
		}
	}
	set, err := plugins.NewModuleRequestSet([]string{"acme/shop.proto"}, files, "_")
	require.NoError(t, err)
	_, err = b.Generate(set.Requests()[0])
	assert.EqualError(t, err, "acme/shop.proto: file was not registered")
}

func TestEnumValueSuffixes(t *testing.T) {
	mustEnum := func(name string, values ...string) *desc.EnumDescriptor {
		eb := builder.NewEnum(name)
		for _, v := range values {
			eb.AddValue(builder.NewEnumValue(v))
		}
		ed, err := eb.Build()
		require.NoError(t, err)
		return ed
	}
	testCases := []struct {
		ed       *desc.EnumDescriptor
		retain   bool
		expected []string
	}{
		{
			ed:       mustEnum("Color", "COLOR_RED", "COLOR_GREEN"),
			expected: []string{"RED", "GREEN"},
		},
		{
			ed:       mustEnum("Color", "COLOR_RED", "COLOR_GREEN"),
			retain:   true,
			expected: []string{"COLOR_RED", "COLOR_GREEN"},
		},
		{
			ed:       mustEnum("HTTPMethod", "HTTP_METHOD_GET", "POST"),
			expected: []string{"GET", "POST"},
		},
		{
			ed:       mustEnum("Level", "LEVEL_", "LEVEL_HIGH"),
			expected: []string{"LEVEL_", "HIGH"},
		},
		{
			ed:       mustEnum("Shade", "SHADE_DARK", "DARK"),
			expected: []string{"SHADE_DARK", "DARK"},
		},
		{
			ed:       mustEnum("Color", "RED", "GREEN"),
			expected: []string{"RED", "GREEN"},
		},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, enumValueSuffixes(testCase.ed, testCase.retain), "enum %s", testCase.ed.GetName())
	}
}
