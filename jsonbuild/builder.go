// Package jsonbuild generates JSON bindings for the Go types that
// protoc-gen-go generates. Messages get MarshalJSON and UnmarshalJSON methods
// that follow the protobuf JSON mapping; enums get JSON name constants,
// lookup tables and the same pair of methods.
package jsonbuild

import (
	"go/format"
	"strings"
	"text/template"

	dpb "github.com/golang/protobuf/protoc-gen-go/descriptor"
	"github.com/huandu/xstrings"
	"github.com/jhump/gopoet"
	"github.com/jhump/protoreflect/desc"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/jhump/protoc-gen-gojson/plugins"
)

// OutputSuffix is appended to a module request's file stem to name the file
// generated for it.
const OutputSuffix = ".pb.json.go"

const (
	protojsonImportPath    = "google.golang.org/protobuf/encoding/protojson"
	protoreflectImportPath = "google.golang.org/protobuf/reflect/protoreflect"
)

// Builder generates JSON bindings for registered files.
type Builder struct {
	files            []*descriptorpb.FileDescriptorProto
	resolved         map[string]*desc.FileDescriptor
	externs          []externPath
	externErr        error
	retainEnumPrefix bool
}

// NewBuilder returns a builder with no registered files, no extern paths,
// and enum prefixes stripped.
func NewBuilder() *Builder {
	return &Builder{}
}

// RegisterFile makes fd available for resolving types. Every file that a
// generated file depends on must be registered, not only the files that are
// generated.
func (b *Builder) RegisterFile(fd *descriptorpb.FileDescriptorProto) {
	b.files = append(b.files, fd)
	b.resolved = nil
}

// ExternPath declares that the proto package or type at protoPath, which must
// start with '.', is provided by the Go package goPath ("import/path" or
// "import/path;name"). Types under it are not generated, and references to
// them use goPath. When several rules match a type, the first one registered
// wins. An invalid rule is reported by Validate and by every Generate call.
func (b *Builder) ExternPath(protoPath, goPath string) {
	ext := newExternPath(protoPath, goPath)
	if err := ext.validate(); err != nil {
		if b.externErr == nil {
			b.externErr = err
		}
		return
	}
	b.externs = append(b.externs, ext)
}

// Validate returns the first configuration error, such as an extern path
// that is not fully-qualified.
func (b *Builder) Validate() error {
	return b.externErr
}

// RetainEnumPrefix keeps the enum name prefix (e.g. "COLOR_" for enum Color)
// in the names of generated enum value constants.
func (b *Builder) RetainEnumPrefix() {
	b.retainEnumPrefix = true
}

func (b *Builder) resolve() (map[string]*desc.FileDescriptor, error) {
	if b.resolved == nil {
		files, err := plugins.ResolveFiles(b.files)
		if err != nil {
			return nil, errors.Wrap(err, "failed to link registered files")
		}
		b.resolved = files
	}
	return b.resolved, nil
}

// Generate returns the bindings file for req, or no files if none of the
// request's files declare messages or enums that need bindings.
func (b *Builder) Generate(req *plugins.ModuleRequest) ([]*pluginpb.CodeGeneratorResponse_File, error) {
	if b.externErr != nil {
		return nil, b.externErr
	}
	files, err := b.resolve()
	if err != nil {
		return nil, err
	}

	g := fileGen{
		builder: b,
		req:     req,
		names:   &plugins.GoNames{},
		refSeen: map[gopoet.Symbol]bool{},
	}
	var sources []string
	for _, f := range req.Files {
		fd := files[f.GetName()]
		if fd == nil {
			return nil, errors.Errorf("%s: file was not registered", f.GetName())
		}
		sources = append(sources, fd.GetName())
		g.addMessages(fd.GetMessageTypes())
		g.addEnums(fd.GetEnumTypes())
	}
	if len(g.messages) == 0 && len(g.enums) == 0 {
		return nil, nil
	}

	name := req.OutputFilename(OutputSuffix)
	content, err := g.render(sources)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return []*pluginpb.CodeGeneratorResponse_File{{
		Name:    proto.String(name),
		Content: proto.String(string(content)),
	}}, nil
}

// fileGen accumulates what goes into one generated file.
type fileGen struct {
	builder *Builder
	req     *plugins.ModuleRequest
	names   *plugins.GoNames

	messages []messageData
	enums    []enumData
	refs     []reference
	refSeen  map[gopoet.Symbol]bool
	needFmt  bool
}

type reference struct {
	sym       gopoet.Symbol
	isMessage bool
}

type fileData struct {
	Package    string
	Sources    []string
	Imports    []plugins.ImportSpec
	Messages   []messageData
	Enums      []enumData
	References []referenceData
}

type messageData struct {
	Name     string
	FullName string
}

type enumData struct {
	Name      string
	FullName  string
	NamesVar  string
	ValuesVar string
	Values    []enumValueData
	Unmarshal bool
}

type enumValueData struct {
	ConstName string
	JSONName  string
	Number    int32
	// Primary is false for aliases of an earlier value with the same number.
	Primary bool
}

type referenceData struct {
	Interface string
	Value     string
}

func (g *fileGen) addMessages(mds []*desc.MessageDescriptor) {
	for _, md := range mds {
		if md.IsMapEntry() {
			continue
		}
		if _, ok := g.builder.externFor(md.GetFullyQualifiedName()); ok {
			continue
		}
		g.messages = append(g.messages, messageData{
			Name:     g.names.GoTypeForMessage(md).Symbol().Name,
			FullName: md.GetFullyQualifiedName(),
		})
		for _, fld := range md.GetFields() {
			g.addReference(fld)
		}
		g.addMessages(md.GetNestedMessageTypes())
		g.addEnums(md.GetNestedEnumTypes())
	}
}

func (g *fileGen) addReference(fld *desc.FieldDescriptor) {
	if fld.IsMap() {
		fld = fld.GetMapValueType()
	}
	switch fld.GetType() {
	case dpb.FieldDescriptorProto_TYPE_MESSAGE,
		dpb.FieldDescriptorProto_TYPE_GROUP:
		md := fld.GetMessageType()
		g.reference(md, g.names.GoTypeForMessage(md).Symbol(), true)
	case dpb.FieldDescriptorProto_TYPE_ENUM:
		ed := fld.GetEnumType()
		g.reference(ed, g.names.GoTypeForEnum(ed).Symbol(), false)
	}
}

// reference records a type used by a generated message. Types that live in
// another Go package get a compile-time check in the generated file.
func (g *fileGen) reference(d desc.Descriptor, sym gopoet.Symbol, isMessage bool) {
	if ext, ok := g.builder.externFor(d.GetFullyQualifiedName()); ok {
		sym = ext.pkg.Symbol(sym.Name)
	}
	if sym.Package.ImportPath == g.req.GoPackage.ImportPath || g.refSeen[sym] {
		return
	}
	g.refSeen[sym] = true
	g.refs = append(g.refs, reference{sym: sym, isMessage: isMessage})
}

func (g *fileGen) addEnums(eds []*desc.EnumDescriptor) {
	for _, ed := range eds {
		if _, ok := g.builder.externFor(ed.GetFullyQualifiedName()); ok {
			continue
		}
		name := g.names.GoTypeForEnum(ed).Symbol().Name
		e := enumData{
			Name:      name,
			FullName:  ed.GetFullyQualifiedName(),
			NamesVar:  "_" + name + "_jsonName",
			ValuesVar: "_" + name + "_jsonValue",
			// protoc-gen-go already emits UnmarshalJSON for enums of
			// proto2 and editions files
			Unmarshal: ed.GetFile().IsProto3(),
		}
		suffixes := enumValueSuffixes(ed, g.builder.retainEnumPrefix)
		seen := map[int32]bool{}
		for i, vd := range ed.GetValues() {
			e.Values = append(e.Values, enumValueData{
				ConstName: name + "JSON_" + suffixes[i],
				JSONName:  vd.GetName(),
				Number:    vd.GetNumber(),
				Primary:   !seen[vd.GetNumber()],
			})
			seen[vd.GetNumber()] = true
		}
		g.needFmt = g.needFmt || e.Unmarshal
		g.enums = append(g.enums, e)
	}
}

// enumValueSuffixes returns the names used in the Go constants of the enum's
// values. Unless retain is set, the enum name prefix ("COLOR_" for enum
// Color) is stripped from each value that has it. If stripping leaves two
// values with the same name, no prefix is stripped.
func enumValueSuffixes(ed *desc.EnumDescriptor, retain bool) []string {
	values := ed.GetValues()
	names := make([]string, len(values))
	for i, vd := range values {
		names[i] = vd.GetName()
	}
	if retain {
		return names
	}

	prefix := strings.ToUpper(xstrings.ToSnakeCase(ed.GetName())) + "_"
	stripped := make([]string, len(names))
	seen := map[string]bool{}
	for i, n := range names {
		s := strings.TrimPrefix(n, prefix)
		if s == "" {
			s = n
		}
		if seen[s] {
			return names
		}
		seen[s] = true
		stripped[i] = s
	}
	return stripped
}

func (g *fileGen) render(sources []string) ([]byte, error) {
	imports := plugins.NewImportsFor(g.req.GoPackage.ImportPath)
	// well-known imports first, so they keep their usual names
	if len(g.messages) > 0 {
		imports.RegisterImport(protojsonImportPath, "protojson")
	}
	if len(g.enums) > 0 {
		imports.RegisterImport("encoding/json", "json")
	}
	if g.needFmt {
		imports.RegisterImport("fmt", "fmt")
	}
	if len(g.refs) > 0 {
		imports.RegisterImport(protoreflectImportPath, "protoreflect")
	}

	data := fileData{
		Package:  g.req.GoPackage.Name,
		Sources:  sources,
		Messages: g.messages,
		Enums:    g.enums,
	}
	for _, ref := range g.refs {
		typ := imports.Qualify(ref.sym)
		rd := referenceData{
			Interface: imports.PrefixForPackage(protoreflectImportPath) + "Enum",
			Value:     typ + "(0)",
		}
		if ref.isMessage {
			rd.Interface = imports.PrefixForPackage(protoreflectImportPath) + "ProtoMessage"
			rd.Value = "(*" + typ + ")(nil)"
		}
		data.References = append(data.References, rd)
	}
	data.Imports = imports.ImportSpecs()

	t, err := loadTemplateFromEmbedded(template.FuncMap{
		"pkg": imports.PrefixForPackage,
	})
	if err != nil {
		return nil, err
	}
	src, err := renderNamedTemplate(t, "file", data)
	if err != nil {
		return nil, err
	}
	formatted, err := format.Source(src)
	if err != nil {
		return nil, errors.Wrap(err, "generated code is not valid Go")
	}
	return formatted, nil
}
