package jsonbuild

import (
	"strings"

	"github.com/jhump/gopoet"
	"github.com/pkg/errors"

	"github.com/jhump/protoc-gen-gojson/plugins"
)

// externPath is a rule that maps a proto package or type, and everything
// nested under it, to the Go package that provides its generated code.
type externPath struct {
	protoPath string
	goPath    string
	pkg       gopoet.Package
}

func newExternPath(protoPath, goPath string) externPath {
	return externPath{
		protoPath: protoPath,
		goPath:    goPath,
		pkg:       plugins.ParseGoPackage(goPath),
	}
}

func (e externPath) validate() error {
	if !strings.HasPrefix(e.protoPath, ".") {
		return errors.Errorf("extern_path %s=%s: proto path must be fully-qualified and start with '.'", e.protoPath, e.goPath)
	}
	if e.pkg.ImportPath == "" {
		return errors.Errorf("extern_path %s=%s: Go import path must not be empty", e.protoPath, e.goPath)
	}
	return nil
}

// matches reports whether the fully-qualified name (with a leading dot) is
// the rule's proto path or nested under it. Only whole name segments match:
// ".foo" matches ".foo.Bar" but not ".foobar".
func (e externPath) matches(name string) bool {
	if e.protoPath == "." {
		return true
	}
	return name == e.protoPath || strings.HasPrefix(name, e.protoPath+".")
}

// externFor returns the first registered rule matching the fully-qualified
// name, if any.
func (b *Builder) externFor(fullName string) (externPath, bool) {
	name := "." + fullName
	for _, ext := range b.externs {
		if ext.matches(name) {
			return ext, true
		}
	}
	return externPath{}, false
}
