package gojson

// DefaultPackageFilename is the file name stem used for files that have no
// proto package, unless overridden with "default_package_filename=<stem>".
const DefaultPackageFilename = "_"

// Parameters is the parsed plugin configuration. The zero value holds the
// defaults. Use ParseParameters to create one from a parameter string.
type Parameters struct {
	defaultPackageFilename string
	externPaths            []ExternPath
	retainEnumPrefix       bool
}

// ExternPath maps a fully-qualified proto path (a package or a type) to the
// Go package that provides its generated code.
type ExternPath struct {
	ProtoPath string
	GoPath    string
}

// Configurer receives the parameters that affect how bindings are built.
type Configurer interface {
	ExternPath(protoPath, goPath string)
	RetainEnumPrefix()
}

// DefaultPackageFilename returns the configured file name stem for files
// without a proto package, or DefaultPackageFilename if none was configured.
func (p *Parameters) DefaultPackageFilename() string {
	if p.defaultPackageFilename == "" {
		return DefaultPackageFilename
	}
	return p.defaultPackageFilename
}

// ExternPaths returns the configured extern paths in the order they were
// given. Repeated proto paths are all kept.
func (p *Parameters) ExternPaths() []ExternPath {
	if len(p.externPaths) == 0 {
		return nil
	}
	ret := make([]ExternPath, len(p.externPaths))
	copy(ret, p.externPaths)
	return ret
}

// RetainEnumPrefix reports whether enum name prefixes are kept.
func (p *Parameters) RetainEnumPrefix() bool {
	return p.retainEnumPrefix
}

// Configure applies the parameters to c: every extern path in order, then
// the enum prefix flag if it is set.
func (p *Parameters) Configure(c Configurer) {
	for _, ext := range p.externPaths {
		c.ExternPath(ext.ProtoPath, ext.GoPath)
	}
	if p.retainEnumPrefix {
		c.RetainEnumPrefix()
	}
}
