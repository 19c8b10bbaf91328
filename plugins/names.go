package plugins

import (
	"bytes"
	"path"
	"strings"
	"unicode"

	"github.com/jhump/gopoet"
	"github.com/jhump/protoreflect/desc"
)

// GoNames is a helper for computing the names and packages of Go elements
// that protoc-gen-go generates from protocol buffers. Plugins that emit code
// alongside protoc-gen-go output use it to refer to those elements.
//
// GoNames is not thread-safe.
type GoNames struct {
	// cache of descriptor to TypeName
	descTypes map[desc.Descriptor]gopoet.TypeName
	// cache of file descriptor to Package
	pkgNames map[*desc.FileDescriptor]gopoet.Package
}

// GoPackageForFile returns the Go package for the given file descriptor. This
// uses the file's "go_package" option if it has one.
func (n *GoNames) GoPackageForFile(fd *desc.FileDescriptor) gopoet.Package {
	return n.GoPackageForFileWithOverride(fd, "")
}

// GoPackageForFileWithOverride returns the Go package for the given file
// descriptor, but uses the given string as if it were the "go_package" option
// value. The result is cached, so later queries for the same file return the
// same package even without the override.
func (n *GoNames) GoPackageForFileWithOverride(fd *desc.FileDescriptor, goPackage string) gopoet.Package {
	if pkg, ok := n.pkgNames[fd]; ok {
		return pkg
	}

	if goPackage == "" {
		goPackage = fd.GetFileOptions().GetGoPackage()
	}

	fileName, protoPackage := fd.GetName(), fd.GetPackage()
	var pkgPath, pkgName string
	if goPackage == "" {
		pkgPath = path.Dir(fileName)
		if protoPackage == "" {
			n := path.Base(fileName)
			ext := path.Ext(n)
			if ext == "" || len(ext) == len(n) {
				pkgName = n
			} else {
				pkgName = n[:len(n)-len(ext)]
			}
		} else {
			pkgName = protoPackage
		}
	} else {
		parts := strings.Split(goPackage, ";")
		if len(parts) > 1 {
			pkgPath = parts[0]
			pkgName = parts[1]
		} else {
			pkgName = path.Base(parts[0])
			if strings.Contains(parts[0], "/") {
				pkgPath = parts[0]
			} else {
				pkgPath = path.Dir(fileName)
			}
		}
	}
	pkgName = sanitize(pkgName)

	pkg := gopoet.Package{ImportPath: pkgPath, Name: pkgName}
	if n.pkgNames == nil {
		n.pkgNames = map[*desc.FileDescriptor]gopoet.Package{}
	}
	n.pkgNames[fd] = pkg
	return pkg
}

// ParseGoPackage parses a Go package reference of the form "import/path" or
// "import/path;name". Without an explicit name, the last element of the
// import path is used.
func ParseGoPackage(goPackage string) gopoet.Package {
	pkgPath, pkgName := goPackage, ""
	if i := strings.LastIndex(goPackage, ";"); i >= 0 {
		pkgPath, pkgName = goPackage[:i], goPackage[i+1:]
	}
	if pkgName == "" {
		pkgName = path.Base(pkgPath)
	}
	return gopoet.Package{ImportPath: pkgPath, Name: sanitize(pkgName)}
}

func sanitize(name string) string {
	var buf bytes.Buffer
	for i, ch := range name {
		switch {
		case unicode.IsDigit(ch):
			if i == 0 {
				buf.WriteRune('_')
			}
			buf.WriteRune(ch)
		case unicode.IsLetter(ch):
			buf.WriteRune(ch)
		default:
			buf.WriteRune('_')
		}
	}
	return buf.String()
}

// GoTypeForMessage returns the Go type for the given message descriptor.
func (n *GoNames) GoTypeForMessage(md *desc.MessageDescriptor) gopoet.TypeName {
	return n.goTypeFor(md)
}

// GoTypeForEnum returns the Go type for the given enum descriptor.
func (n *GoNames) GoTypeForEnum(ed *desc.EnumDescriptor) gopoet.TypeName {
	return n.goTypeFor(ed)
}

func (n *GoNames) goTypeFor(d desc.Descriptor) gopoet.TypeName {
	if tn, ok := n.descTypes[d]; ok {
		return tn
	}
	tn := gopoet.NamedType(n.GoPackageForFile(d.GetFile()).Symbol(GoLocalName(d)))
	if n.descTypes == nil {
		n.descTypes = map[desc.Descriptor]gopoet.TypeName{}
	}
	n.descTypes[d] = tn
	return tn
}

// GoLocalName returns the unqualified name of the Go type generated for the
// given message or enum. Like protoc-gen-go, it camel-cases the dotted path of
// the element relative to its file's package, so "Outer.inner" becomes
// "OuterInner" and "Outer.Inner" becomes "Outer_Inner".
func GoLocalName(d desc.Descriptor) string {
	l := 0
	for parent := d; !isFile(parent); parent = parent.GetParent() {
		l++
	}
	s := make([]string, l)
	for parent := d; !isFile(parent); parent = parent.GetParent() {
		l--
		s[l] = parent.GetName()
	}
	return camelCaseSlice(s)
}

func isFile(d desc.Descriptor) bool {
	_, ok := d.(*desc.FileDescriptor)
	return ok
}

// CamelCase converts the given symbol to an exported Go symbol in camel-case
// convention. It removes underscores and makes letters following an underscore
// upper-case. If the given symbol starts with an underscore, the underscore is
// replaced with a capital "X". Dots separate nested names: a dot before a
// lower-case letter is dropped, any other dot becomes an underscore, and an
// underscore right after a dot becomes "X".
func CamelCase(s string) string {
	// NB(jh): This is forked from generator.CamelCase in the protobuf runtime.
	// That entire package is deprecated and its replacement ("protogen" in the
	// google.golang.org/protobuf module) does not have an analog for this
	// function.
	if s == "" {
		return ""
	}
	t := make([]byte, 0, 32)
	i := 0
	if s[0] == '_' {
		// Need a capital letter; drop the '_'.
		t = append(t, 'X')
		i++
	}
	// Invariant: if the next letter is lower case, it must be converted
	// to upper case.
	// That is, we process a word at a time, where words are marked by _ or
	// upper case letter. Digits are treated as words.
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.' && i+1 < len(s) && isASCIILower(s[i+1]):
			continue // Skip the dot in s.
		case c == '.':
			t = append(t, '_')
			continue
		case c == '_' && i > 0 && s[i-1] == '.':
			t = append(t, 'X')
			continue
		}
		if c == '_' && i+1 < len(s) && isASCIILower(s[i+1]) {
			continue // Skip the underscore in s.
		}
		if isASCIIDigit(c) {
			t = append(t, c)
			continue
		}
		// Assume we have a letter now - if not, it's a bogus identifier.
		// The next word is a sequence of characters that must start upper case.
		if isASCIILower(c) {
			c ^= ' ' // Make it a capital letter.
		}
		t = append(t, c) // Guaranteed not lower case.
		// Accept lower case sequence that follows.
		for i+1 < len(s) && isASCIILower(s[i+1]) {
			i++
			t = append(t, s[i])
		}
	}
	return string(t)
}

// camelCaseSlice is like CamelCase, but the argument is a slice of strings to
// be joined with ".".
func camelCaseSlice(elem []string) string {
	return CamelCase(strings.Join(elem, "."))
}

// Is c an ASCII lower-case letter?
func isASCIILower(c byte) bool {
	return 'a' <= c && c <= 'z'
}

// Is c an ASCII digit?
func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
