package plugins

import (
	"fmt"
	"path"

	"github.com/jhump/gopoet"
	"github.com/jhump/protoreflect/desc"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ModuleRequest is a unit of generation: the requested files that share a
// proto package and a Go package. Generators typically emit one output file
// per module request.
type ModuleRequest struct {
	// ProtoPackage is the proto package shared by Files. It is empty for
	// files that do not declare a package.
	ProtoPackage string
	// GoPackage is the Go package that protoc-gen-go generates Files into.
	GoPackage gopoet.Package
	// Files are the files to generate, in the order protoc requested them.
	Files []*desc.FileDescriptor

	defaultStem string
}

// FileStem returns the file name stem for the request's output: the proto
// package, or the default package file name if there is no proto package.
func (r *ModuleRequest) FileStem() string {
	if r.ProtoPackage == "" {
		return r.defaultStem
	}
	return r.ProtoPackage
}

// OutputFilename returns the path, relative to the plugin's output location,
// of the file for this request with the given suffix. The file lives in the
// directory that matches the Go import path, like protoc-gen-go output.
func (r *ModuleRequest) OutputFilename(suffix string) string {
	return path.Join(r.GoPackage.ImportPath, r.FileStem()+suffix)
}

// ModuleRequestSet groups the files protoc asked to generate into module
// requests. A ModuleRequestSet is read-only once created.
type ModuleRequestSet struct {
	requests []*ModuleRequest
	files    map[string]*desc.FileDescriptor
}

type moduleKey struct {
	protoPackage, importPath string
}

// NewModuleRequestSet resolves protoFiles, which must include every file
// needed to link fileToGenerate, and groups the files to generate by proto
// package and Go import path. Groups are ordered by the first file of each
// in fileToGenerate. Files without a proto package use defaultStem as their
// output file stem.
func NewModuleRequestSet(fileToGenerate []string, protoFiles []*descriptorpb.FileDescriptorProto, defaultStem string) (*ModuleRequestSet, error) {
	files, err := ResolveFiles(protoFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to process input descriptors: %v", err)
	}

	var names GoNames
	set := &ModuleRequestSet{files: files}
	byKey := map[moduleKey]*ModuleRequest{}
	for _, name := range fileToGenerate {
		fd := files[name]
		if fd == nil {
			return nil, fmt.Errorf("files to generate indicates unresolvable file %q", name)
		}
		pkg := names.GoPackageForFile(fd)
		key := moduleKey{protoPackage: fd.GetPackage(), importPath: pkg.ImportPath}
		req := byKey[key]
		if req == nil {
			req = &ModuleRequest{
				ProtoPackage: fd.GetPackage(),
				GoPackage:    pkg,
				defaultStem:  defaultStem,
			}
			byKey[key] = req
			set.requests = append(set.requests, req)
		} else if req.GoPackage.Name != pkg.Name {
			return nil, fmt.Errorf("%s: Go package %q is named %s, but %s names it %s", name, pkg.ImportPath, pkg.Name, req.Files[0].GetName(), req.GoPackage.Name)
		}
		req.Files = append(req.Files, fd)
	}
	return set, nil
}

// Requests returns the module requests, in generation order.
func (s *ModuleRequestSet) Requests() []*ModuleRequest {
	return s.requests
}

// File returns the resolved descriptor for the named file, or nil if the
// request did not include it.
func (s *ModuleRequestSet) File(name string) *desc.FileDescriptor {
	return s.files[name]
}

// ResolveFiles links the given file descriptor protos into rich descriptors,
// keyed by file name. The protos may be in any order, but every dependency
// must be present.
func ResolveFiles(fds []*descriptorpb.FileDescriptorProto) (map[string]*desc.FileDescriptor, error) {
	sources := map[string]*descriptorpb.FileDescriptorProto{}
	for _, fd := range fds {
		sources[fd.GetName()] = fd
	}
	resolved := map[string]*desc.FileDescriptor{}
	for _, fd := range fds {
		if _, err := resolveFile(fd, sources, resolved, nil); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func resolveFile(fdp *descriptorpb.FileDescriptorProto, sources map[string]*descriptorpb.FileDescriptorProto, resolved map[string]*desc.FileDescriptor, seen []string) (*desc.FileDescriptor, error) {
	if fd, ok := resolved[fdp.GetName()]; ok {
		return fd, nil
	}
	for _, s := range seen {
		if s == fdp.GetName() {
			return nil, fmt.Errorf("%s: import cycle", fdp.GetName())
		}
	}
	seen = append(seen, fdp.GetName())
	deps := make([]*desc.FileDescriptor, len(fdp.Dependency))
	for i, dep := range fdp.Dependency {
		src := sources[dep]
		if src == nil {
			return nil, fmt.Errorf("%s: dependency %q not found", fdp.GetName(), dep)
		}
		var err error
		deps[i], err = resolveFile(src, sources, resolved, seen)
		if err != nil {
			return nil, err
		}
	}
	fd, err := desc.CreateFileDescriptor(fdp, deps...)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fdp.GetName(), err)
	}
	resolved[fdp.GetName()] = fd
	return fd, nil
}
