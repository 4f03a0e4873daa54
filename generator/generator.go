// Package generator emits the typed descriptor, client and server code for protobuf
// services. It runs inside protoc-gen-simple-rpc.
//
// For every service S in a file, the generated <file>_rpc.pb.go holds:
//
//	SMethod        integer enum, one constant per RPC, implementing descriptor.MethodDescriptor
//	SDescriptor    zero-size struct implementing descriptor.ServiceDescriptor[SMethod]
//	S              interface the service implementation satisfies
//	SClient        typed client over any handler.Handler[SMethod]
//	NewSServer     typed server, an exhaustive switch over SMethod
package generator

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"google.golang.org/protobuf/compiler/protogen"
)

// DefaultRuntime is the import path prefix of the runtime packages.
const DefaultRuntime = "simple-rpc"

// FileSuffix is appended to the generated filename prefix.
const FileSuffix = "_rpc.pb.go"

// Options configures code generation.
type Options struct {
	// Runtime is the import path prefix of client, codec, handler and server.
	Runtime string
}

// Set applies one plugin parameter. It is meant for protogen.Options.ParamFunc.
func (o *Options) Set(name, value string) error {
	switch name {
	case "runtime":
		o.Runtime = value
		return nil
	}
	return fmt.Errorf("unknown parameter %q", name)
}

type runtime struct {
	client, codec, handler, server protogen.GoImportPath
}

func newRuntime(prefix string) runtime {
	if prefix == "" {
		prefix = DefaultRuntime
	}
	return runtime{
		client:  protogen.GoImportPath(path.Join(prefix, "client")),
		codec:   protogen.GoImportPath(path.Join(prefix, "codec")),
		handler: protogen.GoImportPath(path.Join(prefix, "handler")),
		server:  protogen.GoImportPath(path.Join(prefix, "server")),
	}
}

const (
	contextPackage = protogen.GoImportPath("context")
	strconvPackage = protogen.GoImportPath("strconv")
)

// GenerateFile writes the code for every service of file. It returns nil when the file
// declares no services.
func GenerateFile(gen *protogen.Plugin, file *protogen.File, opts Options) (*protogen.GeneratedFile, error) {
	if len(file.Services) == 0 {
		return nil, nil
	}
	for _, service := range file.Services {
		for _, method := range service.Methods {
			if method.Desc.IsStreamingClient() || method.Desc.IsStreamingServer() {
				return nil, fmt.Errorf("%s: streaming method %s is not supported", file.Desc.Path(), method.Desc.FullName())
			}
		}
	}

	g := gen.NewGeneratedFile(file.GeneratedFilenamePrefix+FileSuffix, file.GoImportPath)
	g.P("// Code generated by protoc-gen-simple-rpc. DO NOT EDIT.")
	g.P("// source: ", file.Desc.Path())
	g.P()
	g.P("package ", file.GoPackageName)
	g.P()

	rt := newRuntime(opts.Runtime)
	for _, service := range file.Services {
		genService(g, rt, service)
	}
	return g, nil
}

func genService(g *protogen.GeneratedFile, rt runtime, service *protogen.Service) {
	genMethodEnum(g, service)
	genDescriptor(g, service)
	genInterface(g, service)
	genClient(g, rt, service)
	genServer(g, rt, service)
}

func methodType(service *protogen.Service) string {
	return service.GoName + "Method"
}

func methodConst(service *protogen.Service, method *protogen.Method) string {
	return service.GoName + "Method" + method.GoName
}

func descriptorType(service *protogen.Service) string {
	return service.GoName + "Descriptor"
}

func genMethodEnum(g *protogen.GeneratedFile, service *protogen.Service) {
	typ := methodType(service)
	g.P("// ", typ, " identifies one method of the ", service.GoName, " service.")
	g.P("type ", typ, " int")
	g.P()
	g.P("const (")
	for i, method := range service.Methods {
		g.P(method.Comments.Leading, methodConst(service, method), " ", typ, " = ", i)
	}
	g.P(")")
	g.P()

	genEnumSwitch(g, service, "Name", func(m *protogen.Method) string { return m.GoName })
	genEnumSwitch(g, service, "ProtoName", func(m *protogen.Method) string { return string(m.Desc.Name()) })
	genEnumSwitch(g, service, "InputProtoType", func(m *protogen.Method) string { return string(m.Input.Desc.FullName()) })
	genEnumSwitch(g, service, "OutputProtoType", func(m *protogen.Method) string { return string(m.Output.Desc.FullName()) })

	g.P("func (m ", typ, ") String() string {")
	g.P("if n := m.Name(); n != \"\" {")
	g.P("return n")
	g.P("}")
	g.P("return ", strconv.Quote(typ+"("), " + ", g.QualifiedGoIdent(strconvPackage.Ident("Itoa")), "(int(m)) + \")\"")
	g.P("}")
	g.P()
}

func genEnumSwitch(g *protogen.GeneratedFile, service *protogen.Service, fn string, value func(*protogen.Method) string) {
	g.P("func (m ", methodType(service), ") ", fn, "() string {")
	g.P("switch m {")
	for _, method := range service.Methods {
		g.P("case ", methodConst(service, method), ":")
		g.P("return ", strconv.Quote(value(method)))
	}
	g.P("}")
	g.P("return \"\"")
	g.P("}")
	g.P()
}

func genDescriptor(g *protogen.GeneratedFile, service *protogen.Service) {
	typ := descriptorType(service)
	g.P("// ", typ, " describes the ", service.GoName, " service. Its zero value answers every query.")
	g.P("type ", typ, " struct{}")
	g.P()
	g.P("func (", typ, ") Name() string {")
	g.P("return ", strconv.Quote(service.GoName))
	g.P("}")
	g.P()
	g.P("func (", typ, ") ProtoName() string {")
	g.P("return ", strconv.Quote(string(service.Desc.FullName())))
	g.P("}")
	g.P()
	consts := make([]string, len(service.Methods))
	for i, method := range service.Methods {
		consts[i] = methodConst(service, method)
	}
	g.P("func (", typ, ") Methods() []", methodType(service), " {")
	g.P("return []", methodType(service), "{", strings.Join(consts, ", "), "}")
	g.P("}")
	g.P()
}

func signature(g *protogen.GeneratedFile, method *protogen.Method) string {
	return method.GoName + "(ctx " + g.QualifiedGoIdent(contextPackage.Ident("Context")) +
		", req *" + g.QualifiedGoIdent(method.Input.GoIdent) +
		") (*" + g.QualifiedGoIdent(method.Output.GoIdent) + ", error)"
}

func genInterface(g *protogen.GeneratedFile, service *protogen.Service) {
	if service.Comments.Leading != "" {
		g.P(strings.TrimSuffix(service.Comments.Leading.String(), "\n"))
		g.P("//")
	}
	g.P("// ", service.GoName, " is implemented by the ", service.GoName, " service. A returned error")
	g.P("// reaches the caller as an application error.")
	g.P("type ", service.GoName, " interface {")
	for _, method := range service.Methods {
		g.P(method.Comments.Leading, signature(g, method))
	}
	g.P("}")
	g.P()
}

func genClient(g *protogen.GeneratedFile, rt runtime, service *protogen.Service) {
	clientType := service.GoName + "Client"
	mt := methodType(service)
	g.P("// ", clientType, " calls the ", service.GoName, " service through a handler. It implements ", service.GoName, ".")
	g.P("type ", clientType, " struct {")
	g.P("cc *", g.QualifiedGoIdent(rt.client.Ident("Client")), "[", mt, "]")
	g.P("}")
	g.P()
	g.P("// New", clientType, " creates a client that sends every call through h.")
	g.P("func New", clientType, "(h ", g.QualifiedGoIdent(rt.handler.Ident("Handler")), "[", mt, "], opts ...", g.QualifiedGoIdent(rt.client.Ident("Option")), ") *", clientType, " {")
	g.P("return &", clientType, "{cc: ", g.QualifiedGoIdent(rt.client.Ident("New")), "[", mt, "](h, opts...)}")
	g.P("}")
	g.P()
	for _, method := range service.Methods {
		g.P("func (c *", clientType, ") ", signature(g, method), " {")
		g.P("return ", g.QualifiedGoIdent(rt.client.Ident("Invoke")), "[", mt, ", ", g.QualifiedGoIdent(method.Output.GoIdent), "](ctx, c.cc, ", methodConst(service, method), ", req)")
		g.P("}")
		g.P()
	}
}

func genServer(g *protogen.GeneratedFile, rt runtime, service *protogen.Service) {
	mt := methodType(service)
	dt := descriptorType(service)
	serverIdent := g.QualifiedGoIdent(rt.server.Ident("Server"))
	g.P("// New", service.GoName, "Server serves impl. The returned server implements the handler")
	g.P("// interface and can be passed to New", service.GoName, "Client directly.")
	g.P("func New", service.GoName, "Server(impl ", service.GoName, ", opts ...", g.QualifiedGoIdent(rt.server.Ident("Option")), ") *", serverIdent, "[", mt, "] {")
	g.P("return ", g.QualifiedGoIdent(rt.server.Ident("New")), "[", mt, "](", dt, "{}, func(ctx ", g.QualifiedGoIdent(contextPackage.Ident("Context")),
		", c ", g.QualifiedGoIdent(rt.codec.Ident("Codec")), ", m ", mt, ", input []byte) ([]byte, error) {")
	g.P("switch m {")
	for _, method := range service.Methods {
		g.P("case ", methodConst(service, method), ":")
		g.P("return ", g.QualifiedGoIdent(rt.server.Ident("Handle")), "(ctx, c, m.Name(), input, impl.", method.GoName, ")")
	}
	g.P("default:")
	g.P("return nil, ", g.QualifiedGoIdent(rt.server.Ident("UnknownMethod")), "[", mt, "](", dt, "{}, m)")
	g.P("}")
	g.P("}, opts...)")
	g.P("}")
	g.P()
}
