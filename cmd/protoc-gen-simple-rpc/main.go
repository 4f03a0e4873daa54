// protoc-gen-simple-rpc is a protoc plugin generating simple-rpc service code.
//
//	protoc -I . --simple-rpc_out=. --simple-rpc_opt=paths=source_relative echo/service.proto
//
// Parameters:
//
//	runtime=<import path>   import path prefix of the runtime packages (default "simple-rpc")
package main

import (
	"simple-rpc/generator"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"
)

func main() {
	var opts generator.Options
	protogen.Options{ParamFunc: opts.Set}.Run(func(gen *protogen.Plugin) error {
		gen.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)
		for _, f := range gen.Files {
			if !f.Generate {
				continue
			}
			if _, err := generator.GenerateFile(gen, f, opts); err != nil {
				return err
			}
		}
		return nil
	})
}
