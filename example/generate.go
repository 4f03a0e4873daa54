// Package example holds the demo services. Their *_rpc.pb.go files are regenerated with
// go generate from the .proto sources next to them.
package example

//go:generate protoc -I . --simple-rpc_out=. --simple-rpc_opt=paths=source_relative echo/service.proto greeting/service.proto
