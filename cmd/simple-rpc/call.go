package main

import (
	"context"
	"fmt"
	"strings"

	"simple-rpc/client"
	"simple-rpc/codec"
	"simple-rpc/config"
	"simple-rpc/example/echo"
	"simple-rpc/example/greeting"
	"simple-rpc/loadbalance"
	"simple-rpc/registry"
	"simple-rpc/transport"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Target selects where calls go: a fixed address, or the registry when Addr is empty
// and the config lists etcd endpoints.
type Target struct {
	Addr string `short:"a" long:"addr" description:"server address, overrides the config"`
}

// caller returns the transport for cfg and a func releasing it.
func (t *Target) caller(ctx context.Context, cfg config.Config) (transport.Caller, func(), error) {
	opts := []transport.Option{
		transport.WithCodec(cfg.CodecType()),
		transport.WithCompression(cfg.Compressed()),
	}

	if t.Addr == "" && len(cfg.Registry.Endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints, cfg.Registry.DialTimeout)
		if err != nil {
			return nil, nil, err
		}
		bal, err := loadbalance.New(cfg.Registry.Balancer)
		if err != nil {
			reg.Close()
			return nil, nil, err
		}
		d := transport.NewDiscovery(reg, bal, transport.NewPool(1, opts...))
		return d, func() {
			d.Close()
			reg.Close()
		}, nil
	}

	addr := t.Addr
	if addr == "" {
		addr = cfg.AdvertiseAddr()
	}
	ct, err := transport.Dial(ctx, addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ct, func() { ct.Close() }, nil
}

// callContext bounds a command by the configured timeout, if any.
func callContext(cfg config.Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(context.Background(), cfg.Timeout)
	}
	return context.WithCancel(context.Background())
}

func clientOptions(cfg config.Config) []client.Option {
	return []client.Option{client.WithCodec(codec.GetCodec(cfg.CodecType()))}
}

// EchoCmd sends its arguments to Echo and prints the reply.
type EchoCmd struct {
	Target
}

func (e *EchoCmd) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := callContext(cfg)
	defer cancel()

	c, release, err := e.caller(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	cli := echo.NewEchoClient(transport.NewHandler[echo.EchoMethod](c, echo.EchoDescriptor{}), clientOptions(cfg)...)
	resp, err := cli.Echo(ctx, wrapperspb.Bytes([]byte(strings.Join(args, " "))))
	if err != nil {
		return err
	}
	fmt.Println(string(resp.GetValue()))
	return nil
}

// HelloCmd greets every argument.
type HelloCmd struct {
	Target
	Goodbye bool `long:"goodbye" description:"say goodbye instead"`
}

func (h *HelloCmd) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("hello: at least one name is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := callContext(cfg)
	defer cancel()

	c, release, err := h.caller(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	cli := greeting.NewGreetingClient(transport.NewHandler[greeting.GreetingMethod](c, greeting.GreetingDescriptor{}), clientOptions(cfg)...)
	call := cli.SayHello
	if h.Goodbye {
		call = cli.SayGoodbye
	}
	for _, name := range args {
		resp, err := call(ctx, wrapperspb.String(name))
		if err != nil {
			return err
		}
		fmt.Println(resp.GetValue())
	}
	return nil
}
