package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names on the wire.
const (
	ServiceName      = "fieldcomp.v1.Composer"
	DeriveFullMethod = "/fieldcomp.v1.Composer/Derive"
)

// ComposerServer is the server API for the Composer service.
type ComposerServer interface {
	Derive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ComposerClient is the client API for the Composer service.
type ComposerClient interface {
	Derive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type composerClient struct {
	cc grpc.ClientConnInterface
}

// NewComposerClient creates a client over cc.
func NewComposerClient(cc grpc.ClientConnInterface) ComposerClient {
	return &composerClient{cc: cc}
}

func (c *composerClient) Derive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DeriveFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterComposerServer registers srv on s.
func RegisterComposerServer(s grpc.ServiceRegistrar, srv ComposerServer) {
	s.RegisterService(&ComposerServiceDesc, srv)
}

func deriveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComposerServer).Derive(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: DeriveFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComposerServer).Derive(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ComposerServiceDesc describes the Composer service. Messages are
// google.protobuf.Struct, so no generated message types are required.
var ComposerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ComposerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Derive",
			Handler:    deriveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldcomp/v1/composer.proto",
}
