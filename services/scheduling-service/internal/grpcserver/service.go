// Package grpcserver serves the read side of the engine over gRPC. Messages
// are google.protobuf.Struct so the service needs no generated code.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "scheduling.v1.Availability"

const (
	MethodCheckAvailability = "/" + ServiceName + "/CheckAvailability"
	MethodListFreeSlots     = "/" + ServiceName + "/ListFreeSlots"
	MethodProjectMonth      = "/" + ServiceName + "/ProjectMonth"
)

type AvailabilityServer interface {
	CheckAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListFreeSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ProjectMonth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv AvailabilityServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckAvailability",
			Handler:    unary(MethodCheckAvailability, AvailabilityServer.CheckAvailability),
		},
		{
			MethodName: "ListFreeSlots",
			Handler:    unary(MethodListFreeSlots, AvailabilityServer.ListFreeSlots),
		},
		{
			MethodName: "ProjectMonth",
			Handler:    unary(MethodProjectMonth, AvailabilityServer.ProjectMonth),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduling/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the availability service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCheckAvailability, in, opts...)
}

func (c *Client) ListFreeSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListFreeSlots, in, opts...)
}

func (c *Client) ProjectMonth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProjectMonth, in, opts...)
}
