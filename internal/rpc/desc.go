package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/xtding233/arkgrid-toolkit/internal/refine"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

const (
	ServiceName = "arkgrid.v1.Toolkit"

	allocateMethod     = "/" + ServiceName + "/Allocate"
	adviseRerollMethod = "/" + ServiceName + "/AdviseReroll"
	evaluateMethod     = "/" + ServiceName + "/Evaluate"
)

// EvaluateFrame is one message of the Evaluate stream: progress frames
// while the simulation runs, then exactly one result frame.
type EvaluateFrame struct {
	Progress *refine.Progress          `json:"progress,omitempty"`
	Result   *service.EvaluateResponse `json:"result,omitempty"`
}

// ToolkitServer is the server API of arkgrid.v1.Toolkit.
type ToolkitServer interface {
	Allocate(context.Context, *service.OptimizeRequest) (*service.OptimizeResponse, error)
	AdviseReroll(context.Context, *service.AdviseRequest) (*service.AdviseResponse, error)
	Evaluate(*service.EvaluateRequest, grpc.ServerStreamingServer[EvaluateFrame]) error
}

func RegisterToolkitServer(s grpc.ServiceRegistrar, srv ToolkitServer) {
	s.RegisterService(&ToolkitServiceDesc, srv)
}

func allocateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(service.OptimizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolkitServer).Allocate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: allocateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolkitServer).Allocate(ctx, req.(*service.OptimizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func adviseRerollHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(service.AdviseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolkitServer).AdviseReroll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: adviseRerollMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolkitServer).AdviseReroll(ctx, req.(*service.AdviseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func evaluateHandler(srv any, stream grpc.ServerStream) error {
	in := new(service.EvaluateRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ToolkitServer).Evaluate(in, &grpc.GenericServerStream[service.EvaluateRequest, EvaluateFrame]{ServerStream: stream})
}

// ToolkitServiceDesc describes arkgrid.v1.Toolkit. Messages are JSON, see
// CodecName.
var ToolkitServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ToolkitServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Allocate", Handler: allocateHandler},
		{MethodName: "AdviseReroll", Handler: adviseRerollHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Evaluate", Handler: evaluateHandler, ServerStreams: true},
	},
	Metadata: "arkgrid/v1/toolkit",
}
