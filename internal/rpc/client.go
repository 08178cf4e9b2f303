package rpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"

	"github.com/xtding233/arkgrid-toolkit/internal/refine"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

// Client calls arkgrid.v1.Toolkit.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *Client) Allocate(ctx context.Context, in *service.OptimizeRequest, opts ...grpc.CallOption) (*service.OptimizeResponse, error) {
	out := new(service.OptimizeResponse)
	if err := c.cc.Invoke(ctx, allocateMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdviseReroll(ctx context.Context, in *service.AdviseRequest, opts ...grpc.CallOption) (*service.AdviseResponse, error) {
	out := new(service.AdviseResponse)
	if err := c.cc.Invoke(ctx, adviseRerollMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Evaluate(ctx context.Context, in *service.EvaluateRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[EvaluateFrame], error) {
	stream, err := c.cc.NewStream(ctx, &ToolkitServiceDesc.Streams[0], evaluateMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[service.EvaluateRequest, EvaluateFrame]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// EvaluateAll drains the Evaluate stream, handing progress frames to
// onProgress, and returns the result frame.
func (c *Client) EvaluateAll(ctx context.Context, in *service.EvaluateRequest, onProgress func(refine.Progress)) (*service.EvaluateResponse, error) {
	stream, err := c.Evaluate(ctx, in)
	if err != nil {
		return nil, err
	}
	var result *service.EvaluateResponse
	for {
		f, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case f.Result != nil:
			result = f.Result
		case f.Progress != nil && onProgress != nil:
			onProgress(*f.Progress)
		}
	}
	if result == nil {
		return nil, errors.New("rpc: evaluate stream ended without a result")
	}
	return result, nil
}
