// Package rpc serves the toolkit over gRPC as arkgrid.v1.Toolkit.
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/xtding233/arkgrid-toolkit/internal/logger"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

type Server struct {
	svc *service.Service
	log *logger.Logger
}

func NewServer(svc *service.Service, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{svc: svc, log: log.With("service", "ToolkitRPC")}
}

// NewGRPCServer builds a grpc.Server with the toolkit and health services
// registered.
func NewGRPCServer(svc *service.Service, log *logger.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := NewServer(svc, log)
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.logUnary),
		grpc.ChainStreamInterceptor(s.logStream),
	}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterToolkitServer(gs, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

func (s *Server) Allocate(ctx context.Context, req *service.OptimizeRequest) (*service.OptimizeResponse, error) {
	resp, err := s.svc.Optimize(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func (s *Server) AdviseReroll(ctx context.Context, req *service.AdviseRequest) (*service.AdviseResponse, error) {
	resp, err := s.svc.Advise(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

// Evaluate streams batch progress of both policies, then the result.
func (s *Server) Evaluate(req *service.EvaluateRequest, stream grpc.ServerStreamingServer[EvaluateFrame]) error {
	var mu sync.Mutex
	send := func(f *EvaluateFrame) error {
		mu.Lock()
		defer mu.Unlock()
		return stream.Send(f)
	}
	resp, err := s.svc.Evaluate(stream.Context(), *req, func(p refine.Progress) {
		if err := send(&EvaluateFrame{Progress: &p}); err != nil {
			s.log.Debug("progress frame dropped", "error", err)
		}
	})
	if err != nil {
		return toStatus(err)
	}
	return send(&EvaluateFrame{Result: &resp})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrStale):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logCall(info.FullMethod, start, err)
	return resp, err
}

func (s *Server) logStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	s.logCall(info.FullMethod, start, err)
	return err
}

func (s *Server) logCall(method string, start time.Time, err error) {
	code := status.Code(err)
	fields := []interface{}{
		"method", method,
		"code", code.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch code {
	case codes.OK:
		s.log.Info("gRPC call", fields...)
	case codes.Internal, codes.Unknown:
		s.log.Error("gRPC call", append(fields, "error", err)...)
	default:
		s.log.Warn("gRPC call", append(fields, "error", err)...)
	}
}
