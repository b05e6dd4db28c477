package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/fieldcomp/internal/logger"
)

// LoggingInterceptor logs each unary call and stores a per-call logger in the
// context for handlers (logger.FromContext).
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		callLog := log.With(zap.String("method", info.FullMethod))

		resp, err := handler(logger.ContextWithLogger(ctx, callLog), req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.OK:
			callLog.Debug("rpc completed", fields...)
		case codes.Internal, codes.Unknown:
			callLog.Error("rpc failed", append(fields, zap.Error(err))...)
		default:
			callLog.Warn("rpc rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// TimeoutInterceptor bounds every unary call by timeout. A shorter client
// deadline still wins.
func TimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}
