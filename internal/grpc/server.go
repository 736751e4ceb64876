package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"draw-service/internal/logger"
)

// ScannerService is the health service name reported for the draw scanner.
const ScannerService = "draw.scanner"

func NewHealthServer() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_SERVING)
	return hs
}

// ScannerHealthHook adapts scanner health changes to the health server.
func ScannerHealthHook(hs *health.Server) func(serving bool) {
	return func(serving bool) {
		status := healthpb.HealthCheckResponse_SERVING
		if !serving {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(ScannerService, status)
		logger.Warningf("scanner health is now %s", status)
	}
}

func NewServer(hs *health.Server) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return s
}

func StartGRPCServer(port string, s *grpc.Server) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}

	logger.Infof("gRPC server listening at %v", lis.Addr())
	if err := s.Serve(lis); err != nil {
		logger.Fatalf("failed to serve: %v", err)
	}
}
