package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestScannerHealthHook(t *testing.T) {
	hs := NewHealthServer()
	hook := ScannerHealthHook(hs)
	ctx := context.Background()

	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ScannerService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	hook(false)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ScannerService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	hook(true)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ScannerService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
