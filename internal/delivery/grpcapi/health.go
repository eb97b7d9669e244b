package grpcapi

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// MaintenanceHealth reports NOT_SERVING for the checkout service while the store is in
// maintenance mode.
type MaintenanceHealth struct {
	Server  *health.Server
	service string
}

func NewMaintenanceHealth(service string) *MaintenanceHealth {
	h := &MaintenanceHealth{Server: health.NewServer(), service: service}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return h
}

func (h *MaintenanceHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.Server)
}

func (h *MaintenanceHealth) Apply(settings domain.StoreSettings) {
	status := healthpb.HealthCheckResponse_SERVING
	if settings.MaintenanceMode {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.set(status)
}

// Run applies settings updates until ctx is done or the channel closes, then marks every
// service NOT_SERVING.
func (h *MaintenanceHealth) Run(ctx context.Context, updates <-chan domain.StoreSettings) {
	defer h.Server.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case settings, ok := <-updates:
			if !ok {
				return
			}
			h.Apply(settings)
		}
	}
}

func (h *MaintenanceHealth) set(status healthpb.HealthCheckResponse_ServingStatus) {
	slog.Debug("grpc health status", "service", h.service, "status", status.String())
	h.Server.SetServingStatus("", status)
	h.Server.SetServingStatus(h.service, status)
}
