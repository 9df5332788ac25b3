package servicemanager

import "context"

type ServiceStatus string

const (
	Active   ServiceStatus = "active"
	Inactive ServiceStatus = "inactive"
	Failed   ServiceStatus = "failed"
)

// ServiceManager represents operations that can be performed on system
// services.
type ServiceManager interface {
	EnableService(ctx context.Context, serviceName string) error
	StartService(ctx context.Context, serviceName string) error
	EnableServiceNow(ctx context.Context, serviceName string) error
	CheckServiceStatus(ctx context.Context, serviceName string) (ServiceStatus, error)
	IsServiceEnabled(ctx context.Context, serviceName string) (bool, error)

	// SystemRunning returns the init system's overall state, e.g.
	// "running", "degraded" or "offline".
	SystemRunning(ctx context.Context) (string, error)
}
