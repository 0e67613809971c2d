// Package registry holds the declarative list of expected deployment services
package registry

import (
	"sort"
)

// Role is the logical role a service plays in the deployment
type Role string

const (
	RoleApp      Role = "app"
	RoleDatabase Role = "database"
	RoleCache    Role = "cache"
	RoleProxy    Role = "proxy"
)

// Service describes one expected service of the deployment.
// Immutable once registered.
type Service struct {
	Name             string   `json:"name"`
	ContainerPattern string   `json:"container_pattern"`
	Role             Role     `json:"role"`
	ReadinessProbe   []string `json:"readiness_probe,omitempty"`
}

// defaultServices contains the smart-ration deployment layout
var defaultServices = []Service{
	{
		Name:             "bot",
		ContainerPattern: "smart_ration_bot",
		Role:             RoleApp,
	},
	{
		Name:             "db",
		ContainerPattern: "smart_ration_db",
		Role:             RoleDatabase,
		ReadinessProbe:   []string{"pg_isready", "-U", "postgres"},
	},
	{
		Name:             "redis",
		ContainerPattern: "smart_ration_redis",
		Role:             RoleCache,
		ReadinessProbe:   []string{"redis-cli", "ping"},
	},
	{
		Name:             "nginx",
		ContainerPattern: "smart_ration_nginx",
		Role:             RoleProxy,
	},
}

// Registry holds all known service descriptors
type Registry struct {
	services map[string]*Service
}

// NewRegistry creates a registry with the default service set
func NewRegistry() *Registry {
	return NewRegistryFromServices(defaultServices)
}

// NewRegistryFromServices creates a registry from an externally supplied
// service list, e.g. the services section of the config file.
func NewRegistryFromServices(services []Service) *Registry {
	r := &Registry{
		services: make(map[string]*Service, len(services)),
	}
	for i := range services {
		svc := services[i]
		r.services[svc.Name] = &svc
	}
	return r
}

// Get returns a service by name
func (r *Registry) Get(name string) (*Service, bool) {
	s, ok := r.services[name]
	return s, ok
}

// All returns all services sorted by name for consistent ordering
func (r *Registry) All() []*Service {
	result := make([]*Service, 0, len(r.services))
	for _, s := range r.services {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns all service names sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByRole returns the first service with the given role, if any
func (r *Registry) ByRole(role Role) (*Service, bool) {
	for _, s := range r.All() {
		if s.Role == role {
			return s, true
		}
	}
	return nil, false
}
