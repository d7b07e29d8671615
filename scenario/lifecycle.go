package scenario

import (
	"fmt"
	"sort"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

// EndpointSpec describes an endpoint to be spawned.
type EndpointSpec struct {
	Role     string
	Config   servicedef.EndpointConfig
	Scenario string
}

// DefaultSpecs returns specs for the conventional "active" and "passive" endpoints. The passive
// endpoint comes first, so that it is listening before the active one starts.
func DefaultSpecs(scenario string) []EndpointSpec {
	return []EndpointSpec{
		{Role: servicedef.RolePassive, Config: servicedef.DefaultEndpointConfig(servicedef.RolePassive), Scenario: scenario},
		{Role: servicedef.RoleActive, Config: servicedef.DefaultEndpointConfig(servicedef.RoleActive), Scenario: scenario},
	}
}

// SpawnAll spawns the endpoints in order, stopping at the first failure.
func SpawnAll(h Harness, specs ...EndpointSpec) error {
	for _, spec := range specs {
		if _, err := h.SpawnEndpoint(spec.Role, spec.Config, spec.Scenario); err != nil {
			return stepFailed("spawn", spec.Role, err)
		}
	}
	return nil
}

// RestartResult reports the ports that each role was using before and after a restart.
type RestartResult struct {
	OldPorts map[string]int
	NewPorts map[string]int
}

// Changed returns the roles whose port is different after the restart, sorted.
func (r RestartResult) Changed() []string {
	var ret []string
	for role, newPort := range r.NewPorts {
		if oldPort, ok := r.OldPorts[role]; !ok || oldPort != newPort {
			ret = append(ret, role)
		}
	}
	sort.Strings(ret)
	return ret
}

// Restart tears down every endpoint and then spawns the given ones again. Roles that were not
// running before are absent from OldPorts.
func Restart(h Harness, specs ...EndpointSpec) (RestartResult, error) {
	result := RestartResult{OldPorts: make(map[string]int), NewPorts: make(map[string]int)}
	for _, spec := range specs {
		if port, ok := h.GetPort(spec.Role); ok {
			result.OldPorts[spec.Role] = port
		}
	}

	if err := h.CleanupAll(); err != nil {
		return result, fmt.Errorf("teardown before restart: %w", err)
	}

	for _, spec := range specs {
		if _, err := h.SpawnEndpoint(spec.Role, spec.Config, spec.Scenario); err != nil {
			return result, stepFailed("respawn", spec.Role, err)
		}
		port, _ := h.GetPort(spec.Role)
		result.NewPorts[spec.Role] = port
	}
	return result, nil
}
