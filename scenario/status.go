package scenario

import "github.com/msrp-tools/msrp-contract-tests/servicedef"

// Status is an endpoint's answer to get_status.
type Status struct {
	Role            string
	Port            int
	ServerListening bool
	Sessions        []string
}

// GetStatus asks an endpoint for its status.
func GetStatus(h Harness, role string) (Status, error) {
	e, err := request(h, role, servicedef.CommandGetStatus, servicedef.EventStatus)
	if err != nil {
		return Status{}, stepFailed("get status", role, err)
	}
	status := Status{
		Role:            e.GetString("role"),
		Port:            e.GetInt("port"),
		ServerListening: e.Get("serverListening").BoolValue(),
		Sessions:        []string{},
	}
	sessions := e.Get("sessions")
	for i := 0; i < sessions.Count(); i++ {
		status.Sessions = append(status.Sessions, sessions.GetByIndex(i).StringValue())
	}
	return status, nil
}
