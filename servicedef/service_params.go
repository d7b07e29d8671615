package servicedef

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ConfigEnvVar is the environment variable that carries the JSON-encoded LaunchConfig to an
// endpoint process.
const ConfigEnvVar = "ENDPOINT_CONFIG"

const (
	RoleActive  = "active"
	RolePassive = "passive"
)

const (
	CommandCreateSession = "create_session"
	CommandGenerateSDP   = "generate_sdp"
	CommandSetRemoteSDP  = "set_remote_sdp"
	CommandSendMessage   = "send_message"
	CommandGetStatus     = "get_status"
)

// LaunchConfig is delivered once to each endpoint process when it starts.
type LaunchConfig struct {
	Type     string         `json:"type"`
	Scenario string         `json:"scenario"`
	RunID    string         `json:"runId,omitempty"`
	Config   EndpointConfig `json:"config"`
}

// EndpointConfig holds the protocol-specific options for one endpoint.
//
// If Port is undefined, the harness reserves a free port before launching the process. A
// defined Port, including 0 (meaning the OS picks one), is passed through unchanged.
//
// Extra holds implementation-specific options. On the wire they appear alongside the named
// properties rather than in a nested object; a key that collides with a named property is
// dropped.
type EndpointConfig struct {
	Host        string                 `json:"host"`
	Port        ldvalue.OptionalInt    `json:"port"`
	Setup       string                 `json:"setup,omitempty"`
	SessionName string                 `json:"sessionName,omitempty"`
	AcceptTypes []string               `json:"acceptTypes,omitempty"`
	TraceMSRP   bool                   `json:"traceMsrp"`
	Extra       map[string]interface{} `json:"-"`
}

// DefaultEndpointConfig returns the configuration conventionally used for a role: the
// "active" endpoint initiates the connection and the "passive" one listens.
func DefaultEndpointConfig(role string) EndpointConfig {
	setup := "passive"
	if role == RoleActive {
		setup = "active"
	}
	return EndpointConfig{
		Host:        "127.0.0.1",
		Setup:       setup,
		SessionName: role + " endpoint",
		AcceptTypes: []string{"text/plain"},
	}
}

// SessionIDFor returns the conventional session identifier for a role.
func SessionIDFor(role string) string {
	return role + "_session"
}

type endpointConfigFields EndpointConfig

var endpointConfigKeys = []string{"host", "port", "setup", "sessionName", "acceptTypes", "traceMsrp"}

func (c EndpointConfig) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(endpointConfigFields(c))
	if err != nil || len(c.Extra) == 0 {
		return data, err
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(data, &named); err != nil {
		return nil, err
	}
	all := make(map[string]interface{}, len(named)+len(c.Extra))
	for k, v := range c.Extra {
		all[k] = v
	}
	for k, v := range named {
		all[k] = v
	}
	return json.Marshal(all)
}

func (c *EndpointConfig) UnmarshalJSON(data []byte) error {
	var fields endpointConfigFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range endpointConfigKeys {
		delete(all, k)
	}
	*c = EndpointConfig(fields)
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}
