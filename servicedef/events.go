package servicedef

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	EventReady           = "ready"
	EventSessionCreated  = "session_created"
	EventSDPGenerated    = "sdp_generated"
	EventRemoteSDPSet    = "remote_sdp_set"
	EventMessageSent     = "message_sent"
	EventMessageReceived = "message_received"
	EventStatus          = "status"
	EventError           = "error"
)

// Event is one notification emitted by an endpoint process. Apart from Type, the set of fields
// depends on the event type and is not validated here.
type Event struct {
	Type   string
	Fields ldvalue.Value
	raw    string
}

// ParseEvent parses one line of endpoint output. It returns an error if the line is not a JSON
// object with a non-empty string "type" property.
func ParseEvent(line []byte) (Event, error) {
	var fields ldvalue.Value
	if err := json.Unmarshal(line, &fields); err != nil {
		return Event{}, err
	}
	if fields.Type() != ldvalue.ObjectType {
		return Event{}, errors.New("event is not a JSON object")
	}
	typeValue := fields.GetByKey("type")
	if typeValue.Type() != ldvalue.StringType || typeValue.StringValue() == "" {
		return Event{}, errors.New(`event has no "type" property`)
	}
	return Event{Type: typeValue.StringValue(), Fields: fields, raw: string(line)}, nil
}

// NewEvent builds an Event from a map of fields. A "type" entry in fields is ignored, since it
// would change the event type on the wire.
func NewEvent(eventType string, fields map[string]interface{}) Event {
	all := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		all[k] = v
	}
	all["type"] = eventType
	value := ldvalue.CopyArbitraryValue(all)
	return Event{Type: eventType, Fields: value, raw: value.JSONString()}
}

// Get returns the named field, or a null value if it is not present.
func (e Event) Get(key string) ldvalue.Value {
	return e.Fields.GetByKey(key)
}

// GetString returns the named field if it is a string, or "" otherwise.
func (e Event) GetString(key string) string {
	return e.Fields.GetByKey(key).StringValue()
}

// GetInt returns the named field if it is a number, or 0 otherwise.
func (e Event) GetInt(key string) int {
	return e.Fields.GetByKey(key).IntValue()
}

// ErrorMessage returns the "error" field of an error event.
func (e Event) ErrorMessage() string {
	return e.GetString("error")
}

func (e Event) String() string {
	if e.raw != "" {
		return e.raw
	}
	return fmt.Sprintf(`{"type":%q}`, e.Type)
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Fields.IsNull() {
		return json.Marshal(map[string]string{"type": e.Type})
	}
	return json.Marshal(e.Fields)
}
