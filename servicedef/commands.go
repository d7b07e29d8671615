package servicedef

import "encoding/json"

// EncodeCommand builds one line of the endpoint command protocol, without the trailing newline.
// Later parameter maps override earlier ones; the "command" property cannot be overridden.
func EncodeCommand(command string, params ...map[string]interface{}) ([]byte, error) {
	allParams := map[string]interface{}{}
	for _, p := range params {
		for k, v := range p {
			allParams[k] = v
		}
	}
	allParams["command"] = command
	return json.Marshal(allParams)
}

// SessionParams is a shortcut for the parameters of commands that only take a session ID.
func SessionParams(sessionID string) map[string]interface{} {
	return map[string]interface{}{"sessionId": sessionID}
}
