package fakeendpoint

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// sessionDescription is the subset of an SDP offer/answer (RFC 4566, RFC 4975 section 8) that the
// reference endpoint produces and understands.
type sessionDescription struct {
	originID    int
	sessionName string
	host        string
	port        int
	acceptTypes []string
	path        string
	setup       string
}

func (d sessionDescription) String() string {
	lines := []string{
		"v=0",
		fmt.Sprintf("o=- %d 0 IN IP4 %s", d.originID, d.host),
		"s=" + d.sessionName,
		"c=IN IP4 " + d.host,
		"t=0 0",
		fmt.Sprintf("m=message %d TCP/MSRP *", d.port),
		"a=accept-types:" + strings.Join(d.acceptTypes, " "),
		"a=path:" + d.path,
	}
	if d.setup != "" {
		lines = append(lines, "a=setup:"+d.setup)
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

func msrpPath(host string, port int, sessionID string) string {
	return fmt.Sprintf("msrp://%s/%s;tcp", net.JoinHostPort(host, strconv.Itoa(port)), sessionID)
}

// parseSessionDescription extracts the attributes needed to deliver messages to the peer.
func parseSessionDescription(sdp string) (sessionDescription, error) {
	var d sessionDescription
	for _, line := range strings.Split(strings.ReplaceAll(sdp, "\r\n", "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "o="):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				d.originID, _ = strconv.Atoi(fields[1])
			}
		case strings.HasPrefix(line, "s="):
			d.sessionName = strings.TrimPrefix(line, "s=")
		case strings.HasPrefix(line, "c=IN IP4 "):
			d.host = strings.TrimPrefix(line, "c=IN IP4 ")
		case strings.HasPrefix(line, "m=message "):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				d.port, _ = strconv.Atoi(fields[1])
			}
		case strings.HasPrefix(line, "a=accept-types:"):
			d.acceptTypes = strings.Fields(strings.TrimPrefix(line, "a=accept-types:"))
		case strings.HasPrefix(line, "a=path:"):
			d.path = strings.TrimSpace(strings.TrimPrefix(line, "a=path:"))
		case strings.HasPrefix(line, "a=setup:"):
			d.setup = strings.TrimPrefix(line, "a=setup:")
		}
	}
	if d.path == "" {
		return d, errors.New("no a=path attribute")
	}
	return d, nil
}

// parseMSRPPath splits a URI such as "msrp://127.0.0.1:2855/abc;tcp" into the address to dial
// and the session ID.
func parseMSRPPath(path string) (address, sessionID string, err error) {
	u, err := url.Parse(strings.TrimSuffix(path, ";tcp"))
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "msrp" && u.Scheme != "msrps" {
		return "", "", fmt.Errorf("not an MSRP URI: %s", path)
	}
	if u.Port() == "" {
		return "", "", fmt.Errorf("MSRP URI has no port: %s", path)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
