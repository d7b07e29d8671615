package fakeendpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDescriptionFormat(t *testing.T) {
	d := sessionDescription{
		originID:    2,
		sessionName: "passive endpoint",
		host:        "127.0.0.1",
		port:        7394,
		acceptTypes: []string{"text/plain", "message/cpim"},
		path:        msrpPath("127.0.0.1", 7394, "passive_session"),
		setup:       "passive",
	}
	assert.Equal(t, "v=0\r\n"+
		"o=- 2 0 IN IP4 127.0.0.1\r\n"+
		"s=passive endpoint\r\n"+
		"c=IN IP4 127.0.0.1\r\n"+
		"t=0 0\r\n"+
		"m=message 7394 TCP/MSRP *\r\n"+
		"a=accept-types:text/plain message/cpim\r\n"+
		"a=path:msrp://127.0.0.1:7394/passive_session;tcp\r\n"+
		"a=setup:passive\r\n", d.String())

	parsed, err := parseSessionDescription(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParseSessionDescriptionRequiresPath(t *testing.T) {
	_, err := parseSessionDescription("v=0\nm=message 1 TCP/MSRP *\n")
	assert.Error(t, err)
}

func TestParseMSRPPath(t *testing.T) {
	address, sessionID, err := parseMSRPPath("msrp://127.0.0.1:2855/abc;tcp")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2855", address)
	assert.Equal(t, "abc", sessionID)

	address, _, err = parseMSRPPath(msrpPath("::1", 9, "x"))
	require.NoError(t, err)
	assert.Equal(t, "[::1]:9", address)

	for _, bad := range []string{"http://h:1/a", "msrp://h/a;tcp", "%%%"} {
		_, _, err := parseMSRPPath(bad)
		assert.Error(t, err, bad)
	}
}
