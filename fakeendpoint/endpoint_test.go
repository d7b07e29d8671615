package fakeendpoint

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

const eventTimeout = time.Second * 5

type testEndpoint struct {
	in     *io.PipeWriter
	events chan servicedef.Event
	done   chan error
	cancel context.CancelFunc
	port   int
}

func startTestEndpoint(t *testing.T, role string, configure ...func(*servicedef.EndpointConfig)) *testEndpoint {
	config := servicedef.DefaultEndpointConfig(role)
	config.Port = ldvalue.NewOptionalInt(0)
	for _, f := range configure {
		f(&config)
	}
	launch := servicedef.LaunchConfig{Type: role, Scenario: "test", Config: config}

	inReader, inWriter := io.Pipe()
	outReader, outWriter := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	te := &testEndpoint{
		in:     inWriter,
		events: make(chan servicedef.Event, 100),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		scanner := bufio.NewScanner(outReader)
		for scanner.Scan() {
			e, err := servicedef.ParseEvent(scanner.Bytes())
			if err == nil {
				te.events <- e
			}
		}
	}()
	go func() {
		te.done <- Run(ctx, launch, inReader, outWriter, nil)
		_ = outWriter.Close()
	}()
	t.Cleanup(func() {
		cancel()
		_ = inWriter.Close()
	})

	ready := te.expect(t, servicedef.EventReady)
	te.port = ready.GetInt("port")
	require.NotZero(t, te.port)
	return te
}

func (te *testEndpoint) send(t *testing.T, command string, params ...map[string]interface{}) {
	data, err := servicedef.EncodeCommand(command, params...)
	require.NoError(t, err)
	_, err = te.in.Write(append(data, '\n'))
	require.NoError(t, err)
}

func (te *testEndpoint) expect(t *testing.T, eventType string) servicedef.Event {
	select {
	case e := <-te.events:
		require.Equal(t, eventType, e.Type, "unexpected event: %s", e)
		return e
	case <-time.After(eventTimeout):
		require.Fail(t, "timed out waiting for event", eventType)
		return servicedef.Event{}
	}
}

func (te *testEndpoint) expectError(t *testing.T, substring string) servicedef.Event {
	e := te.expect(t, servicedef.EventError)
	assert.Contains(t, e.ErrorMessage(), substring)
	return e
}

func (te *testEndpoint) createSession(t *testing.T, id string) {
	te.send(t, servicedef.CommandCreateSession, servicedef.SessionParams(id))
	e := te.expect(t, servicedef.EventSessionCreated)
	require.Equal(t, id, e.GetString("sessionId"))
}

func (te *testEndpoint) generateSDP(t *testing.T, id string) string {
	te.send(t, servicedef.CommandGenerateSDP, servicedef.SessionParams(id))
	e := te.expect(t, servicedef.EventSDPGenerated)
	return e.GetString("sdp")
}

func (te *testEndpoint) setRemoteSDP(t *testing.T, id, sdp string) {
	te.send(t, servicedef.CommandSetRemoteSDP, servicedef.SessionParams(id), map[string]interface{}{"sdp": sdp})
	te.expect(t, servicedef.EventRemoteSDPSet)
}

func connect(t *testing.T, active, passive *testEndpoint) {
	activeID, passiveID := servicedef.SessionIDFor(servicedef.RoleActive), servicedef.SessionIDFor(servicedef.RolePassive)
	active.createSession(t, activeID)
	passive.createSession(t, passiveID)
	offer := active.generateSDP(t, activeID)
	passive.setRemoteSDP(t, passiveID, offer)
	answer := passive.generateSDP(t, passiveID)
	active.setRemoteSDP(t, activeID, answer)
}

func TestReadyReportsListeningPort(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RolePassive)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(te.port)))
	require.NoError(t, err)
	_ = conn.Close()
}

func TestCreateSession(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)
	te.createSession(t, "s1")

	te.send(t, servicedef.CommandCreateSession, servicedef.SessionParams("s1"))
	te.expectError(t, "Session already exists")

	te.send(t, servicedef.CommandCreateSession)
	te.expectError(t, "Missing sessionId")
}

func TestSessionNotFound(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)

	for _, command := range []string{
		servicedef.CommandGenerateSDP,
		servicedef.CommandSetRemoteSDP,
		servicedef.CommandSendMessage,
	} {
		t.Run(command, func(t *testing.T) {
			te.send(t, command, servicedef.SessionParams("active_session"))
			e := te.expectError(t, "Session not found")
			assert.Equal(t, "active_session", e.GetString("sessionId"))
		})
	}
}

func TestUnknownAndInvalidCommands(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)

	te.send(t, "invalid_command")
	te.expectError(t, "Unknown command")

	_, err := te.in.Write([]byte("this is not JSON\n"))
	require.NoError(t, err)
	te.expectError(t, "Invalid command")

	te.createSession(t, "still-working")
}

func TestGeneratedSDPDescribesSession(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)
	te.createSession(t, "abc")

	sdp := te.generateSDP(t, "abc")
	d, err := parseSessionDescription(sdp)
	require.NoError(t, err)
	assert.Equal(t, msrpPath("127.0.0.1", te.port, "abc"), d.path)
	assert.Equal(t, te.port, d.port)
	assert.Equal(t, "active", d.setup)
	assert.Equal(t, []string{"text/plain"}, d.acceptTypes)
	assert.Equal(t, "active endpoint", d.sessionName)

	assert.Equal(t, sdp, te.generateSDP(t, "abc"), "description should be stable for a session")
}

func TestSetRemoteSDPRejectsDescriptionWithoutPath(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RolePassive)
	te.createSession(t, "p")

	te.send(t, servicedef.CommandSetRemoteSDP, servicedef.SessionParams("p"), map[string]interface{}{"sdp": "v=0\r\n"})
	te.expectError(t, "Invalid SDP")
}

func TestStatus(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RolePassive)
	te.createSession(t, "b")
	te.createSession(t, "a")

	te.send(t, servicedef.CommandGetStatus)
	e := te.expect(t, servicedef.EventStatus)
	assert.Equal(t, "passive", e.GetString("role"))
	assert.Equal(t, te.port, e.GetInt("port"))
	assert.True(t, e.Get("serverListening").BoolValue())
	assert.JSONEq(t, `["a","b"]`, e.Get("sessions").JSONString())
}

func TestMessageIsDeliveredToPeer(t *testing.T) {
	active := startTestEndpoint(t, servicedef.RoleActive)
	passive := startTestEndpoint(t, servicedef.RolePassive, func(c *servicedef.EndpointConfig) {
		c.TraceMSRP = true
	})
	connect(t, active, passive)

	content := "Hello\r\nfrom the active side"
	active.send(t, servicedef.CommandSendMessage, servicedef.SessionParams("active_session"),
		map[string]interface{}{"content": content})
	sent := active.expect(t, servicedef.EventMessageSent)
	assert.Equal(t, content, sent.GetString("content"))
	assert.Equal(t, "active_session", sent.GetString("sessionId"))
	assert.Equal(t, "text/plain", sent.GetString("contentType"))

	received := passive.expect(t, servicedef.EventMessageReceived)
	assert.Equal(t, content, received.GetString("content"))
	assert.Equal(t, "passive_session", received.GetString("sessionId"))
	assert.Equal(t, sent.GetString("messageId"), received.GetString("messageId"))
	assert.Equal(t, msrpPath("127.0.0.1", active.port, "active_session"), received.GetString("from"))
}

func TestMessageWithUnsupportedContentTypeIsRejectedByPeer(t *testing.T) {
	active := startTestEndpoint(t, servicedef.RoleActive)
	passive := startTestEndpoint(t, servicedef.RolePassive)
	connect(t, active, passive)

	active.send(t, servicedef.CommandSendMessage, servicedef.SessionParams("active_session"),
		map[string]interface{}{"content": "{}", "contentType": "application/json"})
	active.expect(t, servicedef.EventMessageSent)
	passive.expectError(t, "Unsupported content type: application/json")
}

func TestMessageWithoutRemoteDescriptionIsOnlyReportedAsSent(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)
	te.createSession(t, "lonely")

	te.send(t, servicedef.CommandSendMessage, servicedef.SessionParams("lonely"),
		map[string]interface{}{"content": "anyone?"})
	e := te.expect(t, servicedef.EventMessageSent)
	assert.Equal(t, "anyone?", e.GetString("content"))
}

func TestRunReturnsWhenInputIsClosed(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)
	require.NoError(t, te.in.Close())

	select {
	case err := <-te.done:
		assert.NoError(t, err)
	case <-time.After(eventTimeout):
		require.Fail(t, "endpoint did not stop")
	}
}

func TestRunReturnsWhenCancelled(t *testing.T) {
	te := startTestEndpoint(t, servicedef.RoleActive)
	te.cancel()

	select {
	case err := <-te.done:
		assert.NoError(t, err)
	case <-time.After(eventTimeout):
		require.Fail(t, "endpoint did not stop")
	}
}

func TestRunFailsIfPortIsInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	config := servicedef.DefaultEndpointConfig(servicedef.RolePassive)
	config.Port = ldvalue.NewOptionalInt(port)
	launch := servicedef.LaunchConfig{Type: servicedef.RolePassive, Config: config}
	err = Run(context.Background(), launch, strings.NewReader(""), io.Discard, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot listen")
}

func TestLaunchConfigFromEnv(t *testing.T) {
	t.Setenv(servicedef.ConfigEnvVar, `{"type":"active","scenario":"basic","config":{"host":"127.0.0.1","port":0}}`)
	launch, err := LaunchConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "active", launch.Type)
	assert.Equal(t, "basic", launch.Scenario)
	assert.Equal(t, ldvalue.NewOptionalInt(0), launch.Config.Port)

	t.Setenv(servicedef.ConfigEnvVar, "")
	_, err = LaunchConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(servicedef.ConfigEnvVar, "{")
	_, err = LaunchConfigFromEnv()
	assert.Error(t, err)
}
