// Package fakeendpoint is a reference implementation of the endpoint side of the command/event
// protocol. It is used to test the harness itself, and shows endpoint implementers what the
// contract tests expect.
package fakeendpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msrp-tools/msrp-contract-tests/framework"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

const (
	defaultHost        = "127.0.0.1"
	defaultContentType = "text/plain"
	deliveryTimeout    = time.Second * 5
	maxCommandLength   = 1024 * 1024
)

type command struct {
	Command     string `json:"command"`
	SessionID   string `json:"sessionId"`
	SDP         string `json:"sdp"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type session struct {
	id         string
	originID   int
	localPath  string
	remotePath string
}

type endpoint struct {
	launch      servicedef.LaunchConfig
	host        string
	port        int
	acceptTypes []string
	listener    net.Listener
	out         *eventWriter
	logger      framework.Logger
	sessions    map[string]*session
	created     int
	workers     sync.WaitGroup
	lock        sync.Mutex
}

type eventWriter struct {
	out  io.Writer
	lock sync.Mutex
}

func (w *eventWriter) emit(eventType string, fields map[string]interface{}) {
	data, err := json.Marshal(servicedef.NewEvent(eventType, fields))
	if err != nil {
		return
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	_, _ = w.out.Write(append(data, '\n'))
}

// Run starts listening for MSRP connections, emits a "ready" event, and then executes the
// commands read from in until in is closed or ctx is cancelled. Events are written to out. An
// error is returned only if the endpoint could not start.
func Run(
	ctx context.Context,
	launch servicedef.LaunchConfig,
	in io.Reader,
	out io.Writer,
	logger framework.Logger,
) error {
	if logger == nil {
		logger = framework.NullLogger()
	}
	e := &endpoint{
		launch:      launch,
		host:        launch.Config.Host,
		acceptTypes: launch.Config.AcceptTypes,
		out:         &eventWriter{out: out},
		logger:      logger,
		sessions:    make(map[string]*session),
	}
	if e.host == "" {
		e.host = defaultHost
	}
	if len(e.acceptTypes) == 0 {
		e.acceptTypes = []string{defaultContentType}
	}

	address := net.JoinHostPort(e.host, strconv.Itoa(launch.Config.Port.OrElse(0)))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", address, err)
	}
	e.listener = listener
	e.port = listener.Addr().(*net.TCPAddr).Port
	logger.Printf("%s endpoint listening on %s (scenario %q, run %s)",
		launch.Type, listener.Addr(), launch.Scenario, launch.RunID)

	e.workers.Add(1)
	go e.acceptConnections()

	e.out.emit(servicedef.EventReady, map[string]interface{}{"port": e.port})

	lines := make(chan []byte)
	go readLines(in, lines, ctx.Done(), logger)
	for {
		select {
		case <-ctx.Done():
			logger.Printf("Interrupted, shutting down")
			e.shutdown()
			return nil
		case line, ok := <-lines:
			if !ok {
				logger.Printf("Input closed, shutting down")
				e.shutdown()
				return nil
			}
			e.handleCommand(line)
		}
	}
}

func readLines(in io.Reader, lines chan<- []byte, done <-chan struct{}, logger framework.Logger) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCommandLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case lines <- []byte(line):
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Printf("Error reading commands: %s", err)
	}
}

func (e *endpoint) shutdown() {
	_ = e.listener.Close()
	e.workers.Wait()
}

func (e *endpoint) handleCommand(line []byte) {
	var cmd command
	if err := json.Unmarshal(line, &cmd); err != nil {
		e.emitError("", "Invalid command: %s", err)
		return
	}
	switch cmd.Command {
	case servicedef.CommandCreateSession:
		e.createSession(cmd)
	case servicedef.CommandGenerateSDP:
		e.generateSDP(cmd)
	case servicedef.CommandSetRemoteSDP:
		e.setRemoteSDP(cmd)
	case servicedef.CommandSendMessage:
		e.sendMessage(cmd)
	case servicedef.CommandGetStatus:
		e.getStatus()
	default:
		e.emitError("", "Unknown command: %s", cmd.Command)
	}
}

func (e *endpoint) createSession(cmd command) {
	if cmd.SessionID == "" {
		e.emitError("", "Missing sessionId")
		return
	}
	e.lock.Lock()
	if _, exists := e.sessions[cmd.SessionID]; exists {
		e.lock.Unlock()
		e.emitError(cmd.SessionID, "Session already exists: %s", cmd.SessionID)
		return
	}
	e.created++
	e.sessions[cmd.SessionID] = &session{
		id:        cmd.SessionID,
		originID:  e.created,
		localPath: msrpPath(e.host, e.port, cmd.SessionID),
	}
	e.lock.Unlock()
	e.out.emit(servicedef.EventSessionCreated, map[string]interface{}{"sessionId": cmd.SessionID})
}

func (e *endpoint) generateSDP(cmd command) {
	s, ok := e.getSession(cmd.SessionID)
	if !ok {
		return
	}
	sdp := sessionDescription{
		originID:    s.originID,
		sessionName: e.launch.Config.SessionName,
		host:        e.host,
		port:        e.port,
		acceptTypes: e.acceptTypes,
		path:        s.localPath,
		setup:       e.launch.Config.Setup,
	}
	if sdp.sessionName == "" {
		sdp.sessionName = "-"
	}
	e.out.emit(servicedef.EventSDPGenerated, map[string]interface{}{
		"sessionId": s.id,
		"sdp":       sdp.String(),
	})
}

func (e *endpoint) setRemoteSDP(cmd command) {
	s, ok := e.getSession(cmd.SessionID)
	if !ok {
		return
	}
	remote, err := parseSessionDescription(cmd.SDP)
	if err != nil {
		e.emitError(s.id, "Invalid SDP: %s", err)
		return
	}
	if _, _, err := parseMSRPPath(remote.path); err != nil {
		e.emitError(s.id, "Invalid SDP: %s", err)
		return
	}
	e.lock.Lock()
	s.remotePath = remote.path
	e.lock.Unlock()
	e.out.emit(servicedef.EventRemoteSDPSet, map[string]interface{}{"sessionId": s.id})
}

func (e *endpoint) sendMessage(cmd command) {
	s, ok := e.getSession(cmd.SessionID)
	if !ok {
		return
	}
	contentType := cmd.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	e.lock.Lock()
	remotePath := s.remotePath
	e.lock.Unlock()

	messageID := uuid.NewString()
	e.out.emit(servicedef.EventMessageSent, map[string]interface{}{
		"sessionId":   s.id,
		"content":     cmd.Content,
		"contentType": contentType,
		"messageId":   messageID,
	})
	if remotePath == "" {
		e.logger.Printf("Session %s has no remote description; message %s not delivered", s.id, messageID)
		return
	}
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		if err := e.deliver(s.localPath, remotePath, messageID, contentType, cmd.Content); err != nil {
			e.logger.Printf("Delivery of message %s to %s failed: %s", messageID, remotePath, err)
		}
	}()
}

func (e *endpoint) getStatus() {
	e.lock.Lock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.lock.Unlock()
	sort.Strings(ids)
	sessions := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, id)
	}
	e.out.emit(servicedef.EventStatus, map[string]interface{}{
		"role":            e.launch.Type,
		"port":            e.port,
		"serverListening": true,
		"sessions":        sessions,
	})
}

func (e *endpoint) getSession(id string) (*session, bool) {
	e.lock.Lock()
	s, ok := e.sessions[id]
	e.lock.Unlock()
	if !ok {
		e.emitError(id, "Session not found: %s", id)
	}
	return s, ok
}

func (e *endpoint) emitError(sessionID, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	e.logger.Printf("Error: %s", message)
	fields := map[string]interface{}{"error": message}
	if sessionID != "" {
		fields["sessionId"] = sessionID
	}
	e.out.emit(servicedef.EventError, fields)
}

func (e *endpoint) deliver(fromPath, toPath, messageID, contentType, content string) error {
	address, _, err := parseMSRPPath(toPath)
	if err != nil {
		return err
	}
	conn, err := net.DialTimeout("tcp", address, deliveryTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deliveryTimeout))

	transactionID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if err := writeSend(conn, transactionID, toPath, fromPath, messageID, contentType, content); err != nil {
		return err
	}
	e.trace("sent SEND %s to %s", transactionID, toPath)
	resp, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		return err
	}
	e.trace("received %d %s for %s", resp.status, resp.comment, transactionID)
	if resp.status != 200 {
		return fmt.Errorf("peer responded %d %s", resp.status, resp.comment)
	}
	return nil
}

func (e *endpoint) acceptConnections() {
	defer e.workers.Done()
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				e.logger.Printf("Accept failed: %s", err)
			}
			return
		}
		e.workers.Add(1)
		go e.serveConnection(conn)
	}
}

func (e *endpoint) serveConnection(conn net.Conn) {
	defer e.workers.Done()
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deliveryTimeout))
	r := bufio.NewReader(conn)
	for {
		req, err := readRequest(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Printf("Error reading from %s: %s", conn.RemoteAddr(), err)
			}
			return
		}
		e.trace("received %s %s from %s", req.method, req.transactionID, req.headers["from-path"])
		status, comment := e.handleRequest(req)
		if err := writeResponse(conn, req.transactionID, status, comment,
			req.headers["from-path"], req.headers["to-path"]); err != nil {
			return
		}
	}
}

func (e *endpoint) handleRequest(req msrpRequest) (int, string) {
	if req.method != "SEND" {
		return 501, "Not Implemented"
	}
	_, sessionID, err := parseMSRPPath(req.headers["to-path"])
	if err != nil {
		return 400, "Bad Request"
	}
	e.lock.Lock()
	_, ok := e.sessions[sessionID]
	e.lock.Unlock()
	if !ok {
		return 481, "Session Does Not Exist"
	}
	contentType := req.headers["content-type"]
	if !e.accepts(contentType) {
		e.emitError(sessionID, "Unsupported content type: %s", contentType)
		return 415, "Unsupported Media Type"
	}
	e.out.emit(servicedef.EventMessageReceived, map[string]interface{}{
		"sessionId":   sessionID,
		"content":     req.body,
		"contentType": contentType,
		"messageId":   req.headers["message-id"],
		"from":        req.headers["from-path"],
	})
	return 200, "OK"
}

func (e *endpoint) accepts(contentType string) bool {
	for _, t := range e.acceptTypes {
		if t == "*" || strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func (e *endpoint) trace(format string, args ...interface{}) {
	if e.launch.Config.TraceMSRP {
		e.logger.Printf("MSRP: "+format, args...)
	}
}
