package fakeendpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A minimal MSRP (RFC 4975) framing: enough to carry one complete, unchunked SEND request and
// its response between two reference endpoints.

type msrpRequest struct {
	transactionID string
	method        string
	headers       map[string]string
	body          string
}

type msrpResponse struct {
	transactionID string
	status        int
	comment       string
}

var errMalformedMSRP = errors.New("malformed MSRP message")

func writeSend(w io.Writer, transactionID, toPath, fromPath, messageID, contentType, body string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MSRP %s SEND\r\n", transactionID)
	fmt.Fprintf(&b, "To-Path: %s\r\n", toPath)
	fmt.Fprintf(&b, "From-Path: %s\r\n", fromPath)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Byte-Range: 1-%d/%d\r\n", len(body), len(body))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(body)
	fmt.Fprintf(&b, "\r\n-------%s$\r\n", transactionID)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeResponse(w io.Writer, transactionID string, status int, comment, toPath, fromPath string) error {
	_, err := fmt.Fprintf(w, "MSRP %s %d %s\r\nTo-Path: %s\r\nFrom-Path: %s\r\n-------%s$\r\n",
		transactionID, status, comment, toPath, fromPath, transactionID)
	return err
}

func readRequest(r *bufio.Reader) (msrpRequest, error) {
	start, err := readMSRPLine(r)
	if err != nil {
		return msrpRequest{}, err
	}
	fields := strings.SplitN(start, " ", 3)
	if len(fields) != 3 || fields[0] != "MSRP" {
		return msrpRequest{}, fmt.Errorf("%w: bad start line %q", errMalformedMSRP, start)
	}
	req := msrpRequest{transactionID: fields[1], method: fields[2], headers: make(map[string]string)}
	endLine := "-------" + req.transactionID + "$"

	for {
		line, err := readMSRPLine(r)
		if err != nil {
			return msrpRequest{}, err
		}
		if line == endLine {
			return req, nil
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return msrpRequest{}, fmt.Errorf("%w: bad header %q", errMalformedMSRP, line)
		}
		req.headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	size, err := bodySize(req.headers["byte-range"])
	if err != nil {
		return msrpRequest{}, err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return msrpRequest{}, err
	}
	req.body = string(body)
	for {
		line, err := readMSRPLine(r)
		if err != nil {
			return msrpRequest{}, err
		}
		if line == endLine {
			return req, nil
		}
		if line != "" {
			return msrpRequest{}, fmt.Errorf("%w: unexpected data after body", errMalformedMSRP)
		}
	}
}

// bodySize reads the total from a Byte-Range header of the form "1-N/N".
func bodySize(byteRange string) (int, error) {
	_, total, ok := strings.Cut(byteRange, "/")
	if !ok {
		return 0, fmt.Errorf("%w: bad Byte-Range %q", errMalformedMSRP, byteRange)
	}
	n, err := strconv.Atoi(total)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad Byte-Range %q", errMalformedMSRP, byteRange)
	}
	return n, nil
}

func readResponse(r *bufio.Reader) (msrpResponse, error) {
	start, err := readMSRPLine(r)
	if err != nil {
		return msrpResponse{}, err
	}
	fields := strings.SplitN(start, " ", 4)
	if len(fields) < 3 || fields[0] != "MSRP" {
		return msrpResponse{}, fmt.Errorf("%w: bad start line %q", errMalformedMSRP, start)
	}
	status, err := strconv.Atoi(fields[2])
	if err != nil {
		return msrpResponse{}, fmt.Errorf("%w: bad status %q", errMalformedMSRP, fields[2])
	}
	resp := msrpResponse{transactionID: fields[1], status: status}
	if len(fields) == 4 {
		resp.comment = fields[3]
	}
	endLine := "-------" + resp.transactionID + "$"
	for {
		line, err := readMSRPLine(r)
		if err != nil {
			return msrpResponse{}, err
		}
		if line == endLine {
			return resp, nil
		}
	}
}

func readMSRPLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
