package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the protocol from the far side of a pipe pair.
type fakeServer struct {
	mu       sync.Mutex
	methods  []string
	commands []string
}

func (s *fakeServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.methods...)
}

func (s *fakeServer) serve(r io.Reader, w io.Writer) {
	br := bufio.NewReader(r)
	for {
		frame, err := readRawFrame(br)
		if err != nil {
			return
		}
		var req struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(frame, &req); err != nil {
			return
		}
		s.mu.Lock()
		s.methods = append(s.methods, req.Method)
		s.mu.Unlock()
		if req.ID == nil {
			continue
		}

		reply := map[string]interface{}{"jsonrpc": "2.0", "id": *req.ID}
		switch req.Method {
		case "initialize":
			reply["result"] = map[string]interface{}{
				"serverInfo":   map[string]string{"name": "fake-analysis-server"},
				"capabilities": map[string]interface{}{"commands": s.commands},
			}
		case "workspace/executeCommand":
			var params struct {
				Command string `json:"command"`
			}
			json.Unmarshal(req.Params, &params)
			if params.Command == "explode" {
				reply["error"] = map[string]interface{}{"code": -32000, "message": "boom"}
			} else {
				reply["result"] = map[string]string{"echo": params.Command}
			}
		default:
			reply["result"] = nil
		}
		writeFrame(w, reply)
	}
}

// readRawFrame reads one framed body without interpreting it.
func readRawFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				length = n
			}
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func newTestPair(t *testing.T, commands []string) (*Client, *fakeServer) {
	t.Helper()
	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()
	server := &fakeServer{commands: commands}
	go server.serve(serverIn, serverOut)
	client := NewClient(clientIn, clientOut, clientOut)
	t.Cleanup(func() { client.Close() })
	return client, server
}

func TestInitializeReturnsAdvertisedCommands(t *testing.T) {
	client, server := newTestPair(t, []string{"lint", "reindex"})

	result, err := client.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "reindex"}, result.Capabilities.Commands)
	assert.Equal(t, "fake-analysis-server", result.ServerInfo.Name)

	require.Eventually(t, func() bool {
		seen := server.seen()
		return len(seen) == 2 && seen[0] == "initialize" && seen[1] == "initialized"
	}, time.Second, time.Millisecond)
}

func TestExecuteCommandRoundTrip(t *testing.T) {
	client, _ := newTestPair(t, []string{"lint"})

	result, err := client.ExecuteCommand(context.Background(), "lint")
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"lint"}`, string(result))
}

func TestExecuteCommandServerError(t *testing.T) {
	client, _ := newTestPair(t, nil)

	_, err := client.ExecuteCommand(context.Background(), "explode")
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, -32000, respErr.Code)
	assert.Equal(t, "boom", respErr.Message)
}

func TestPing(t *testing.T) {
	client, server := newTestPair(t, nil)

	require.NoError(t, client.Ping(context.Background()))
	assert.Contains(t, server.seen(), "ansup/ping")
}

func TestShutdownExchange(t *testing.T) {
	client, server := newTestPair(t, nil)

	require.NoError(t, client.Shutdown(context.Background()))
	require.Eventually(t, func() bool {
		seen := server.seen()
		return len(seen) == 2 && seen[0] == "shutdown" && seen[1] == "exit"
	}, time.Second, time.Millisecond)
}

func TestCallAfterCloseFails(t *testing.T) {
	client, _ := newTestPair(t, nil)
	require.NoError(t, client.Close())

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCallHonorsContextCancellation(t *testing.T) {
	// No server on the far side: the call can never complete.
	clientIn, _ := io.Pipe()
	serverIn, clientOut := io.Pipe()
	go io.Copy(io.Discard, serverIn)
	client := NewClient(clientIn, clientOut, clientOut)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := client.Call(ctx, "ansup/ping", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	id := int64(7)
	require.NoError(t, writeFrame(&buf, &request{JSONRPC: "2.0", ID: &id, Method: "initialize"}))

	resp, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.NotNil(t, resp.ID)
	assert.EqualValues(t, 7, *resp.ID)
	assert.Equal(t, "initialize", resp.Method)
}
