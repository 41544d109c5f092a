package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/teensysecure/internal/availability"
	"github.com/muurk/teensysecure/internal/extension"
	"github.com/muurk/teensysecure/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.RunFakeToolIfRequested()
	os.Exit(m.Run())
}

// message is an outbound message as the IDE glue sees it.
type message map[string]any

func (m message) str(key string) string {
	s, _ := m[key].(string)
	return s
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

// dial starts a bridge for the fake tool and connects to it.
func dial(t *testing.T, tool testutil.FakeTool) *client {
	t.Helper()

	srv, err := New(&Config{
		Listen: "127.0.0.1:0",
		Session: extension.Options{
			PropertyPrefix: testutil.PropertyPrefix,
			Program:        tool.Program,
			TempDir:        t.TempDir(),
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	return &client{t: t, ws: ws}
}

func (c *client) send(msg Inbound) {
	c.t.Helper()
	if err := c.ws.WriteJSON(msg); err != nil {
		c.t.Fatalf("WriteJSON() error = %v", err)
	}
}

func (c *client) sendRaw(data string) {
	c.t.Helper()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		c.t.Fatalf("WriteMessage() error = %v", err)
	}
}

func (c *client) next() message {
	c.t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg message
	if err := c.ws.ReadJSON(&msg); err != nil {
		c.t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

// waitFor skips messages until one of type typ arrives.
func (c *client) waitFor(typ string) message {
	c.t.Helper()
	for {
		if msg := c.next(); msg.str("type") == typ {
			return msg
		}
	}
}

// contexts reads setContext messages until every key in want has been seen
// and returns the last value of each.
func (c *client) contexts(want ...string) map[string]any {
	c.t.Helper()
	got := map[string]any{}
	for {
		done := true
		for _, k := range want {
			if _, ok := got[k]; !ok {
				done = false
			}
		}
		if done {
			return got
		}
		msg := c.waitFor(TypeSetContext)
		got[msg.str("key")] = msg["value"]
	}
}

func (c *client) activate(tool testutil.FakeTool) {
	c.t.Helper()
	details := tool.Details()
	c.send(Inbound{Type: TypeActivate, FQBN: string(details.FQBN), Details: details})
}

func TestBridge_Hello(t *testing.T) {
	c := dial(t, testutil.NewFakeTool(t))
	hello := c.next()
	if hello.str("type") != TypeHello {
		t.Fatalf("first message type = %q, want %q", hello.str("type"), TypeHello)
	}
	if !strings.Contains(hello.str("version"), "teensysecure") {
		t.Errorf("version = %q", hello.str("version"))
	}
}

func TestBridge_ActivateAndBoardEvents(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	t.Setenv(testutil.EnvKeyFileOutput, filepath.Join(t.TempDir(), "key.pem")+"\n")

	c := dial(t, tool)
	c.activate(tool)

	got := c.contexts(availability.ContextState, availability.ContextHasKeyFile)
	if got[availability.ContextState] != "installed" {
		t.Errorf("state = %v, want installed", got[availability.ContextState])
	}
	if got[availability.ContextHasKeyFile] != false {
		t.Errorf("hasKeyFile = %v, want false", got[availability.ContextHasKeyFile])
	}

	c.send(Inbound{Type: TypeFQBN, FQBN: "arduino:avr:uno"})
	msg := c.waitFor(TypeSetContext)
	if msg.str("key") != availability.ContextState || msg["value"] != nil {
		t.Errorf("setContext = %v, want state cleared", msg)
	}

	c.send(Inbound{Type: TypeFQBN, FQBN: "teensy:avr:teensy40"})
	msg = c.waitFor(TypeSetContext)
	if msg["value"] != "selected" {
		t.Errorf("state = %v, want selected", msg["value"])
	}
}

func TestBridge_DetailsWithNonStringProperty(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	keyfile := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(keyfile, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testutil.EnvKeyFileOutput, keyfile+"\n")

	c := dial(t, tool)
	c.send(Inbound{Type: TypeFQBN, FQBN: "teensy:avr:teensy41"})
	msg := c.waitFor(TypeSetContext)
	if msg["value"] != "selected" {
		t.Fatalf("state = %v, want selected", msg["value"])
	}

	dir, err := json.Marshal(tool.Dir)
	if err != nil {
		t.Fatal(err)
	}
	c.sendRaw(`{"type":"boardDetails","details":{"fqbn":"teensy:avr:teensy41","buildProperties":{` +
		`"build.flags.count":3,"build.extra":{"a":"b"},"` + testutil.PropertyPrefix + `.path":` + string(dir) + `}}}`)

	got := c.contexts(availability.ContextState, availability.ContextHasKeyFile)
	if got[availability.ContextState] != "installed" {
		t.Errorf("state = %v, want installed", got[availability.ContextState])
	}
	if got[availability.ContextHasKeyFile] != true {
		t.Errorf("hasKeyFile = %v, want true", got[availability.ContextHasKeyFile])
	}
}

func TestBridge_ShowKeyPathAction(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	keyfile := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(keyfile, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testutil.EnvKeyFileOutput, keyfile+"\n")

	c := dial(t, tool)
	c.activate(tool)
	c.send(Inbound{Type: TypeCommand, ID: "c1", Command: extension.CommandShowKeyPath})

	info := c.waitFor(TypeShowInfo)
	if info.str("message") != extension.MsgKeyLocation+keyfile {
		t.Errorf("message = %q", info.str("message"))
	}
	actions, _ := info["actions"].([]any)
	if len(actions) != 1 || actions[0] != extension.ActionOpenKeyFile {
		t.Errorf("actions = %v", info["actions"])
	}

	c.send(Inbound{Type: TypeAction, ID: info.str("id"), Action: extension.ActionOpenKeyFile})

	open := c.waitFor(TypeOpenFile)
	if open.str("path") != keyfile {
		t.Errorf("openFile path = %q, want %q", open.str("path"), keyfile)
	}
	result := c.waitFor(TypeCommandResult)
	if result.str("id") != "c1" || result.str("error") != "" {
		t.Errorf("commandResult = %v", result)
	}
}

func TestBridge_GenerateKeyTerminal(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	keyfile := filepath.Join(t.TempDir(), "key.pem")
	t.Setenv(testutil.EnvKeyFileOutput, keyfile+"\n")

	c := dial(t, tool)
	c.activate(tool)
	c.send(Inbound{Type: TypeCommand, ID: "k", Command: extension.CommandCreateKey})

	create := c.waitFor(TypeTerminalCreate)
	if create.str("name") != extension.TerminalName {
		t.Errorf("terminal name = %q, want %q", create.str("name"), extension.TerminalName)
	}

	// Output produced before the terminal opened must not be lost.
	deadline := time.Now().Add(5 * time.Second)
	for !fileExists(keyfile) {
		if time.Now().After(deadline) {
			t.Fatal("keygen did not write the key file")
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.send(Inbound{Type: TypeTerminalOpen, Terminal: create.str("terminal")})

	var output strings.Builder
	for !strings.Contains(output.String(), "Key written to") {
		msg := c.next()
		if msg.str("type") == TypeTerminalWrite {
			if msg.str("terminal") != create.str("terminal") {
				t.Errorf("write for terminal %q, want %q", msg.str("terminal"), create.str("terminal"))
			}
			output.WriteString(msg.str("data"))
		}
	}

	if !strings.Contains(output.String(), "Generating new key\r\n") {
		t.Errorf("terminal output = %q, want CRLF line endings", output.String())
	}
}

func TestBridge_SketchWithoutKeyFile(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	keyfile := filepath.Join(t.TempDir(), "key.pem")
	t.Setenv(testutil.EnvKeyFileOutput, keyfile+"\n")

	c := dial(t, tool)
	c.activate(tool)
	c.send(Inbound{Type: TypeCommand, ID: "v", Command: extension.CommandVerifySketch})

	shown := c.waitFor(TypeShowError)
	if shown.str("message") != extension.KeyFileMissingMessage(keyfile) {
		t.Errorf("showError message = %q", shown.str("message"))
	}
	result := c.waitFor(TypeCommandResult)
	if result.str("error") == "" {
		t.Error("commandResult error is empty for a missing key file")
	}
}

func TestBridge_VerifySketchOpensFolder(t *testing.T) {
	tool := testutil.NewFakeTool(t)
	keyfile := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(keyfile, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testutil.EnvKeyFileOutput, keyfile+"\n")

	c := dial(t, tool)
	c.activate(tool)
	c.send(Inbound{Type: TypeCommand, ID: "v", Command: extension.CommandVerifySketch})

	folder := c.waitFor(TypeOpenFolder)
	if filepath.Base(folder.str("path")) != "VerifySecure" {
		t.Errorf("openFolder path = %q", folder.str("path"))
	}
	if folder["forceNewWindow"] != true {
		t.Errorf("forceNewWindow = %v, want true", folder["forceNewWindow"])
	}
	if !fileExists(filepath.Join(folder.str("path"), "VerifySecure.ino")) {
		t.Error("VerifySecure.ino was not written")
	}
	if result := c.waitFor(TypeCommandResult); result.str("error") != "" {
		t.Errorf("commandResult error = %q", result.str("error"))
	}
}

func TestBridge_UnknownCommand(t *testing.T) {
	c := dial(t, testutil.NewFakeTool(t))
	c.send(Inbound{Type: TypeCommand, ID: "x", Command: "teensysecurity.nope"})

	result := c.waitFor(TypeCommandResult)
	if !strings.Contains(result.str("error"), "unknown command") {
		t.Errorf("commandResult error = %q", result.str("error"))
	}
}

func TestNew_RejectsNonLoopback(t *testing.T) {
	tests := []struct {
		listen  string
		wantErr bool
	}{
		{"127.0.0.1:7755", false},
		{"[::1]:7755", false},
		{"localhost:7755", false},
		{"0.0.0.0:7755", true},
		{":7755", true},
		{"192.168.1.10:7755", true},
		{"no-port", true},
	}

	for _, tt := range tests {
		_, err := New(&Config{Listen: tt.listen})
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.listen, err, tt.wantErr)
		}
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"vscode-webview://abc", true},
		{"https://example.com", false},
		{"http://10.0.0.1", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, err := New(&Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "teensysecure") {
		t.Errorf("GET /healthz = %d %q", rec.Code, body)
	}
}

func TestInbound_Decode(t *testing.T) {
	data := `{"type":"boardDetails","details":{"fqbn":"teensy:avr:teensy41",` +
		`"buildProperties":{"b":"2","a":"1"}}}`

	var msg Inbound
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Details == nil || msg.Details.FQBN != "teensy:avr:teensy41" {
		t.Fatalf("Details = %+v", msg.Details)
	}
	if keys := msg.Details.BuildProperties.Keys(); strings.Join(keys, ",") != "b,a" {
		t.Errorf("property order = %v, want b,a", keys)
	}

	if err := json.Unmarshal([]byte(`{"type":"boardDetails","details":null}`), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Details != nil {
		t.Errorf("Details = %+v, want nil for a missing platform", msg.Details)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
