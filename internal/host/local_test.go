package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/llm"
)

type stubModel struct {
	got  llm.Request
	resp string
	err  error
}

func (s *stubModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.resp}, nil
}

type stubProxy struct {
	request []byte
}

func (s *stubProxy) Handle(ctx context.Context, request []byte) (int, []byte) {
	s.request = request
	return http.StatusTeapot, []byte(`{"ok":true}`)
}

type recordingHost struct {
	Local
	lines []string
}

func (r *recordingHost) Log(message string) { r.lines = append(r.lines, message) }

func TestReadInputIsStable(t *testing.T) {
	h := NewLocal(strings.NewReader(`[{"role":"user","content":"hi"}]`), nil)
	first, err := h.ReadInput(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := h.ReadInput(context.Background())
	if string(first) != string(second) || len(first) == 0 {
		t.Fatalf("input changed between reads: %q vs %q", first, second)
	}
}

func TestWriteOutputOnce(t *testing.T) {
	var out bytes.Buffer
	h := NewLocal(nil, &out)
	if err := h.WriteOutput(context.Background(), []byte("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.WriteOutput(context.Background(), []byte("second")); !errors.Is(err, ErrOutputWritten) {
		t.Fatalf("expected ErrOutputWritten, got %v", err)
	}
	if out.String() != "first" || !h.Written() {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCallModelResolvesModelID(t *testing.T) {
	model := &stubModel{resp: "hello"}
	h := NewLocal(nil, nil, WithModel(model, llm.ModelTable{1: "m-one"}))

	out, err := h.CallModel(context.Background(), 1, []byte(`{"messages":[{"role":"system","content":"p"},{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("unexpected output %q", out)
	}
	if model.got.Model != "m-one" || len(model.got.Messages) != 2 || model.got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request %+v", model.got)
	}
}

func TestCallModelErrors(t *testing.T) {
	h := NewLocal(nil, nil)
	if _, err := h.CallModel(context.Background(), 1, []byte(`{}`)); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}

	h = NewLocal(nil, nil, WithModel(&stubModel{err: errors.New("down")}, nil))
	if _, err := h.CallModel(context.Background(), 1, []byte(`{"messages":[]}`)); xerrors.CodeOf(err) != xerrors.CodeModelFailure {
		t.Fatalf("expected model failure, got %v", err)
	}
	if _, err := h.CallModel(context.Background(), 7, []byte(`{"messages":[]}`)); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for unknown model, got %v", err)
	}
	if _, err := h.CallModel(context.Background(), 1, []byte(`nope`)); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for bad json, got %v", err)
	}
}

func TestCallBlockchainDelegates(t *testing.T) {
	proxy := &stubProxy{}
	h := NewLocal(nil, nil, WithChainProxy(proxy))
	status, body, err := h.CallBlockchain(context.Background(), []byte(`{"action":"get_balance"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusTeapot || string(body) != `{"ok":true}` || string(proxy.request) != `{"action":"get_balance"}` {
		t.Fatalf("unexpected proxy result %d %s", status, body)
	}

	if _, _, err := NewLocal(nil, nil).CallBlockchain(context.Background(), nil); err == nil {
		t.Fatalf("expected error without proxy")
	}
}

func TestFetchFiles(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{cidDir, inputDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, cidDir, "bafy"), []byte("cid-data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, inputDir, "42"), []byte("input-data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := NewLocal(nil, nil, WithFilesDir(dir))
	if data, err := h.FetchCIDFile(context.Background(), "bafy"); err != nil || string(data) != "cid-data" {
		t.Fatalf("unexpected cid file %q, %v", data, err)
	}
	if data, err := h.FetchInputFile(context.Background(), "42"); err != nil || string(data) != "input-data" {
		t.Fatalf("unexpected input file %q, %v", data, err)
	}
	for _, bad := range []string{"", "..", "../secret", `a\b`} {
		if _, err := h.FetchCIDFile(context.Background(), bad); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
			t.Fatalf("expected traversal rejection for %q, got %v", bad, err)
		}
	}
	if _, err := NewLocal(nil, nil).FetchInputFile(context.Background(), "42"); xerrors.CodeOf(err) != xerrors.CodeUnsupported {
		t.Fatalf("expected unsupported without files dir, got %v", err)
	}
}

func TestNewLoggerWritesToHost(t *testing.T) {
	rec := &recordingHost{}
	log := NewLogger(rec, slog.LevelInfo)
	log.Info("balance request", "wallet", "0xabc")
	log.Debug("hidden")

	if len(rec.lines) != 1 || !strings.Contains(rec.lines[0], "balance request") || !strings.Contains(rec.lines[0], "wallet=0xabc") {
		t.Fatalf("unexpected log lines %v", rec.lines)
	}
}

func TestLogWriterSplitsLines(t *testing.T) {
	rec := &recordingHost{}
	if _, err := (logWriter{host: rec}).Write([]byte("a\nb\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoded, _ := json.Marshal(rec.lines)
	if string(encoded) != `["a","b"]` {
		t.Fatalf("unexpected lines %s", encoded)
	}
}
