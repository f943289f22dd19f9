package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/host"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	walletC = "0x2222222222222222222222222222222222222222"
)

type chainReply struct {
	status int
	body   string
	err    error
}

type stubHost struct {
	input   string
	outputs [][]byte
	logs    []string

	chain    map[string]chainReply
	chainReq []map[string]string

	modelID  int
	modelReq []byte
	modelOut string
	modelErr error
}

func (s *stubHost) ReadInput(ctx context.Context) ([]byte, error) { return []byte(s.input), nil }

func (s *stubHost) WriteOutput(ctx context.Context, output []byte) error {
	if len(s.outputs) > 0 {
		return host.ErrOutputWritten
	}
	s.outputs = append(s.outputs, output)
	return nil
}

func (s *stubHost) Log(message string) { s.logs = append(s.logs, message) }

func (s *stubHost) CallModel(ctx context.Context, modelID int, request []byte) ([]byte, error) {
	s.modelID, s.modelReq = modelID, request
	if s.modelErr != nil {
		return nil, s.modelErr
	}
	return []byte(s.modelOut), nil
}

func (s *stubHost) CallBlockchain(ctx context.Context, request []byte) (int, []byte, error) {
	var decoded map[string]string
	_ = json.Unmarshal(request, &decoded)
	s.chainReq = append(s.chainReq, decoded)
	reply, ok := s.chain[decoded["action"]]
	if !ok {
		return http.StatusNotFound, []byte(`{}`), nil
	}
	return reply.status, []byte(reply.body), reply.err
}

func (s *stubHost) FetchCIDFile(ctx context.Context, cid string) ([]byte, error) { return nil, nil }

func (s *stubHost) FetchInputFile(ctx context.Context, id string) ([]byte, error) { return nil, nil }

var _ host.Host = (*stubHost)(nil)

func userInput(contents ...string) string {
	messages := make([]ChatMessage, 0, len(contents))
	for _, c := range contents {
		messages = append(messages, ChatMessage{Role: "user", Content: c})
	}
	encoded, _ := json.Marshal(messages)
	return string(encoded)
}

func run(t *testing.T, h *stubHost, opts ...Option) string {
	t.Helper()
	if err := New(opts...).Run(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.outputs) != 1 {
		t.Fatalf("expected exactly one output, got %d", len(h.outputs))
	}
	return string(h.outputs[0])
}

func balanceJSON(coin string, contract bool) string {
	body, _ := json.Marshal(map[string]any{
		"block_number_balance_updated_at": 123,
		"coin_balance":                    coin,
		"hash":                            walletA,
		"is_contract":                     contract,
		"exchange_rate":                   2.5,
	})
	return string(body)
}

func TestBalanceReport(t *testing.T) {
	h := &stubHost{
		input: userInput("what is the balance of " + walletA + "?"),
		chain: map[string]chainReply{
			"get_balance": {status: http.StatusOK, body: balanceJSON("1500000000000000000", false)},
			"get_tokens": {status: http.StatusOK, body: `{"items":[
				{"name":"Tether","symbol":"USDT","balance":"2500000","decimals":6},
				{"name":"Uomi","symbol":"uomi","balance":"1000000","decimals":"6"}
			]}`},
		},
	}

	got := run(t, h)
	want := strings.Join([]string{
		"Wallet Balance for " + walletA + ":",
		"\nNative Balance: 1.500000 UOMI",
		"($3.75 USD)",
		"\nToken Balances:",
		"🔹 UOMI: 1.00 tokens",
		"- Tether (USDT): 2.50",
		"\nLast updated at block: 123",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected report:\n%s\nwant:\n%s", got, want)
	}
	if strings.Contains(got, "No UOMI tokens") {
		t.Fatalf("note must be absent when UOMI is held")
	}
	if len(h.chainReq) != 2 || h.chainReq[0]["address"] != walletA || h.chainReq[1]["action"] != "get_tokens" {
		t.Fatalf("unexpected proxy requests %v", h.chainReq)
	}
	if !containsLine(h.logs, "Processing balance request for wallet: "+walletA) {
		t.Fatalf("missing processing log in %v", h.logs)
	}
}

func TestBalanceReportWithoutDistinguishedToken(t *testing.T) {
	h := &stubHost{
		input: userInput(walletA),
		chain: map[string]chainReply{
			"get_balance": {status: http.StatusOK, body: balanceJSON("0", true)},
			"get_tokens":  {status: http.StatusOK, body: `{"items":[]}`},
		},
	}
	got := run(t, h)
	for _, part := range []string{
		"\n\nToken Balances:",
		"\n\nNote: No UOMI tokens found in this wallet",
		"\n\nNote: This is a smart contract address",
		"Native Balance: 0.000000 UOMI\n($0.00 USD)",
	} {
		if !strings.Contains(got, part) {
			t.Fatalf("expected %q in report:\n%s", part, got)
		}
	}
}

func TestTokenFailureDegrades(t *testing.T) {
	h := &stubHost{
		input: userInput(walletA),
		chain: map[string]chainReply{
			"get_balance": {status: http.StatusOK, body: `{"block_number_balance_updated_at":"7","coin_balance":"1000000000000000000","hash":"` + walletA + `","is_contract":false}`},
			"get_tokens":  {status: http.StatusBadGateway, body: `{"error":"boom"}`},
		},
	}
	got := run(t, h)
	want := "Wallet Balance for " + walletA + ":\n\nNative Balance: 1.000000 UOMI\n\nLast updated at block: 7"
	if got != want {
		t.Fatalf("unexpected report %q", got)
	}
}

func TestBalanceApologies(t *testing.T) {
	cases := []struct {
		name  string
		reply chainReply
		want  string
	}{
		{"transport error", chainReply{err: errors.New("proxy down")}, ApologyFetch},
		{"non-2xx", chainReply{status: http.StatusBadGateway, body: `{"error":"x"}`}, ApologyFetch},
		{"malformed body", chainReply{status: http.StatusOK, body: `not json`}, ApologyParse},
		{"missing hash", chainReply{status: http.StatusOK, body: `{"coin_balance":"1"}`}, ApologyParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &stubHost{input: userInput(walletA), chain: map[string]chainReply{"get_balance": tc.reply}}
			if got := run(t, h); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if len(h.chainReq) != 1 {
				t.Fatalf("tokens must not be requested after a balance failure")
			}
		})
	}
}

func TestUnreadableBalanceIsVisible(t *testing.T) {
	h := &stubHost{
		input: userInput(walletA),
		chain: map[string]chainReply{
			"get_balance": {status: http.StatusOK, body: balanceJSON("not-a-number", false)},
			"get_tokens":  {status: http.StatusOK, body: `{"items":[{"name":"Uomi","symbol":"UOMI","balance":"??","decimals":6}]}`},
		},
	}
	got := run(t, h)
	if !strings.Contains(got, "Native Balance: 0.000000 UOMI"+UnreadableSuffix) {
		t.Fatalf("native suffix missing:\n%s", got)
	}
	if !strings.Contains(got, "🔹 UOMI: 0.00 tokens"+UnreadableSuffix) {
		t.Fatalf("token suffix missing:\n%s", got)
	}
}

func TestEmptyBalanceIsVisible(t *testing.T) {
	h := &stubHost{
		input: userInput(walletA),
		chain: map[string]chainReply{
			"get_balance": {status: http.StatusOK, body: balanceJSON("", false)},
			"get_tokens":  {status: http.StatusOK, body: `{"items":[{"name":"Uomi","symbol":"UOMI","decimals":6}]}`},
		},
	}
	got := run(t, h)
	if !strings.Contains(got, "Native Balance: 0.000000 UOMI"+UnreadableSuffix) {
		t.Fatalf("empty native balance should be marked:\n%s", got)
	}
	if !strings.Contains(got, "🔹 UOMI: 0.00 tokens"+UnreadableSuffix) {
		t.Fatalf("missing token balance should be marked:\n%s", got)
	}
}

func TestWalletDetectionUsesLatestUserMessage(t *testing.T) {
	input, _ := json.Marshal([]ChatMessage{
		{Role: "user", Content: "old " + walletC},
		{Role: "assistant", Content: walletC},
		{Role: "user", Content: "check " + walletB + " and " + walletC},
		{Role: "assistant", Content: "sure"},
	})
	h := &stubHost{input: string(input), chain: map[string]chainReply{"get_balance": {err: errors.New("x")}}}
	run(t, h)
	if len(h.chainReq) == 0 || h.chainReq[0]["address"] != walletB {
		t.Fatalf("expected first match of latest user message, got %v", h.chainReq)
	}
}

func TestDetectWallet(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"", ""},
		{"0x123", ""},
		{"prefix" + walletB + "suffix", walletB},
		{walletA + " " + walletC, walletA},
		{"0x" + strings.Repeat("g", 40), ""},
	}
	for _, tc := range cases {
		got, ok := DetectWallet(tc.text)
		if got != tc.want || ok != (tc.want != "") {
			t.Fatalf("DetectWallet(%q) = %q, %v", tc.text, got, ok)
		}
	}
	if LatestUserContent([]ChatMessage{{Role: "assistant", Content: walletA}}) != "" {
		t.Fatalf("assistant messages must be ignored")
	}
}

func TestForwardPrependsPersona(t *testing.T) {
	input := `{"messages":[{"role":"user","content":"hi"},{"role":"tool","content":"<x>"},{"role":"user","content":"` + "0x12" + `"}]}`
	h := &stubHost{input: input, modelOut: "plain reply "}

	got := run(t, h)
	if got != "plain reply " {
		t.Fatalf("plain format must return backend bytes unchanged, got %q", got)
	}
	if h.modelID != ModelID {
		t.Fatalf("unexpected model id %d", h.modelID)
	}
	var req struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(h.modelReq, &req); err != nil {
		t.Fatalf("decode model request: %v", err)
	}
	want := []ChatMessage{
		{Role: "system", Content: SystemPersona},
		{Role: "user", Content: "hi"},
		{Role: "tool", Content: "<x>"},
		{Role: "user", Content: "0x12"},
	}
	if len(req.Messages) != len(want) {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
	for i := range want {
		if req.Messages[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, req.Messages[i], want[i])
		}
	}
}

func TestEnvelopedModelOutput(t *testing.T) {
	h := &stubHost{input: userInput("hello"), modelOut: `{"response":"already","time_taken":1}`}
	if got := run(t, h, WithResponseFormat(FormatEnveloped)); got != h.modelOut {
		t.Fatalf("valid JSON must pass through, got %s", got)
	}

	h = &stubHost{input: userInput("hello"), modelOut: "  hi there \n"}
	got := run(t, h, WithResponseFormat(FormatEnveloped))
	var env Envelope
	if err := json.Unmarshal([]byte(got), &env); err != nil {
		t.Fatalf("expected envelope, got %s", got)
	}
	if env.Response != "hi there" || env.TotalTokensGenerated != EnvelopeTotalTokens {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if strings.Count(got, `"response"`) != 1 {
		t.Fatalf("text must be wrapped exactly once: %s", got)
	}
}

func TestEnvelopedBalanceReport(t *testing.T) {
	h := &stubHost{input: userInput(walletA), chain: map[string]chainReply{"get_balance": {err: errors.New("x")}}}
	got := run(t, h, WithResponseFormat(FormatEnveloped))
	var env Envelope
	if err := json.Unmarshal([]byte(got), &env); err != nil {
		t.Fatalf("expected envelope, got %s", got)
	}
	if env.Response != ApologyFetch {
		t.Fatalf("unexpected envelope response %q", env.Response)
	}
}

func TestModelFailureApologises(t *testing.T) {
	h := &stubHost{input: userInput("hello"), modelErr: xerrors.New(xerrors.CodeModelFailure, "")}
	if got := run(t, h); got != ApologyModel {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestDecodeFailureWritesNothing(t *testing.T) {
	for _, input := range []string{"", "not json", `{"role":"user"}`, `"text"`, `[{"role":1}]`} {
		h := &stubHost{input: input}
		err := New().Run(context.Background(), h)
		if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
			t.Fatalf("input %q: expected INVALID_ARGUMENT, got %v", input, err)
		}
		if len(h.outputs) != 0 {
			t.Fatalf("input %q: no output expected", input)
		}
	}
}

func TestRunRejectsSecondWrite(t *testing.T) {
	h := &stubHost{input: userInput("hello"), modelOut: "x", outputs: [][]byte{[]byte("earlier")}}
	err := New().Run(context.Background(), h)
	if !errors.Is(err, host.ErrOutputWritten) {
		t.Fatalf("expected ErrOutputWritten, got %v", err)
	}
}

func TestInvocationIDIsLogged(t *testing.T) {
	h := &stubHost{input: userInput("hello"), modelOut: "x"}
	ctx := ContextWithInvocationID(context.Background(), "inv-42")
	if err := New().Run(ctx, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.logs) == 0 || !strings.Contains(h.logs[0], "invocation_id=inv-42") || !strings.Contains(h.logs[0], "UOMI Agent initialized") {
		t.Fatalf("unexpected logs %v", h.logs)
	}
}

func TestScaleBalance(t *testing.T) {
	cases := []struct {
		raw      string
		decimals uint64
		places   int
		want     string
	}{
		{"1500000000000000000", 18, 6, "1.500000"},
		{"0x10", 1, 2, "1.60"},
		{"5", 3, 2, "0.01"},
		{"4", 3, 2, "0.00"},
		{"123456789012345678901234567890", 18, 2, "123456789012.35"},
	}
	for _, tc := range cases {
		got, err := ScaleBalance(tc.raw, tc.decimals)
		if err != nil {
			t.Fatalf("ScaleBalance(%q): %v", tc.raw, err)
		}
		if s := got.FloatString(tc.places); s != tc.want {
			t.Fatalf("ScaleBalance(%q) = %s, want %s", tc.raw, s, tc.want)
		}
	}
	for _, bad := range []string{"abc", "-1", "1.5", "", "   "} {
		if _, err := ScaleBalance(bad, 0); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := ScaleBalance("1", 300); err == nil {
		t.Fatalf("expected error for oversized decimals")
	}
}

func TestParseResponseFormat(t *testing.T) {
	if f, err := ParseResponseFormat(""); err != nil || f != FormatPlain {
		t.Fatalf("empty format should default to plain")
	}
	if f, err := ParseResponseFormat(" Enveloped "); err != nil || f != FormatEnveloped {
		t.Fatalf("unexpected format %q, %v", f, err)
	}
	if _, err := ParseResponseFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func containsLine(lines []string, fragment string) bool {
	for _, line := range lines {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}
