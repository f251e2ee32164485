package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStepper_OncePerTargetAfterSuccess(t *testing.T) {
	s := stepper{retryBlocks: 15}
	steps := []struct {
		block, target uint64
		want          bool
	}{
		{10, 15, false},
		{15, 15, true},
		{16, 15, false},
		{40, 15, false},
		{31, 31, true},
		{32, 31, false},
		{40, 46, false},
		{46, 46, true},
	}
	for i, st := range steps {
		got := s.due(st.block, st.target)
		if got != st.want {
			t.Fatalf("step %d: due(%d,%d)=%v want %v", i, st.block, st.target, got, st.want)
		}
		if got {
			s.result(true)
		}
	}
}

func TestStepper_RetriesFailedAttempt(t *testing.T) {
	s := stepper{retryBlocks: 15}
	if !s.due(15, 15) {
		t.Fatalf("expected first attempt at target")
	}
	s.result(txSent(`{"status":"nonce too low","code":"E_SUBMIT_FAILED","block":15}`))

	for b := uint64(16); b < 30; b++ {
		if s.due(b, 15) {
			t.Fatalf("retried too early at block %d", b)
		}
	}
	if !s.due(30, 15) {
		t.Fatalf("failed attempt at target 15 was never retried")
	}
	s.result(txSent(`{"status":"ok","hash":"0x01"}`))
	if s.due(60, 15) {
		t.Fatalf("stepped again after a transaction was sent for target 15")
	}
	if !s.due(45, 45) {
		t.Fatalf("new target not attempted")
	}
}

func TestTxSent(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"status":"ok","hash":"0xabc"}`, true},
		{`{"status":"current block is 3, skipping until block 15","code":"E_COOLDOWN"}`, false},
		{`{"status":"insufficient funds","code":"E_SUBMIT_FAILED"}`, false},
		{`upstream timeout`, false},
	}
	for _, tc := range cases {
		if got := txSent(tc.body); got != tc.want {
			t.Fatalf("txSent(%s)=%v want %v", tc.body, got, tc.want)
		}
	}
}

func TestPostStep(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		method = r.Method
		_, _ = rw.Write([]byte("{\"status\":\"ok\"}\n"))
	}))
	defer srv.Close()

	body, err := postStep(srv.Client(), srv.URL+"/step")
	if err != nil {
		t.Fatalf("postStep: %v", err)
	}
	if method != http.MethodPost || body != `{"status":"ok"}` {
		t.Fatalf("method=%s body=%q", method, body)
	}
}
