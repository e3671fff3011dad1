package lsp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestJSONRPCFramingMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	msg1 := []byte(`{"jsonrpc":"2.0","method":"server_start","params":"/srv/out"}`)
	msg2 := []byte(`{"jsonrpc":"2.0","method":"compile"}`)

	if err := writeMessage(&buf, msg1); err != nil {
		t.Fatalf("write message 1: %v", err)
	}
	if err := writeMessage(&buf, msg2); err != nil {
		t.Fatalf("write message 2: %v", err)
	}

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	got1, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 1: %v", err)
	}
	got2, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 2: %v", err)
	}
	if string(got1) != string(msg1) {
		t.Fatalf("unexpected message 1: %s", got1)
	}
	if string(got2) != string(msg2) {
		t.Fatalf("unexpected message 2: %s", got2)
	}
	if _, err := readMessage(reader); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after the last message, got %v", err)
	}
}

func TestReadMessageHeaders(t *testing.T) {
	input := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\ncontent-length: 2\r\n\r\n{}"
	got, err := readMessage(bufio.NewReader(strings.NewReader(input)))
	if err != nil || string(got) != "{}" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}

	cases := map[string]error{
		"Content-Type: x\r\n\r\n{}":        errMissingLength,
		"Content-Length: 999999999\r\n\r\n": errMessageSize,
		"Content-Length: 10\r\n":            io.ErrUnexpectedEOF,
	}
	for in, want := range cases {
		if _, err := readMessage(bufio.NewReader(strings.NewReader(in))); !errors.Is(err, want) {
			t.Fatalf("%q: expected %v, got %v", in, want, err)
		}
	}
	if _, err := readMessage(bufio.NewReader(strings.NewReader("Content-Length: x\r\n\r\n"))); err == nil {
		t.Fatal("expected an error for a non-numeric length")
	}
}
