// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package track_test

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"mellium.im/muc/internal/track"
)

func TestResolveBeforeWait(t *testing.T) {
	tr := track.New(nil)
	w := tr.Register(context.Background(), "123", "room@example.net", "test")
	if !tr.Pending("123") {
		t.Fatalf("expected request to be pending")
	}
	start := xml.StartElement{Name: xml.Name{Local: "iq"}}
	if !tr.Resolve("123", track.Response{Start: start}) {
		t.Fatalf("expected resolve to find the request")
	}
	resp, err := w.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Start.Name.Local != "iq" {
		t.Errorf("wrong response: %+v", resp)
	}
	if tr.Len() != 0 {
		t.Errorf("expected no pending requests, got %d", tr.Len())
	}
	if tr.Resolve("123", track.Response{}) {
		t.Errorf("request resolved twice")
	}
}

func TestWaitTimeout(t *testing.T) {
	tr := track.New(nil)
	w := tr.Register(context.Background(), "123", "", "test")
	_, err := w.Wait(context.Background(), time.Millisecond)
	if !errors.Is(err, track.ErrTimeout) {
		t.Fatalf("wrong error: want=%v, got=%v", track.ErrTimeout, err)
	}
	if tr.Pending("123") {
		t.Errorf("timed out request still pending")
	}
}

func TestWaitContext(t *testing.T) {
	tr := track.New(nil)
	w := tr.Register(context.Background(), "123", "", "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Wait(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("wrong error: want=%v, got=%v", context.Canceled, err)
	}
	if tr.Len() != 0 {
		t.Errorf("canceled request still pending")
	}
}

func TestCancelScope(t *testing.T) {
	errGone := errors.New("gone")
	tr := track.New(nil)
	a := tr.Register(context.Background(), "a", "one@example.net", "test")
	b := tr.Register(context.Background(), "b", "two@example.net", "test")
	called := false
	tr.Callback(context.Background(), "c", "one@example.net", "test", time.Hour, func(track.Response) {
		called = true
	})

	if n := tr.Cancel("one@example.net", errGone); n != 2 {
		t.Fatalf("wrong number of canceled requests: want=2, got=%d", n)
	}
	if _, err := a.Wait(context.Background(), time.Second); !errors.Is(err, errGone) {
		t.Errorf("wrong error for canceled waiter: %v", err)
	}
	if called {
		t.Errorf("canceled callback was invoked")
	}
	if !tr.Pending("b") {
		t.Errorf("request in another scope was canceled")
	}
	b.Discard(nil)
	if tr.Len() != 0 {
		t.Errorf("expected no pending requests, got %d", tr.Len())
	}
}

func TestCallbackOnce(t *testing.T) {
	tr := track.New(nil)
	calls := make(chan error, 2)
	tr.Callback(context.Background(), "123", "", "test", time.Hour, func(resp track.Response) {
		calls <- resp.Err
	})
	tr.Resolve("123", track.Response{})
	tr.Resolve("123", track.Response{})
	if len(calls) != 1 {
		t.Fatalf("callback invoked %d times", len(calls))
	}
	if err := <-calls; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCallbackTimeout(t *testing.T) {
	tr := track.New(nil)
	calls := make(chan error, 1)
	tr.Callback(context.Background(), "123", "", "test", time.Millisecond, func(resp track.Response) {
		calls <- resp.Err
	})
	select {
	case err := <-calls:
		if !errors.Is(err, track.ErrTimeout) {
			t.Errorf("wrong error: want=%v, got=%v", track.ErrTimeout, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("callback never timed out")
	}
	if tr.Resolve("123", track.Response{}) {
		t.Errorf("timed out callback resolved")
	}
}

func TestCapture(t *testing.T) {
	d := xml.NewDecoder(strings.NewReader(`<iq id="1"><query xmlns="urn:example"><item/></query></iq><message/>`))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("error popping start token: %v", err)
	}
	resp, err := track.Capture(tok.(xml.StartElement), d)
	if err != nil {
		t.Fatalf("error capturing: %v", err)
	}
	if len(resp.Payload) != 4 {
		t.Fatalf("wrong number of captured tokens: want=4, got=%d", len(resp.Payload))
	}

	r := resp.Reader()
	var names []string
	for {
		tok, err := r.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			names = append(names, "<"+t.Name.Local)
		case xml.EndElement:
			names = append(names, t.Name.Local+">")
		}
	}
	const want = "<iq <query <item item> query> iq>"
	if s := strings.Join(names, " "); s != want {
		t.Errorf("wrong replay:\nwant=%q,\n got=%q", want, s)
	}
}

func TestDropCallback(t *testing.T) {
	tr := track.New(nil)
	var calls int
	tr.Callback(context.Background(), "123", "", "test", 10*time.Millisecond, func(track.Response) {
		calls++
	})
	if !tr.Drop("123", errors.New("send failed")) {
		t.Fatalf("expected drop to find the request")
	}
	if tr.Drop("123", nil) {
		t.Errorf("request dropped twice")
	}
	time.Sleep(30 * time.Millisecond)
	if calls != 0 {
		t.Errorf("dropped callback called %d times", calls)
	}
}
