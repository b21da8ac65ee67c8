// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"testing"
	"time"

	"mellium.im/muc/internal/xmpptest"
)

func newJoinConfig(opts ...JoinOption) *joinConfig {
	c := &joinConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

var joinConfigTestCases = []xmpptest.EncodingTestCase{
	0: {
		Value: newJoinConfig(MaxHistory(1), MaxBytes(2), Duration(3*time.Second), Since(time.Time{}), Password("test")),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"><history maxstanzas="1" maxchars="2" seconds="3" since="0001-01-01T00:00:00Z"></history><password>test</password></x>`,
	},
	1: {
		Value: newJoinConfig(MaxHistory(1), MaxBytes(2), Duration(3*time.Second), Since(time.Time{})),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"><history maxstanzas="1" maxchars="2" seconds="3" since="0001-01-01T00:00:00Z"></history></x>`,
	},
	2: {
		Value: newJoinConfig(Password("test")),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"><password>test</password></x>`,
	},
	3: {
		Value: &joinConfig{},
		XML:   `<x xmlns="http://jabber.org/protocol/muc"></x>`,
	},
	4: {
		Value: newJoinConfig(MaxHistory(0)),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"><history maxstanzas="0"></history></x>`,
	},
	5: {
		Value: newJoinConfig(Duration(-3*time.Second), Password("test")),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"><history seconds="3"></history><password>test</password></x>`,
	},
	6: {
		Value: newJoinConfig(MaxHistory(5), WithHistory(History{})),
		XML:   `<x xmlns="http://jabber.org/protocol/muc"></x>`,
	},
}

func TestJoinConfigEncoding(t *testing.T) {
	xmpptest.RunEncodingTests(t, joinConfigTestCases)
}

func TestHistoryIsZero(t *testing.T) {
	if !(History{}).IsZero() {
		t.Errorf("empty history should be zero")
	}
	if newJoinConfig(MaxBytes(0)).history.IsZero() {
		t.Errorf("history with a zero limit should not be zero")
	}
}
