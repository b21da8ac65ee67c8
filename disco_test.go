// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/text/language"
	"mellium.im/xmpp/jid"

	"mellium.im/muc"
	"mellium.im/muc/internal/xmpptest"
)

const itemsResult = `<iq type="result" from=%q id=%q><query xmlns="http://jabber.org/protocol/disco#items"><item jid="heath@chat.shakespeare.lit" name="A Lonely Heath"/><item jid="coven@chat.shakespeare.lit" name="A Dark Cave"/><item jid="forres@chat.shakespeare.lit" name="The Palace"/></query></iq>`

func TestDiscoverRooms(t *testing.T) {
	service := jid.MustParse("chat.shakespeare.lit")
	c, rec := newClient(t, func(s xmpptest.Stanza) []string {
		return []string{fmt.Sprintf(itemsResult, s.To(), s.ID())}
	})
	iter, err := c.DiscoverRooms(context.Background(), service)
	if err != nil {
		t.Fatalf("error discovering rooms: %v", err)
	}
	sent, _ := rec.Last()
	if sent.To() != "chat.shakespeare.lit" || !sent.Contains(`<query xmlns="http://jabber.org/protocol/disco#items">`) {
		t.Errorf("unexpected disco request: %s", sent.XML)
	}

	var names []string
	for iter.Next() {
		names = append(names, iter.Room().Name)
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("error iterating: %v", err)
	}
	if fmt.Sprint(names) != "[A Lonely Heath A Dark Cave The Palace]" {
		t.Errorf("rooms out of order: %v", names)
	}
	if iter.Next() {
		t.Errorf("exhausted iterator advanced")
	}
	if err := iter.Close(); err != nil {
		t.Errorf("error closing iterator: %v", err)
	}
}

func TestDiscoverRoomsError(t *testing.T) {
	c, _ := newClient(t, func(s xmpptest.Stanza) []string {
		return []string{fmt.Sprintf(`<iq type="error" from=%q id=%q><error type="cancel"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`, s.To(), s.ID())}
	})
	_, err := c.DiscoverRooms(context.Background(), jid.MustParse("chat.shakespeare.lit"))
	if !errors.Is(err, muc.ErrItemNotFound) {
		t.Errorf("wrong error: want=%v, got=%v", muc.ErrItemNotFound, err)
	}
}

const infoResult = `<iq type="result" from=%q id=%q><query xmlns="http://jabber.org/protocol/disco#info"><identity category="conference" name="A Dark Cave" type="text"/><feature var="http://jabber.org/protocol/muc"/><feature var="muc_membersonly"/><feature var="muc_passwordprotected"/><feature var="muc_persistent"/><feature var="muc_nonanonymous"/><feature var="jabber:iq:register"/><x xmlns="jabber:x:data" type="result"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/muc#roominfo</value></field><field var="muc#roominfo_description" label="Description"><value>The place for all good witches!</value></field><field var="muc#roominfo_occupants" label="Number of occupants"><value>3</value></field><field var="muc#roominfo_lang" label="Language of discussion"><value>en</value></field><field var="muc#roominfo_subject" label="Current Discussion Topic"><value>Spells</value></field></x></query></iq>`

func TestGetRoomInfo(t *testing.T) {
	c, rec := joined(t)
	rec.Reply = func(s xmpptest.Stanza) []string {
		return []string{fmt.Sprintf(infoResult, s.To(), s.ID())}
	}
	info, err := c.GetRoomInfo(context.Background(), roomJID)
	if err != nil {
		t.Fatalf("error getting room info: %v", err)
	}
	if info.Name != "A Dark Cave" || !info.JID.Equal(roomJID) {
		t.Errorf("wrong room: %+v", info.RoomInfoBasic)
	}
	if info.Privacy != muc.MembersOnly || !info.PasswordProtected || !info.Persistent || !info.NonAnonymous || !info.SupportsRegistration {
		t.Errorf("features not parsed: %+v", info)
	}
	if info.Public || info.Moderated {
		t.Errorf("unexpected features set: %+v", info)
	}
	if info.Description != "The place for all good witches!" || info.Subject != "Spells" || info.Occupants != 3 {
		t.Errorf("room info form not parsed: %+v", info)
	}
	if info.Language != language.English {
		t.Errorf("wrong language: want=%v, got=%v", language.English, info.Language)
	}
	if len(info.Features) != 6 {
		t.Errorf("wrong number of features: want=6, got=%d", len(info.Features))
	}

	r, _ := c.Room(roomJID)
	if r.Privacy != muc.MembersOnly || !r.NonAnonymous {
		t.Errorf("managed room not updated from room info: %+v", r)
	}
}

func TestGetRoomInfoMinimal(t *testing.T) {
	c, _ := newClient(t, func(s xmpptest.Stanza) []string {
		return []string{fmt.Sprintf(`<iq type="result" from=%q id=%q><query xmlns="http://jabber.org/protocol/disco#info"><identity category="conference" name="The Heath" type="text"/></query></iq>`, s.To(), s.ID())}
	})
	info, err := c.GetRoomInfo(context.Background(), jid.MustParse("heath@chat.shakespeare.lit"))
	if err != nil {
		t.Fatalf("error getting room info: %v", err)
	}
	if info.Occupants != -1 || info.Language != language.Und || info.Privacy != muc.Open {
		t.Errorf("unexpected defaults: %+v", info)
	}
}

func TestGetRoomInfoIgnoresOtherForms(t *testing.T) {
	c, _ := newClient(t, func(s xmpptest.Stanza) []string {
		return []string{fmt.Sprintf(`<iq type="result" from=%q id=%q><query xmlns="http://jabber.org/protocol/disco#info"><identity category="conference" name="The Heath" type="text"/><x xmlns="jabber:x:data" type="result"><field var="FORM_TYPE" type="hidden"><value>urn:xmpp:dataforms:softwareinfo</value></field><field var="muc#roominfo_description"><value>Not a room description</value></field></x><x xmlns="jabber:x:data" type="result"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/muc#roominfo</value></field><field var="muc#roominfo_occupants"><value>7</value></field></x></query></iq>`, s.To(), s.ID())}
	})
	info, err := c.GetRoomInfo(context.Background(), jid.MustParse("heath@chat.shakespeare.lit"))
	if err != nil {
		t.Fatalf("error getting room info: %v", err)
	}
	if info.Description != "" {
		t.Errorf("description read from the wrong form: %q", info.Description)
	}
	if info.Occupants != 7 {
		t.Errorf("wrong number of occupants: want=7, got=%d", info.Occupants)
	}
}
