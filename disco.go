// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"mellium.im/xmlstream"
	"mellium.im/xmpp/disco"
	"mellium.im/xmpp/disco/items"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Room features advertised over service discovery.
const (
	FeatureMembersOnly       = "muc_membersonly"
	FeatureOpen              = "muc_open"
	FeaturePasswordProtected = "muc_passwordprotected"
	FeaturePersistent        = "muc_persistent"
	FeaturePublic            = "muc_public"
	FeatureModerated         = "muc_moderated"
	FeatureNonAnonymous      = "muc_nonanonymous"
)

// RoomInfoBasic is a room listed by a chat service.
type RoomInfoBasic struct {
	JID  jid.JID
	Name string
}

// RoomInfoExtended is a snapshot of the information a room publishes about
// itself.
type RoomInfoExtended struct {
	RoomInfoBasic

	Description string
	Subject     string
	// Occupants is the number of occupants or -1 if the room does not say.
	Occupants int
	Language  language.Tag

	Privacy              RoomPrivacy
	PasswordProtected    bool
	Persistent           bool
	Public               bool
	Moderated            bool
	NonAnonymous         bool
	SupportsRegistration bool

	// Features contains every feature advertised by the room.
	Features []string
}

// RoomIter iterates over the rooms returned by a chat service.
// Rooms are decoded lazily in the order the service listed them.
// An iterator cannot be restarted: once Next returns false it always returns
// false.
type RoomIter struct {
	d       *xml.Decoder
	current RoomInfoBasic
	err     error
	done    bool
}

var itemName = xml.Name{Space: disco.NSItems, Local: "item"}

// Next advances the iterator and reports whether a room is available.
func (i *RoomIter) Next() bool {
	if i.done || i.err != nil {
		return false
	}
	for {
		tok, err := i.d.Token()
		switch {
		case err == io.EOF:
			i.done = true
			return false
		case err != nil:
			i.err = err
			return false
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name != itemName {
			continue
		}
		var item items.Item
		err = i.d.DecodeElement(&item, &start)
		if err != nil {
			i.err = err
			return false
		}
		i.current = RoomInfoBasic{JID: item.JID, Name: item.Name}
		return true
	}
}

// Room returns the room at the current position of the iterator.
func (i *RoomIter) Room() RoomInfoBasic {
	return i.current
}

// Err returns the first error encountered while iterating, if any.
func (i *RoomIter) Err() error {
	return i.err
}

// Close stops iteration.
func (i *RoomIter) Close() error {
	i.done = true
	return nil
}

// DiscoverRooms asks a chat service for the rooms it hosts.
// It blocks until the service answers and returns an iterator over the result.
func (c *Client) DiscoverRooms(ctx context.Context, service jid.JID) (*RoomIter, error) {
	resp, err := c.request(ctx, "", "muc.disco.items", stanza.IQ{
		Type: stanza.GetIQ,
		To:   service,
	}, xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: disco.NSItems, Local: "query"}}))
	if err != nil {
		return nil, err
	}
	return &RoomIter{d: xml.NewTokenDecoder(resp.Reader())}, nil
}

// GetRoomInfo queries a room for its extended information.
// The result is not cached, every call is one round trip.
// If the room is managed by the client its privacy is updated from the
// result.
func (c *Client) GetRoomInfo(ctx context.Context, room jid.JID) (RoomInfoExtended, error) {
	bare := room.Bare()
	resp, err := c.request(ctx, roomKey(bare), "muc.disco.info", stanza.IQ{
		Type: stanza.GetIQ,
		To:   bare,
	}, xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: disco.NSInfo, Local: "query"}}))
	if err != nil {
		return RoomInfoExtended{}, err
	}

	s := struct {
		Info disco.Info `xml:"http://jabber.org/protocol/disco#info query"`
	}{}
	err = xml.NewTokenDecoder(resp.Reader()).Decode(&s)
	if err != nil {
		return RoomInfoExtended{}, malformed(err)
	}

	ext := RoomInfoExtended{
		RoomInfoBasic: RoomInfoBasic{JID: bare},
		Occupants:     -1,
		Language:      language.Und,
	}
	for _, ident := range s.Info.Identity {
		if ident.Category == "conference" {
			ext.Name = ident.Name
			break
		}
	}
	for _, f := range s.Info.Features {
		ext.Features = append(ext.Features, f.Var)
		switch f.Var {
		case FeatureMembersOnly:
			ext.Privacy = MembersOnly
		case FeaturePasswordProtected:
			ext.PasswordProtected = true
		case FeaturePersistent:
			ext.Persistent = true
		case FeaturePublic:
			ext.Public = true
		case FeatureModerated:
			ext.Moderated = true
		case FeatureNonAnonymous:
			ext.NonAnonymous = true
		case NSRegister:
			ext.SupportsRegistration = true
		}
	}
	for i := range s.Info.Form {
		f := &s.Info.Form[i]
		if formType, _ := f.GetString("FORM_TYPE"); formType != NSRoomInfo {
			continue
		}
		if v, ok := f.GetString("muc#roominfo_description"); ok {
			ext.Description = v
		}
		if v, ok := f.GetString("muc#roominfo_subject"); ok {
			ext.Subject = v
		}
		if v, ok := f.GetString("muc#roominfo_occupants"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				ext.Occupants = n
			}
		}
		if v, ok := f.GetString("muc#roominfo_lang"); ok {
			if tag, err := language.Parse(v); err == nil {
				ext.Language = tag
			}
		}
	}

	c.roomsM.Lock()
	if r, ok := c.rooms[roomKey(bare)]; ok {
		r.privacy = ext.Privacy
		r.nonAnonymous = ext.NonAnonymous
	}
	c.roomsM.Unlock()
	return ext, nil
}
