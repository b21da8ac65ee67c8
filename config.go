// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/track"
)

const nsData = `jabber:x:data`

// ModifyRoomConfig requests the configuration form of a room and passes it to
// f once it arrives.
//
// ModifyRoomConfig returns once the request is sent.
// f is called at most once: with the form, with the error returned by the
// room, or with ErrTimeout.
// If the room is left or destroyed before the form arrives f is never called.
// f is called from the goroutine handling inbound stanzas (or from a timer)
// and should hand the form off instead of blocking on SubmitRoomConfig.
func (c *Client) ModifyRoomConfig(ctx context.Context, room jid.JID, f func(*form.Data, error)) error {
	bare := room.Bare()
	return c.requestFunc(ctx, roomKey(bare), "muc.config", stanza.IQ{
		Type: stanza.GetIQ,
		To:   bare,
	}, xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}}),
		func(resp track.Response) {
			if resp.Err != nil {
				f(nil, resp.Err)
				return
			}
			formResp := struct {
				Query struct {
					DataForm form.Data `xml:"jabber:x:data x"`
				} `xml:"http://jabber.org/protocol/muc#owner query"`
			}{}
			err := xml.NewTokenDecoder(resp.Reader()).Decode(&formResp)
			if err != nil {
				f(nil, malformed(err))
				return
			}
			f(&formResp.Query.DataForm, nil)
		})
}

// SubmitRoomConfig submits a configuration form previously received through
// ModifyRoomConfig with the desired values set.
// It blocks until the room accepts or rejects the configuration.
func (c *Client) SubmitRoomConfig(ctx context.Context, room jid.JID, data *form.Data) error {
	bare := room.Bare()
	submission, _ := data.Submit()
	_, err := c.request(ctx, roomKey(bare), "muc.config.submit", stanza.IQ{
		Type: stanza.SetIQ,
		To:   bare,
	}, xmlstream.Wrap(
		submission,
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	))
	return err
}
