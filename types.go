// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Affiliation,Role,Availability,RoomPrivacy,SessionState -linecomment

package muc

import (
	"encoding/xml"
	"errors"
)

// Affiliation indicates a users affiliation to the room.
type Affiliation uint8

// A list of room affiliations.
const (
	AffiliationNone Affiliation = iota // none

	// Support for the owner affiliation is required.
	AffiliationOwner // owner

	// Support for these affiliations is recommended, but optional.
	AffiliationAdmin   // admin
	AffiliationMember  // member
	AffiliationOutcast // outcast
)

// ParseAffiliation returns the affiliation with the given name.
func ParseAffiliation(s string) (Affiliation, error) {
	for a := AffiliationNone; a <= AffiliationOutcast; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return AffiliationNone, errors.New("muc: unrecognized affiliation")
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (a *Affiliation) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := ParseAffiliation(attr.Value)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (a *Affiliation) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if a == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: a.String()}, nil
}

func (a Affiliation) grantAttr() xml.Attr {
	return xml.Attr{Name: xml.Name{Local: "affiliation"}, Value: a.String()}
}

// Role indicates a users role in the room.
type Role uint8

// A list of user roles.
const (
	RoleNone Role = iota // none

	// Support for these roles is required.
	RoleModerator   // moderator
	RoleParticipant // participant

	// Support for these roles is recommended, but optional.
	RoleVisitor // visitor
)

// ParseRole returns the role with the given name.
func ParseRole(s string) (Role, error) {
	for r := RoleNone; r <= RoleVisitor; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return RoleNone, errors.New("muc: unrecognized role")
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (r *Role) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := ParseRole(attr.Value)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (r *Role) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if r == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: r.String()}, nil
}

func (r Role) grantAttr() xml.Attr {
	return xml.Attr{Name: xml.Name{Local: "role"}, Value: r.String()}
}

// Privileges returns the default privileges of the role.
func (r Role) Privileges() Privileges {
	switch r {
	case RoleModerator:
		return PrivilegesModerator
	case RoleParticipant:
		return PrivilegesParticipant
	case RoleVisitor:
		return PrivilegesVisitor
	}
	return 0
}

// Grant is a role or affiliation that can be granted to an occupant.
// It is implemented by Role and Affiliation.
type Grant interface {
	String() string
	grantAttr() xml.Attr
}

// Privileges is a bit mask indicating the various privileges assigned to a room
// user.
type Privileges uint16

// A list of possible privileges.
const (
	PrivilegePresent            Privileges = 1 << iota // present
	PrivilegeReceiveMessages                           // receive-messages
	PrivilegeReceivePresence                           // receive-presence
	PrivilegeBroadcastPresence                         // broadcast-presence
	PrivilegeChangeAvailability                        // change-availability
	PrivilegeChangeNick                                // change-nick
	PrivilegePrivateMessage                            // send-private-message
	PrivilegeSendInvites                               // send-invites
	PrivilegeSendMessages                              // send-messages
	PrivilegeModifySubject                             // modify-subject
	PrivilegeKick                                      // kick
	PrivilegeGrantVoice                                // grant-voice
	PrivilegeRevokeVoice                               // revoke-voice

	// Common default privilages for each role.
	// These are just common defaults provided as a convenience, it is not
	// guaranteed that a user of a given role has this set of privileges.
	PrivilegesVisitor     = PrivilegePresent | PrivilegeReceiveMessages | PrivilegeReceivePresence | PrivilegeBroadcastPresence | PrivilegeChangeAvailability | PrivilegeChangeNick | PrivilegePrivateMessage | PrivilegeSendInvites
	PrivilegesParticipant = PrivilegesVisitor | PrivilegeSendMessages | PrivilegeModifySubject
	PrivilegesModerator   = PrivilegesParticipant | PrivilegeKick | PrivilegeGrantVoice | PrivilegeRevokeVoice
)

// Has reports whether all of the privileges in p are set.
func (p Privileges) Has(priv Privileges) bool {
	return p&priv == priv
}

// Availability is the presence state of an occupant.
type Availability uint8

// A list of availabilities.
const (
	Online       Availability = iota // online
	Away                             // away
	DoNotDisturb                     // dnd
	ExtendedAway                     // xa
	Unavailable                      // unavailable
)

// show returns the value of the presence show element for the availability.
func (a Availability) show() string {
	switch a {
	case Away, DoNotDisturb, ExtendedAway:
		return a.String()
	}
	return ""
}

func availabilityFromShow(show string, unavailable bool) Availability {
	if unavailable {
		return Unavailable
	}
	switch show {
	case "away":
		return Away
	case "dnd":
		return DoNotDisturb
	case "xa":
		return ExtendedAway
	}
	return Online
}

// RoomPrivacy describes whether a room requires membership to enter.
type RoomPrivacy uint8

// A list of room privacy settings.
const (
	// Non-banned entities are allowed to enter without being on the member
	// list.
	Open RoomPrivacy = iota // open

	// A user cannot enter without being on the member list.
	MembersOnly // members-only
)

// SessionState is the lifecycle state of a room session.
type SessionState uint8

// A list of session states.
const (
	NotJoined SessionState = iota // not-joined
	Joining                       // joining
	Joined                        // joined
	Leaving                       // leaving
)
