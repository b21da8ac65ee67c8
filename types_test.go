// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc_test

import (
	"encoding/xml"
	"strconv"
	"testing"

	"mellium.im/muc"
)

var (
	_ xml.MarshalerAttr   = (*muc.Role)(nil)
	_ xml.UnmarshalerAttr = (*muc.Role)(nil)
	_ xml.MarshalerAttr   = (*muc.Affiliation)(nil)
	_ xml.UnmarshalerAttr = (*muc.Affiliation)(nil)
	_ muc.Grant           = muc.RoleModerator
	_ muc.Grant           = muc.AffiliationOwner
)

func TestParseRoundTrip(t *testing.T) {
	for a := muc.AffiliationNone; a <= muc.AffiliationOutcast; a++ {
		got, err := muc.ParseAffiliation(a.String())
		if err != nil || got != a {
			t.Errorf("affiliation %v did not round trip: got=%v, err=%v", a, got, err)
		}
	}
	for r := muc.RoleNone; r <= muc.RoleVisitor; r++ {
		got, err := muc.ParseRole(r.String())
		if err != nil || got != r {
			t.Errorf("role %v did not round trip: got=%v, err=%v", r, got, err)
		}
	}
	if _, err := muc.ParseRole("bard"); err == nil {
		t.Errorf("expected error parsing unknown role")
	}
	if _, err := muc.ParseAffiliation("bard"); err == nil {
		t.Errorf("expected error parsing unknown affiliation")
	}
}

func TestRolePrivileges(t *testing.T) {
	for _, tc := range []struct {
		role muc.Role
		has  muc.Privileges
		not  muc.Privileges
	}{
		{role: muc.RoleVisitor, has: muc.PrivilegeSendInvites, not: muc.PrivilegeSendMessages},
		{role: muc.RoleParticipant, has: muc.PrivilegeSendMessages | muc.PrivilegeModifySubject, not: muc.PrivilegeKick},
		{role: muc.RoleModerator, has: muc.PrivilegeKick | muc.PrivilegeGrantVoice},
		{role: muc.RoleNone, not: muc.PrivilegePresent},
	} {
		t.Run(tc.role.String(), func(t *testing.T) {
			p := tc.role.Privileges()
			if !p.Has(tc.has) {
				t.Errorf("expected privileges %b in %b", tc.has, p)
			}
			if tc.not != 0 && p.Has(tc.not) {
				t.Errorf("unexpected privileges %b in %b", tc.not, p)
			}
		})
	}
}

func TestStatusFromCode(t *testing.T) {
	for i, tc := range []struct {
		code    int
		status  muc.Status
		ok      bool
		removed bool
	}{
		{code: 110, status: muc.StatusSelf, ok: true},
		{code: 303, status: muc.StatusNickChanged, ok: true},
		{code: 307, status: muc.StatusKicked, ok: true, removed: true},
		{code: 322, status: muc.StatusRemovedMembersOnly, ok: true, removed: true},
		{code: 999},
		{code: -1},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			s, ok := muc.StatusFromCode(tc.code)
			if ok != tc.ok || s != tc.status {
				t.Fatalf("wrong status: want=(%v, %t), got=(%v, %t)", tc.status, tc.ok, s, ok)
			}
			if ok && s.Code() != tc.code {
				t.Errorf("wrong code: want=%d, got=%d", tc.code, s.Code())
			}
			if s.Removed() != tc.removed {
				t.Errorf("wrong removal: want=%t, got=%t", tc.removed, s.Removed())
			}
		})
	}
	if s := muc.StatusSelf.String(); s != "self" {
		t.Errorf("wrong name: %s", s)
	}
}
