// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package phoneburner

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/outboundlabs/prospectus/internal/platform"
)

// FlexString decodes a JSON string or number into a string. Null and
// non-scalar values become "". PhoneBurner ids flip between the two forms
// depending on endpoint version.
type FlexString string

// UnmarshalJSON never returns an error; unusable input coerces to "".
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = ""
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = FlexString(strings.TrimSpace(v))
		}
		return nil
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		*s = FlexString(data)
	}
	return nil
}

func (s FlexString) String() string { return string(s) }

// Ptr returns the value as a nullable string, nil when empty.
func (s FlexString) Ptr() *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

// FlexFloat decodes a JSON number or numeric string. Anything else leaves
// Valid false, which is how "unscored" survives normalization while a
// literal 0 stays a real score.
type FlexFloat struct {
	Val   float64
	Valid bool
}

// UnmarshalJSON never returns an error; unparseable input stays null.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.Val, f.Valid = 0, false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			f.Val, f.Valid = v, true
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		f.Val, f.Valid = v, true
	}
	return nil
}

// Ptr returns the value as a nullable float, nil when the field was absent
// or unparseable.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Val
	return &v
}

// FlexInt decodes a JSON number or numeric string into an int. Fractional
// values truncate. Unparseable input stays null; Int() maps null to 0 for
// count fields where zero is the correct default.
type FlexInt struct {
	Val   int
	Valid bool
}

// UnmarshalJSON never returns an error; unparseable input stays null.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	_ = f.UnmarshalJSON(data)
	i.Val, i.Valid = int(f.Val), f.Valid
	return nil
}

// Int returns the value, 0 when null.
func (i FlexInt) Int() int {
	if !i.Valid {
		return 0
	}
	return i.Val
}

// Ptr returns the value as a nullable int.
func (i FlexInt) Ptr() *int {
	if !i.Valid {
		return nil
	}
	v := i.Val
	return &v
}

// FlexBool decodes JSON true/false, 0/1 numbers, and the string spellings
// the dialer emits ("1", "true", "yes", "Y"). Anything else is false.
type FlexBool bool

// UnmarshalJSON never returns an error.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	*b = false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err == nil {
			*b = FlexBool(v)
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y":
			*b = true
		}
	default:
		var f FlexFloat
		_ = f.UnmarshalJSON(data)
		*b = FlexBool(f.Valid && f.Val != 0)
	}
	return nil
}

// Bool returns the decoded value.
func (b FlexBool) Bool() bool { return bool(b) }

// timeLayouts are tried in order for string timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FlexTime decodes unix seconds (number or numeric string, milliseconds
// detected by magnitude) or a handful of string layouts. Invalid input
// stays the zero time.
type FlexTime struct {
	Val time.Time
}

// UnmarshalJSON never returns an error; unparseable input stays zero.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	t.Val = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				t.Val = v.UTC()
				return nil
			}
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			t.Val = unixFlex(secs)
		}
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		t.Val = unixFlex(secs)
	}
	return nil
}

// unixFlex interprets a numeric timestamp as seconds, or as milliseconds
// when the magnitude says so. Zero and negatives stay the zero time.
func unixFlex(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// Time returns the decoded value, zero when invalid.
func (t FlexTime) Time() time.Time { return t.Val }

// Ptr returns the value as a nullable time.
func (t FlexTime) Ptr() *time.Time {
	if t.Val.IsZero() {
		return nil
	}
	v := t.Val
	return &v
}

// FlexStrings decodes a JSON array of strings/numbers or a single
// comma-separated string into a []string. Anything else is nil.
type FlexStrings []string

// UnmarshalJSON never returns an error.
func (l *FlexStrings) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '[':
		var raw []FlexString
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		for _, s := range raw {
			if s != "" {
				*l = append(*l, s.String())
			}
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
	}
	return nil
}

// Collection absorbs PhoneBurner's unstable collection shapes: a single
// object, an array of objects, or a nested array-of-arrays all flatten into
// Items. Unrecognized shapes and undecodable elements are dropped and
// counted in Skipped; decoding never fails.
type Collection[T any] struct {
	Items   []T
	Skipped int
}

// UnmarshalJSON never returns an error.
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	c.Items, c.Skipped = nil, 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			c.Skipped++
			return nil
		}
		c.Items = []T{one}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			c.Skipped++
			return nil
		}
		for _, elem := range elems {
			elem = bytes.TrimSpace(elem)
			if len(elem) == 0 {
				c.Skipped++
				continue
			}
			switch elem[0] {
			case '{':
				var one T
				if err := json.Unmarshal(elem, &one); err != nil {
					c.Skipped++
					continue
				}
				c.Items = append(c.Items, one)
			case '[':
				var inner []T
				if err := json.Unmarshal(elem, &inner); err != nil {
					c.Skipped++
					continue
				}
				c.Items = append(c.Items, inner...)
			default:
				c.Skipped++
			}
		}
	default:
		c.Skipped++
	}
	return nil
}

// Contact is the dialer's raw contact record. Field types are flexible on
// purpose; normalization decides what survives.
type Contact struct {
	ContactID    FlexString  `json:"contact_id"`
	FirstName    FlexString  `json:"first_name"`
	LastName     FlexString  `json:"last_name"`
	Email        FlexString  `json:"primary_email"`
	Phone        FlexString  `json:"primary_phone"`
	Company      FlexString  `json:"company"`
	Title        FlexString  `json:"title"`
	LeadScore    FlexFloat   `json:"lead_score"`
	Tags         FlexStrings `json:"tags"`
	LastCallTime FlexTime    `json:"last_call_time"`
}

// DialSession is one raw power-dialing session.
type DialSession struct {
	SessionID     FlexString `json:"session_id"`
	MemberID      FlexString `json:"member_id"`
	StartTime     FlexTime   `json:"start_time"`
	EndTime       FlexTime   `json:"end_time"`
	TotalCalls    FlexInt    `json:"total_calls"`
	TotalConnects FlexInt    `json:"total_connects"`
	TotalTalkTime FlexInt    `json:"total_talk_time"`
}

// Call is one raw dial attempt from a session's call sub-collection.
type Call struct {
	CallID       FlexString `json:"call_id"`
	SessionID    FlexString `json:"session_id"`
	ContactID    FlexString `json:"contact_id"`
	PhoneNumber  FlexString `json:"phone_number"`
	CallStart    FlexTime   `json:"call_start"`
	Duration     FlexInt    `json:"duration"`
	TalkTime     FlexInt    `json:"talk_time"`
	Connected    FlexBool   `json:"connected"`
	Category     FlexString `json:"category"`
	RecordingURL FlexString `json:"recording_url"`
	Notes        FlexString `json:"notes"`
}

// MemberStat is one raw per-member per-day aggregate row.
type MemberStat struct {
	MemberID      FlexString `json:"member_id"`
	Date          FlexTime   `json:"date"`
	Dials         FlexInt    `json:"dials"`
	Connects      FlexInt    `json:"connects"`
	Conversations FlexInt    `json:"conversations"`
	EmailsSent    FlexInt    `json:"emails_sent"`
	TalkTime      FlexInt    `json:"talk_time"`
}

// resolveList extracts the named collection and its pagination envelope from
// a list response body. The field arrives either as a bare collection or as
// a wrapper object holding page bookkeeping next to a same-named inner
// collection ({"contacts":{"contacts":[...],"total_pages":3,...}}); both
// forms, and a body that is itself the bare array, resolve to the same
// result. requestedPage/requestedSize fill the envelope when the payload
// does not carry its own.
func resolveList[T any](body []byte, key string, requestedPage, requestedSize int) (Collection[T], platform.PageInfo) {
	info := platform.PageInfo{Page: requestedPage, PageSize: requestedSize}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var col Collection[T]
		_ = col.UnmarshalJSON(body)
		info.Returned = len(col.Items)
		return col, info
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Collection[T]{Skipped: 1}, info
	}

	raw, ok := top[key]
	if !ok {
		// Absent field means an empty page, not a malformed one.
		return Collection[T]{}, info
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		// Wrapper form: pagination fields beside the inner collection.
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err == nil {
			if inner, ok := wrapper[key]; ok {
				raw = inner
			}
			if v := flexIntField(wrapper, "page"); v > 0 {
				info.Page = v
			}
			if v := flexIntField(wrapper, "page_size"); v > 0 {
				info.PageSize = v
			}
			info.TotalPages = flexIntField(wrapper, "total_pages")
			info.TotalResults = flexIntField(wrapper, "total_results")
		}
	}

	var col Collection[T]
	_ = col.UnmarshalJSON(raw)
	info.Returned = len(col.Items)
	return col, info
}

// flexIntField reads an optional numeric field from a decoded wrapper.
func flexIntField(m map[string]json.RawMessage, key string) int {
	raw, ok := m[key]
	if !ok {
		return 0
	}
	var v FlexInt
	_ = v.UnmarshalJSON(raw)
	return v.Int()
}
